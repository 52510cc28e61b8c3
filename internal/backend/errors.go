// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"fmt"
)

// Error variables for common backend failures.
var (
	// ErrNotConfigured indicates the relay host is not set.
	ErrNotConfigured = errors.New("relay backend host not configured")

	// ErrIdleTimeout indicates the streaming body produced no bytes for
	// longer than the configured idle timeout and was closed.
	ErrIdleTimeout = errors.New("stream idle timeout exceeded")
)

// ConfigSyncError is a non-200 response to the service configuration PUT.
// The raw response body is preserved for display.
type ConfigSyncError struct {
	Status int
	Body   string
}

func (e *ConfigSyncError) Error() string {
	return fmt.Sprintf("config sync failed: status %d: %s", e.Status, e.Body)
}

// ChatError is a non-200 response to the chat POST. Message is taken from
// the response body's "message" field when present, otherwise the raw body.
type ChatError struct {
	Status  int
	Message string
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("chat request failed: status %d: %s", e.Status, e.Message)
}

// APIError is a non-200 response from an auxiliary endpoint.
type APIError struct {
	Op     string // "clear history", "clear embeddings", "embed file", "list tools"
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Body)
}
