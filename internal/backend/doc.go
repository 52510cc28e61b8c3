// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the relay chat service.
//
// The relay exposes one service per conversation under /v1/services/{id}.
// Before the first message of an editable conversation the client PUTs the
// service configuration; every message is a streaming POST whose body is
// decoded by internal/relay. Auxiliary endpoints cover history and
// embedding deletion, document upload, and tool discovery.
//
// # Key Types
//
//   - Client: Pooled HTTP client with provider-specific auth headers
//   - ServiceConfig: Payload for the config-sync PUT
//   - ChatRequest: One streaming chat send
//   - ConfigSyncError / ChatError / APIError: Typed failures per endpoint
//
// # Usage
//
//	c := backend.NewClient("https://relay.example.com",
//	    backend.WithProvider(backend.ProviderOpenAI),
//	    backend.WithAPIKey(key))
//	body, err := c.Chat(ctx, backend.ChatRequest{
//	    ServiceID: conv.ID,
//	    ClientID:  clientID,
//	    Query:     "Hello!",
//	})
package backend
