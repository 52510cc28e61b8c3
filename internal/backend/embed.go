// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// EmbedFile uploads one document for embedding into a conversation's
// retrieval index. The relay accepts a single multipart file field per
// request; callers upload multiple documents with repeated calls.
func (c *Client) EmbedFile(ctx context.Context, serviceID, clientID, filename string, r io.Reader) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/services/%s/embed_file?clientId=%s",
		c.baseURL, url.PathEscape(serviceID), url.QueryEscape(clientID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.mu.RLock()
	if c.provider == ProviderOpenAI && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return &APIError{Op: "embed file", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
