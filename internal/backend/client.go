// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the relay API.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultIdleTimeout is how long a streaming body may go without
	// producing bytes before the stream is closed. Zero disables it.
	DefaultIdleTimeout = 90 * time.Second

	// MaxResponseSize caps error and auxiliary response bodies.
	MaxResponseSize = 10 * 1024 * 1024
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming relay requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for chat requests (no global timeout;
	// lifetime is controlled via context and the idle-timeout wrapper).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// Provider selects which auth header shape the relay expects.
type Provider string

const (
	ProviderOpenAI Provider = "openai" // Authorization: Bearer <key>
	ProviderAzure  Provider = "azure"  // api-key: <key>
	ProviderNone   Provider = "none"   // no auth header
)

// Valid reports whether p is a recognized provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAzure, ProviderNone:
		return true
	}
	return false
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ServiceConfig is the payload of the service configuration PUT sent
// before the first message of an editable conversation.
type ServiceConfig struct {
	Model          string   `json:"model"`
	EmbeddingModel string   `json:"embedding_model"`
	Prompt         string   `json:"prompt"`
	Temperature    float64  `json:"temperature"`
	TopP           float64  `json:"top_p"`
	MemoryType     string   `json:"memory_type"`
	AllowedTools   []string `json:"allowed_tools"`
}

// ChatRequest is one streaming chat send.
type ChatRequest struct {
	ServiceID     string
	ClientID      string
	Query         string
	ImageURL      string // optional attached image
	SearchEnabled bool
}

// Tool is one entry of the relay's tool listing.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the relay backend. The zero value is not usable; create
// one with NewClient. Client is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client

	// mu guards the fields below, which Reconfigure may replace while
	// requests are in flight.
	mu           sync.RWMutex
	provider     Provider
	apiKey       string
	organization string
	googleAPIKey string
	googleCSEID  string
	idleTimeout  time.Duration
	limiter      *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithProvider sets the auth header shape.
func WithProvider(p Provider) Option {
	return func(c *Client) { c.provider = p }
}

// WithAPIKey sets the API key forwarded to the relay.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithOrganization sets the OpenAI-Organization header (openai provider
// only).
func WithOrganization(org string) Option {
	return func(c *Client) { c.organization = org }
}

// WithGoogleSearch sets the Google custom search credentials forwarded
// when a request enables search.
func WithGoogleSearch(apiKey, cseID string) Option {
	return func(c *Client) {
		c.googleAPIKey = apiKey
		c.googleCSEID = cseID
	}
}

// WithIdleTimeout overrides the streaming idle timeout. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// WithRateLimit throttles outgoing sends client-side.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClients replaces the pooled clients, mainly for tests.
func WithHTTPClients(plain, streaming *http.Client) Option {
	return func(c *Client) {
		c.httpClient = plain
		c.streamClient = streaming
	}
}

// NewClient creates a relay client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		provider:     ProviderOpenAI,
		idleTimeout:  DefaultIdleTimeout,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reconfigure applies options to a live client. Requests already in
// flight keep the settings they started with; new requests see the
// updated ones. The config watcher uses this to hot-reload credentials
// without dropping the connection pool.
func (c *Client) Reconfigure(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range opts {
		opt(c)
	}
}

// =============================================================================
// CONFIG SYNC
// =============================================================================

// SyncService PUTs the service configuration for a conversation. A non-200
// response yields *ConfigSyncError; callers treat that as terminal and
// must not proceed to Chat.
func (c *Client) SyncService(ctx context.Context, serviceID, clientID string, cfg ServiceConfig) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if cfg.AllowedTools == nil {
		cfg.AllowedTools = []string{}
	}

	endpoint := fmt.Sprintf("%s/v1/services/%s?client_id=%s",
		c.baseURL, url.PathEscape(serviceID), url.QueryEscape(clientID))

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode service config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create config sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("config sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return &ConfigSyncError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// =============================================================================
// CHAT
// =============================================================================

// chatBody is the chat POST payload. Query is a plain string, or a parts
// array when an image rides along.
type chatBody struct {
	Query any `json:"query"`
}

type chatQueryPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Chat POSTs a message and returns the raw streaming response body for
// decoding. The caller must Close it. A non-200 response is drained and
// returned as *ChatError.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (io.ReadCloser, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	c.mu.RLock()
	limiter, idleTimeout := c.limiter, c.idleTimeout
	c.mu.RUnlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("%s/v1/services/%s/clients/%s/chat",
		c.baseURL, url.PathEscape(r.ServiceID), url.PathEscape(r.ClientID))
	if r.SearchEnabled {
		endpoint += "?search_enabled=true"
	}

	var body chatBody
	if r.ImageURL != "" {
		body.Query = []chatQueryPart{
			{Type: "text", Text: r.Query},
			{Type: "image_url", ImageURL: r.ImageURL},
		}
	} else {
		body.Query = r.Query
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	c.setHeaders(req, r.SearchEnabled)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return nil, &ChatError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if idleTimeout > 0 {
		return newIdleTimeoutBody(resp.Body, idleTimeout), nil
	}
	return resp.Body, nil
}

// setHeaders applies the provider-specific auth headers plus the optional
// search credentials.
func (c *Client) setHeaders(req *http.Request, searchEnabled bool) {
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.provider {
	case ProviderOpenAI:
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if c.organization != "" {
			req.Header.Set("OpenAI-Organization", c.organization)
		}
	case ProviderAzure:
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}
	}

	if searchEnabled && c.googleAPIKey != "" && c.googleCSEID != "" {
		req.Header.Set("Google-Api-Key", c.googleAPIKey)
		req.Header.Set("Google-Cse-Id", c.googleCSEID)
	}
}

// errorMessage pulls the "message" field out of an error body, falling
// back to the raw text.
func errorMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}

// =============================================================================
// AUXILIARY ENDPOINTS
// =============================================================================

// ClearHistory deletes the server-side chat history for a conversation.
func (c *Client) ClearHistory(ctx context.Context, serviceID, clientID string) error {
	endpoint := fmt.Sprintf("%s/v1/services/%s/clients/%s/history",
		c.baseURL, url.PathEscape(serviceID), url.PathEscape(clientID))
	return c.doDelete(ctx, "clear history", endpoint)
}

// ClearEmbeddings deletes all embedded documents for a conversation.
func (c *Client) ClearEmbeddings(ctx context.Context, serviceID string) error {
	endpoint := fmt.Sprintf("%s/v1/services/%s/embeddings",
		c.baseURL, url.PathEscape(serviceID))
	return c.doDelete(ctx, "clear embeddings", endpoint)
}

func (c *Client) doDelete(ctx context.Context, op, endpoint string) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// ListTools fetches the tools the relay can expose to conversations.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list tools request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return nil, &APIError{Op: "list tools", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Data []Tool `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tool listing: %w", err)
	}
	return parsed.Data, nil
}
