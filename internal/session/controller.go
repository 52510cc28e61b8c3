// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/relay"
)

// eventBuffer sizes the event channel so a briefly slow consumer does not
// stall decoding.
const eventBuffer = 64

// Error variables for send admission.
var (
	// ErrInvalidRequest indicates a missing service or client id.
	ErrInvalidRequest = errors.New("service id and client id are required")

	// ErrConcurrentSend indicates a send is already in flight for the
	// conversation.
	ErrConcurrentSend = errors.New("a send is already in flight for this conversation")
)

// Backend is the transport surface the controller drives. *backend.Client
// implements it; tests substitute fakes.
type Backend interface {
	SyncService(ctx context.Context, serviceID, clientID string, cfg backend.ServiceConfig) error
	Chat(ctx context.Context, r backend.ChatRequest) (io.ReadCloser, error)
}

// Request describes one send.
type Request struct {
	ServiceID     string
	ClientID      string
	Query         string
	ImageURL      string
	SearchEnabled bool

	// FirstMessage, Editable and Shared gate the config sync: it runs only
	// for the first message of an editable, non-shared conversation.
	FirstMessage bool
	Editable     bool
	Shared       bool

	// Config is the service configuration to sync when the gate passes.
	Config backend.ServiceConfig
}

// syncNeeded reports whether the service configuration PUT must precede
// the chat request.
func (r Request) syncNeeded() bool {
	return r.FirstMessage && r.Editable && !r.Shared
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs streaming sends, one at a time per conversation. It is
// safe for concurrent use across conversations.
type Controller struct {
	backend Backend

	mu     sync.Mutex
	active map[string]context.CancelFunc
	states map[string]State
}

// NewController creates a controller over the given transport.
func NewController(b Backend) *Controller {
	return &Controller{
		backend: b,
		active:  make(map[string]context.CancelFunc),
		states:  make(map[string]State),
	}
}

// Send starts a streaming send and returns its event channel. The channel
// carries zero or more delta events followed by exactly one terminal
// event, then closes; callers must drain it. Admission failures
// (ErrInvalidRequest, ErrConcurrentSend) are returned synchronously and
// produce no events.
func (c *Controller) Send(ctx context.Context, req Request) (<-chan Event, error) {
	if req.ServiceID == "" || req.ClientID == "" {
		return nil, ErrInvalidRequest
	}

	c.mu.Lock()
	if _, busy := c.active[req.ServiceID]; busy {
		c.mu.Unlock()
		return nil, ErrConcurrentSend
	}
	sendCtx, cancel := context.WithCancel(ctx)
	c.active[req.ServiceID] = cancel
	c.states[req.ServiceID] = StateIdle
	c.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	go c.run(sendCtx, req, ch)
	return ch, nil
}

// Cancel aborts the in-flight send for a conversation, if any. The send
// still delivers its aborted terminal event and closes its channel.
func (c *Controller) Cancel(serviceID string) bool {
	c.mu.Lock()
	cancel, ok := c.active[serviceID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Streaming reports whether a send is in flight for the conversation.
func (c *Controller) Streaming(serviceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[serviceID]
	return ok
}

// State returns the lifecycle position of the conversation's current or
// most recent send.
func (c *Controller) State(serviceID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[serviceID]
}

// =============================================================================
// SEND LIFECYCLE
// =============================================================================

// run drives one send. It emits exactly one terminal event through
// whichever return path fires first, closes the channel, and releases the
// conversation slot.
func (c *Controller) run(ctx context.Context, req Request, ch chan<- Event) {
	start := time.Now()
	stats := &Stats{}

	terminal := func(t EventType, err error, s State) {
		stats.Duration = time.Since(start)
		c.finish(req.ServiceID, s)
		ch <- Event{Type: t, Err: err, Stats: stats}
		close(ch)
	}
	failed := func(err error) {
		// Cancellation surfaces as transport errors too; the context is
		// the source of truth for which terminal event this is.
		if ctx.Err() != nil {
			terminal(EventAborted, nil, StateAborted)
			return
		}
		terminal(EventError, err, StateErrored)
	}

	if req.syncNeeded() {
		c.setState(req.ServiceID, StateSyncingConfig)
		if err := c.backend.SyncService(ctx, req.ServiceID, req.ClientID, req.Config); err != nil {
			failed(err)
			return
		}
	}

	c.setState(req.ServiceID, StateAwaitingResponse)
	body, err := c.backend.Chat(ctx, backend.ChatRequest{
		ServiceID:     req.ServiceID,
		ClientID:      req.ClientID,
		Query:         req.Query,
		ImageURL:      req.ImageURL,
		SearchEnabled: req.SearchEnabled,
	})
	if err != nil {
		failed(err)
		return
	}
	defer body.Close()

	c.setState(req.ServiceID, StateStreaming)
	var cumulative strings.Builder
	dec := relay.NewDecoder(body)
	err = dec.Process(ctx, func(delta string) {
		cumulative.WriteString(delta)
		stats.Deltas++
		stats.Bytes += len(delta)
		if stats.Deltas == 1 {
			stats.TTFT = time.Since(start)
		}

		select {
		case ch <- Event{Type: EventDelta, Delta: delta, Cumulative: cumulative.String()}:
		case <-ctx.Done():
			// Process observes the cancellation on its next iteration.
		}
	})
	if err != nil {
		failed(err)
		return
	}
	terminal(EventClosed, nil, StateClosed)
}

func (c *Controller) setState(serviceID string, s State) {
	c.mu.Lock()
	c.states[serviceID] = s
	c.mu.Unlock()
}

// finish records the terminal state and frees the conversation slot so a
// new send can start.
func (c *Controller) finish(serviceID string, s State) {
	c.mu.Lock()
	c.states[serviceID] = s
	if cancel, ok := c.active[serviceID]; ok {
		delete(c.active, serviceID)
		cancel()
	}
	c.mu.Unlock()
}
