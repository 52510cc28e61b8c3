// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// =============================================================================
// EVENT TYPE
// =============================================================================

// EventType classifies a stream event.
type EventType int

const (
	// EventDelta carries one decoded content fragment.
	EventDelta EventType = iota

	// EventClosed is the clean end-of-stream terminal event.
	EventClosed

	// EventAborted is the cancellation terminal event.
	EventAborted

	// EventError is the failure terminal event.
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventDelta:
		return "delta"
	case EventClosed:
		return "closed"
	case EventAborted:
		return "aborted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from an in-flight send. Exactly one terminal
// event (closed, aborted, or error) ends every send, and the channel is
// closed right after it.
type Event struct {
	Type EventType

	// Delta fields, set for EventDelta.
	Delta      string // this fragment
	Cumulative string // full response text so far

	// Err is set for EventError.
	Err error

	// Stats is set on terminal events.
	Stats *Stats
}

// Terminal reports whether the event ends the send.
func (e Event) Terminal() bool {
	return e.Type != EventDelta
}

// =============================================================================
// STATS
// =============================================================================

// Stats summarizes one send for display and usage recording.
type Stats struct {
	Deltas   int           // number of content fragments received
	Bytes    int           // total decoded bytes
	TTFT     time.Duration // time to first delta
	Duration time.Duration // total send duration
}

// =============================================================================
// STATE
// =============================================================================

// State is the position of a conversation's current (or last) send in the
// lifecycle.
type State int

const (
	StateIdle State = iota
	StateSyncingConfig
	StateAwaitingResponse
	StateStreaming
	StateClosed
	StateAborted
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncingConfig:
		return "syncing-config"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
