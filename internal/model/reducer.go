// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/jeranaias/relaychat-tui/internal/util"

// nameRuneLimit caps derived conversation names; longer user text is cut
// to this many runes plus an ellipsis.
const nameRuneLimit = 30

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Event is a streaming lifecycle event folded into conversation state by
// Reduce. The set is closed: exactly the constructors below.
type Event interface {
	isStreamEvent()
}

// UserMessageAppended records a user send. TruncateCount removes that many
// messages from the tail first, which implements resend-after-edit: editing
// message k truncates everything from k onward and appends the edited text.
type UserMessageAppended struct {
	Message       Message
	TruncateCount int
}

// StreamDeltaFirst is the first delta of a response; it opens a new
// assistant message holding the delta text.
type StreamDeltaFirst struct {
	Text string
}

// StreamDeltaNext carries the cumulative response text so far; it replaces
// the content of the open assistant message.
type StreamDeltaNext struct {
	Text string
}

// StreamClosed marks clean end of stream. On the first exchange it also
// derives the conversation name from the user's text.
type StreamClosed struct{}

// StreamError records a failed send; the error text is appended as an
// assistant message so the transcript shows what happened.
type StreamError struct {
	Message string
}

// StreamAborted marks a user cancellation. Partial assistant text already
// applied stays as-is.
type StreamAborted struct{}

func (UserMessageAppended) isStreamEvent() {}
func (StreamDeltaFirst) isStreamEvent()    {}
func (StreamDeltaNext) isStreamEvent()     {}
func (StreamClosed) isStreamEvent()        {}
func (StreamError) isStreamEvent()         {}
func (StreamAborted) isStreamEvent()       {}

// =============================================================================
// REDUCER
// =============================================================================

// Reduce returns the conversation that results from applying ev to c. It is
// pure: c is never mutated, the result is a fresh value, and no I/O or
// clock reads happen here. Applying the same event to equal inputs yields
// equal outputs.
func Reduce(c *Conversation, ev Event) *Conversation {
	next := c.Clone()

	switch e := ev.(type) {
	case UserMessageAppended:
		if e.TruncateCount > 0 {
			keep := len(next.Messages) - e.TruncateCount
			if keep < 0 {
				keep = 0
			}
			next.Messages = next.Messages[:keep]
		}
		next.Messages = append(next.Messages, e.Message)

	case StreamDeltaFirst:
		next.Messages = append(next.Messages, NewAssistantMessage(e.Text))

	case StreamDeltaNext:
		if n := len(next.Messages); n > 0 {
			next.Messages[n-1].Content = TextContent(e.Text)
		}

	case StreamClosed:
		if next.onFirstExchange() {
			if um := next.FirstUserMessage(); um != nil {
				next.Name = util.EllipsizeRunes(um.Content.Text(), nameRuneLimit)
			}
		}

	case StreamError:
		next.Messages = append(next.Messages, NewAssistantMessage(e.Message))

	case StreamAborted:
		// Frozen: partial content stays, nothing else changes.
	}

	return next
}

// onFirstExchange reports whether the conversation holds exactly its first
// user message (plus the in-flight assistant reply, if any).
func (c *Conversation) onFirstExchange() bool {
	users := 0
	for i := range c.Messages {
		if c.Messages[i].Role == RoleUser {
			users++
		}
	}
	return users == 1
}
