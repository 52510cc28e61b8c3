// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

func newTestConversation() *Conversation {
	return NewConversation("New Conversation", DefaultModel)
}

func TestReduceUserMessageAppended(t *testing.T) {
	conv := newTestConversation()

	next := Reduce(conv, UserMessageAppended{Message: NewUserMessage("hello")})
	if len(next.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(next.Messages))
	}
	if next.Messages[0].Role != RoleUser {
		t.Errorf("Role = %q, want %q", next.Messages[0].Role, RoleUser)
	}
	if got := next.Messages[0].Content.Text(); got != "hello" {
		t.Errorf("Content.Text() = %q, want %q", got, "hello")
	}
	if len(conv.Messages) != 0 {
		t.Error("input conversation was mutated")
	}
}

func TestReduceUserMessageTruncation(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("one")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "reply one"})
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("two")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "reply two"})

	// Edit-and-resend of the second user message drops it and its reply.
	next := Reduce(conv, UserMessageAppended{
		Message:       NewUserMessage("two, edited"),
		TruncateCount: 2,
	})
	if len(next.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(next.Messages))
	}
	if got := next.Messages[2].Content.Text(); got != "two, edited" {
		t.Errorf("last message = %q, want %q", got, "two, edited")
	}
	if got := next.Messages[1].Content.Text(); got != "reply one" {
		t.Errorf("kept message = %q, want %q", got, "reply one")
	}
}

func TestReduceTruncateCountLargerThanHistory(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("only")})

	next := Reduce(conv, UserMessageAppended{
		Message:       NewUserMessage("fresh"),
		TruncateCount: 10,
	})
	if len(next.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(next.Messages))
	}
	if got := next.Messages[0].Content.Text(); got != "fresh" {
		t.Errorf("message = %q, want %q", got, "fresh")
	}
}

func TestReduceDeltaFirstThenNext(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("hi")})

	conv = Reduce(conv, StreamDeltaFirst{Text: "Hel"})
	if len(conv.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(conv.Messages))
	}
	if got := conv.Messages[1].Content.Text(); got != "Hel" {
		t.Errorf("assistant content = %q, want %q", got, "Hel")
	}

	// Each subsequent delta replaces the content with the cumulative text,
	// so state depends only on the latest event, not on how many arrived.
	conv = Reduce(conv, StreamDeltaNext{Text: "Hello"})
	conv = Reduce(conv, StreamDeltaNext{Text: "Hello wor"})
	conv = Reduce(conv, StreamDeltaNext{Text: "Hello world"})
	if len(conv.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 after deltas", len(conv.Messages))
	}
	if got := conv.Messages[1].Content.Text(); got != "Hello world" {
		t.Errorf("assistant content = %q, want %q", got, "Hello world")
	}
}

func TestReduceStreamClosedDerivesName(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("short question")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "answer"})

	conv = Reduce(conv, StreamClosed{})
	if conv.Name != "short question" {
		t.Errorf("Name = %q, want %q", conv.Name, "short question")
	}
}

func TestReduceStreamClosedEllipsizesLongName(t *testing.T) {
	long := strings.Repeat("abcde ", 10) // 60 runes
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage(long)})
	conv = Reduce(conv, StreamDeltaFirst{Text: "answer"})

	conv = Reduce(conv, StreamClosed{})
	want := string([]rune(long)[:30]) + "..."
	if conv.Name != want {
		t.Errorf("Name = %q, want %q", conv.Name, want)
	}
}

func TestReduceStreamClosedSecondExchangeKeepsName(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("first")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "a"})
	conv = Reduce(conv, StreamClosed{})

	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("second, very different")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "b"})
	conv = Reduce(conv, StreamClosed{})

	if conv.Name != "first" {
		t.Errorf("Name = %q, want %q", conv.Name, "first")
	}
}

func TestReduceStreamErrorAppendsAssistantMessage(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("hi")})

	next := Reduce(conv, StreamError{Message: "service unavailable"})
	if len(next.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(next.Messages))
	}
	last := next.Messages[1]
	if last.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", last.Role, RoleAssistant)
	}
	if got := last.Content.Text(); got != "service unavailable" {
		t.Errorf("Content.Text() = %q, want %q", got, "service unavailable")
	}
}

func TestReduceStreamAbortedFreezesPartial(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("hi")})
	conv = Reduce(conv, StreamDeltaFirst{Text: "partial ans"})

	next := Reduce(conv, StreamAborted{})
	if len(next.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(next.Messages))
	}
	if got := next.Messages[1].Content.Text(); got != "partial ans" {
		t.Errorf("partial content = %q, want %q", got, "partial ans")
	}
}

func TestReduceIsPure(t *testing.T) {
	conv := newTestConversation()
	conv = Reduce(conv, UserMessageAppended{Message: NewUserMessage("hi")})
	before := len(conv.Messages)

	_ = Reduce(conv, StreamDeltaFirst{Text: "x"})
	_ = Reduce(conv, StreamError{Message: "boom"})
	_ = Reduce(conv, UserMessageAppended{Message: NewUserMessage("again"), TruncateCount: 1})

	if len(conv.Messages) != before {
		t.Errorf("len(Messages) = %d after reductions, want %d", len(conv.Messages), before)
	}
	if got := conv.Messages[0].Content.Text(); got != "hi" {
		t.Errorf("original message = %q, want %q", got, "hi")
	}
}

func TestIsEditable(t *testing.T) {
	conv := newTestConversation()
	if !conv.IsEditable() {
		t.Error("fresh conversation should be editable")
	}

	withMsg := Reduce(conv, UserMessageAppended{Message: NewUserMessage("x")})
	if withMsg.IsEditable() {
		t.Error("conversation with messages should not be editable")
	}

	withFiles := conv.Clone()
	withFiles.Files = []string{"doc.pdf"}
	if withFiles.IsEditable() {
		t.Error("conversation with files should not be editable")
	}

	shared := conv.Clone()
	shared.Shared = true
	if shared.IsEditable() {
		t.Error("shared conversation should not be editable")
	}
}
