// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
)

func TestStreamingBufferBatchFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	// Below both thresholds: nothing flushes.
	sb.Write("a")
	if _, ok := sb.Flush(); ok {
		t.Error("Flush() flushed below thresholds")
	}

	// Batch threshold reached: flush returns everything in order.
	for i := 1; i < defaultBatchSize; i++ {
		sb.Write("a")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() = false at batch threshold")
	}
	if len(content) != defaultBatchSize {
		t.Errorf("len(content) = %d, want %d", len(content), defaultBatchSize)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("tail")

	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush() = %q, %v, want %q, true", content, ok, "tail")
	}

	if _, ok := sb.ForceFlush(); ok {
		t.Error("second ForceFlush() = true on empty buffer")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("discard me")
	sb.Reset()

	if sb.pending() != 0 {
		t.Errorf("pending() = %d after Reset, want 0", sb.pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush() = true after Reset")
	}
}

func TestStreamingBufferPreservesOrder(t *testing.T) {
	sb := NewStreamingBuffer()
	for _, s := range []string{"Hel", "lo ", "wor", "ld", "!", "!", "!", "!", "!", "!", "!", "!", "!", "!", "!"} {
		sb.Write(s)
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() = false")
	}
	if content != "Hello world!!!!!!!!!!!" {
		t.Errorf("content = %q", content)
	}
}
