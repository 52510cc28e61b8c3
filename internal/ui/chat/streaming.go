// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches deltas for flicker-free rendering. Fragments
// accumulate until either a batch-size or frame-rate threshold passes,
// capping re-renders at ~30fps instead of once per network fragment.
//
// Thread-safety: deltas arrive from the session goroutine while flushes
// happen on the Bubble Tea loop, so every operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	deltaCount int
	lastFlush  time.Time

	batchSize    int
	minFlushWait time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer with default batching (15 deltas,
// 30fps).
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:    defaultBatchSize,
		minFlushWait: time.Second / defaultMaxFPS,
		lastFlush:    time.Now(),
	}
}

// Write adds one delta. Called from the streaming side.
func (sb *StreamingBuffer) Write(delta string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(delta)
	sb.deltaCount++
}

// Flush returns the accumulated text when a threshold has passed. The
// boolean reports whether anything was flushed.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.deltaCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlushWait {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush drains everything regardless of thresholds; used when a
// stream terminates so the final fragment always renders.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

// Reset clears pending content, for cancellation or a new send.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.deltaCount = 0
	sb.lastFlush = time.Now()
}

// pending returns the number of deltas waiting to flush.
func (sb *StreamingBuffer) pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.deltaCount
}

func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.deltaCount = 0
	sb.lastFlush = time.Now()
	return content
}
