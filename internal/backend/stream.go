// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"io"
	"sync/atomic"
	"time"
)

// idleTimeoutBody wraps a streaming response body and closes it when no
// bytes arrive for the configured duration. The streaming HTTP client has
// no global timeout, so without this a stalled relay would hold the
// connection open forever.
type idleTimeoutBody struct {
	rc       io.ReadCloser
	d        time.Duration
	timer    *time.Timer
	timedOut atomic.Bool
}

func newIdleTimeoutBody(rc io.ReadCloser, d time.Duration) *idleTimeoutBody {
	b := &idleTimeoutBody{rc: rc, d: d}
	b.timer = time.AfterFunc(d, func() {
		b.timedOut.Store(true)
		rc.Close()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil {
		if b.timedOut.Load() {
			return n, ErrIdleTimeout
		}
		return n, err
	}
	b.timer.Reset(b.d)
	return n, nil
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	return b.rc.Close()
}
