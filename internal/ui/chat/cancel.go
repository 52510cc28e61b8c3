// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// cancelManager tracks the cancel function of the in-flight send so the
// Esc handler can abort it from the UI loop.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// set stores the active send's cancel function, replacing any previous
// one.
func (cm *cancelManager) set(cancel context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancel = cancel
}

// cancelActive cancels the in-flight send, if any, and reports whether
// there was one.
func (cm *cancelManager) cancelActive() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel == nil {
		return false
	}
	cm.cancel()
	cm.cancel = nil
	return true
}

// clear drops the stored cancel function without invoking it.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancel = nil
}
