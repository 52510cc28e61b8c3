// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates one streaming chat send end to end.
//
// The Controller owns the send lifecycle for each conversation: optional
// service configuration sync, the streaming chat request, decoding the
// response into deltas, and exactly one terminal outcome (closed, aborted,
// or errored). At most one send may be in flight per conversation at a
// time; a second Send for the same conversation fails fast with
// ErrConcurrentSend.
//
// Events arrive on the channel returned by Send, in order, ending with a
// single terminal event, after which the channel is closed. Callers must
// drain the channel. Cancellation happens through the Send context (or
// Cancel), aborts the transport, and produces the aborted terminal event.
//
// # Key Types
//
//   - Controller: Per-conversation send orchestration
//   - Request: One send with its config-sync preconditions
//   - Event: Delta or terminal lifecycle notification
//
// # Usage
//
//	ctrl := session.NewController(client)
//	events, err := ctrl.Send(ctx, session.Request{
//	    ServiceID: conv.ID,
//	    ClientID:  clientID,
//	    Query:     text,
//	})
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    // apply to the conversation via model.Reduce
//	}
package session
