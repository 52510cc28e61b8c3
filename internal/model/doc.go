// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types for chat conversations against
// the relay backend, plus the pure reducer that folds streaming events into
// conversation state. Nothing here performs I/O; transport lives in
// internal/backend and internal/session, persistence in internal/storage.
//
// # Key Types
//
//   - Conversation: Chat session with messages and service configuration
//   - Message: Single message with role and plain or multimodal content
//   - Content: String-or-parts union matching the backend wire shape
//   - ModelInfo: Chat/embedding model identity and limits
//   - Event / Reduce: Streaming events and the pure state transition
//
// # Usage
//
// Create a conversation and fold stream events into it:
//
//	conv := model.NewConversation("New Conversation", model.DefaultModel)
//	conv = model.Reduce(conv, model.UserMessageAppended{Message: model.NewUserMessage("Hello!")})
//	conv = model.Reduce(conv, model.StreamDeltaFirst{Text: "Hi"})
//	conv = model.Reduce(conv, model.StreamDeltaNext{Text: "Hi there"})
//	conv = model.Reduce(conv, model.StreamClosed{})
package model
