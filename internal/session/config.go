// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/model"
)

// ServiceConfigFor maps a conversation's settings onto the config-sync
// payload shape.
func ServiceConfigFor(c *model.Conversation) backend.ServiceConfig {
	return backend.ServiceConfig{
		Model:          c.Model.ID,
		EmbeddingModel: c.EmbeddingModel.ID,
		Prompt:         c.Prompt,
		Temperature:    c.Temperature,
		TopP:           c.TopP,
		MemoryType:     string(c.MemoryType),
		AllowedTools:   c.AllowedToolNames(),
	}
}

// RequestFor builds the send request for one user message in a
// conversation. firstMessage must reflect the state before the message
// was appended.
func RequestFor(c *model.Conversation, clientID, query, imageURL string, searchEnabled, firstMessage, editable bool) Request {
	return Request{
		ServiceID:     c.ID,
		ClientID:      clientID,
		Query:         query,
		ImageURL:      imageURL,
		SearchEnabled: searchEnabled,
		FirstMessage:  firstMessage,
		Editable:      editable,
		Shared:        c.Shared,
		Config:        ServiceConfigFor(c),
	}
}
