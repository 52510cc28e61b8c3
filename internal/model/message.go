// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// CONTENT TYPE
// =============================================================================

// Content part type discriminators, matching the backend wire format.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image_url"
)

// ContentPart is one element of multimodal message content.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Content is message content in one of two wire shapes: a plain string, or
// an ordered list of parts (at most one text part and one image part). The
// zero value is empty plain text.
type Content struct {
	text  string
	parts []ContentPart
}

// TextContent returns plain string content.
func TextContent(s string) Content {
	return Content{text: s}
}

// MultimodalContent returns parts-shaped content holding text and,
// when imageURL is non-empty, an attached image.
func MultimodalContent(text, imageURL string) Content {
	parts := []ContentPart{{Type: ContentTypeText, Text: text}}
	if imageURL != "" {
		parts = append(parts, ContentPart{Type: ContentTypeImage, ImageURL: imageURL})
	}
	return Content{parts: parts}
}

// IsMultimodal reports whether the content uses the parts shape.
func (c Content) IsMultimodal() bool {
	return c.parts != nil
}

// Text returns the textual portion of the content: the string itself for
// plain content, or the text part for multimodal content.
func (c Content) Text() string {
	if c.parts == nil {
		return c.text
	}
	for _, p := range c.parts {
		if p.Type == ContentTypeText {
			return p.Text
		}
	}
	return ""
}

// ImageURL returns the attached image URL, or "" when there is none.
func (c Content) ImageURL() string {
	for _, p := range c.parts {
		if p.Type == ContentTypeImage {
			return p.ImageURL
		}
	}
	return ""
}

// MarshalJSON emits a bare string for plain content and an array of parts
// for multimodal content.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.parts == nil {
		return json.Marshal(c.text)
	}
	return json.Marshal(c.parts)
}

// UnmarshalJSON accepts either wire shape.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither string nor parts: %w", err)
	}
	*c = Content{parts: parts}
	return nil
}

func (c Content) clone() Content {
	if c.parts == nil {
		return c
	}
	parts := make([]ContentPart, len(c.parts))
	copy(parts, c.parts)
	return Content{parts: parts}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// NewUserMessage creates a user message with plain text content.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent(text)}
}

// NewUserImageMessage creates a user message carrying text plus an image.
func NewUserImageMessage(text, imageURL string) Message {
	return Message{Role: RoleUser, Content: MultimodalContent(text, imageURL)}
}

// NewAssistantMessage creates an assistant message with plain text content.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent(text)}
}
