// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Default sampling parameters applied to new conversations.
const (
	DefaultTemperature = 1.0
	DefaultTopP        = 1.0
)

// =============================================================================
// MODEL INFO
// =============================================================================

// ModelInfo identifies a chat or embedding model exposed by the relay
// backend, with its input and context limits.
type ModelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MaxLength  int    `json:"max_length"`  // Max user input length in characters
	TokenLimit int    `json:"token_limit"` // Context window in tokens
}

// DefaultModel is used when the backend does not advertise models.
var DefaultModel = ModelInfo{
	ID:         "gpt-4o",
	Name:       "GPT-4o",
	MaxLength:  24000,
	TokenLimit: 8000,
}

// DefaultEmbeddingModel pairs with DefaultModel for document retrieval.
var DefaultEmbeddingModel = ModelInfo{
	ID:   "text-embedding-3-small",
	Name: "Text Embedding 3 Small",
}

// =============================================================================
// MEMORY TYPE
// =============================================================================

// MemoryType selects how the backend retains conversation context between
// turns.
type MemoryType string

const (
	MemoryNone         MemoryType = "NO-MEMORY"
	MemoryBufferWindow MemoryType = "BUFFER-WINDOW"
	MemorySummarizer   MemoryType = "SUMMARIZER"
)

// Valid reports whether m is one of the recognized memory types.
func (m MemoryType) Valid() bool {
	switch m {
	case MemoryNone, MemoryBufferWindow, MemorySummarizer:
		return true
	}
	return false
}

// =============================================================================
// TOOL TYPE
// =============================================================================

// Tool describes a backend tool a conversation may invoke.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat session with its history and the service
// configuration synced to the backend on the first message.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []Message `json:"messages"`

	// Service configuration
	Model          ModelInfo  `json:"model"`
	EmbeddingModel ModelInfo  `json:"embedding_model"`
	Prompt         string     `json:"prompt"`
	Temperature    float64    `json:"temperature"`
	TopP           float64    `json:"top_p"`
	MemoryType     MemoryType `json:"memory_type"`
	AllowedTools   []Tool     `json:"allowed_tools,omitempty"`

	// Attachments and organization
	Files    []string `json:"files,omitempty"`
	FolderID string   `json:"folder_id,omitempty"`
	Shared   bool     `json:"shared,omitempty"`
}

// NewConversation creates a conversation with a generated ID and default
// sampling parameters.
func NewConversation(name string, m ModelInfo) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:             uuid.NewString(),
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
		Messages:       make([]Message, 0),
		Model:          m,
		EmbeddingModel: DefaultEmbeddingModel,
		Temperature:    DefaultTemperature,
		TopP:           DefaultTopP,
		MemoryType:     MemoryBufferWindow,
	}
}

// IsEditable reports whether the conversation's service configuration may
// still be changed: nothing has been sent, no documents are attached, and
// the conversation is not shared.
func (c *Conversation) IsEditable() bool {
	return len(c.Messages) == 0 && len(c.Files) == 0 && !c.Shared
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// FirstUserMessage returns the earliest user message, or nil.
func (c *Conversation) FirstUserMessage() *Message {
	for i := range c.Messages {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// AllowedToolNames returns the names of the allowed tools, in order.
func (c *Conversation) AllowedToolNames() []string {
	if len(c.AllowedTools) == 0 {
		return nil
	}
	names := make([]string, len(c.AllowedTools))
	for i, t := range c.AllowedTools {
		names[i] = t.Name
	}
	return names
}

// Clone returns a deep copy. Reducer transitions operate on clones so the
// input conversation is never mutated.
func (c *Conversation) Clone() *Conversation {
	next := *c
	next.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.Content = m.Content.clone()
		next.Messages[i] = m
	}
	if c.AllowedTools != nil {
		next.AllowedTools = make([]Tool, len(c.AllowedTools))
		copy(next.AllowedTools, c.AllowedTools)
	}
	if c.Files != nil {
		next.Files = make([]string, len(c.Files))
		copy(next.Files, c.Files)
	}
	return &next
}

// =============================================================================
// SIDEBAR TYPES
// =============================================================================

// FolderType distinguishes what a folder organizes.
type FolderType string

const (
	FolderChat   FolderType = "chat"
	FolderPrompt FolderType = "prompt"
)

// Folder groups conversations or prompt templates in the sidebar.
type Folder struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type FolderType `json:"type"`
}

// NewFolder creates a folder with a generated ID.
func NewFolder(name string, t FolderType) Folder {
	return Folder{ID: uuid.NewString(), Name: name, Type: t}
}

// Prompt is a reusable prompt template.
type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
	FolderID    string `json:"folder_id,omitempty"`
}

// NewPrompt creates a prompt template with a generated ID.
func NewPrompt(name string) Prompt {
	return Prompt{ID: uuid.NewString(), Name: name}
}
