// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for relaychat-tui:
// conversations, sidebar folders, and prompt templates, all as JSON files
// under the application directory with atomic writes.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/util"
)

// DefaultMaxConversations caps how many conversations are kept; the
// oldest are pruned past the limit.
const DefaultMaxConversations = 200

const previewRuneLimit = 80

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationMeta contains metadata for listing conversations without
// loading full histories.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	FolderID     string    `json:"folder_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message, truncated
}

// ConversationStore persists conversations as one JSON file each under
// <baseDir>/conversations.
type ConversationStore struct {
	baseDir string
	maxConv int
}

// NewConversationStore creates a store under ~/.relaychat/conversations.
func NewConversationStore() (*ConversationStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewConversationStoreWithDir(filepath.Join(home, ".relaychat", "conversations"))
}

// NewConversationStoreWithDir creates a store at a specific directory,
// mainly for tests.
func NewConversationStoreWithDir(baseDir string) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ConversationStore{baseDir: baseDir, maxConv: DefaultMaxConversations}, nil
}

// SetMaxConversations overrides the pruning limit. Zero or negative
// disables pruning.
func (s *ConversationStore) SetMaxConversations(n int) {
	s.maxConv = n
}

// Save writes the conversation to disk, stamping UpdatedAt.
func (s *ConversationStore) Save(conv *model.Conversation) error {
	if conv.ID == "" {
		return &ConversationError{Message: "conversation has no id"}
	}
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.filePath(conv.ID), data, 0600); err != nil {
		return err
	}

	s.enforceLimit()
	return nil
}

// Load reads a conversation by ID.
func (s *ConversationStore) Load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns metadata for all conversations, most recently updated
// first. Unreadable files are skipped.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	metas := make([]ConversationMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, metaOf(conv))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search returns conversations whose name or message text contains the
// query, case-insensitively.
func (s *ConversationStore) Search(query string) ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)

	var metas []ConversationMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		if conversationMatches(conv, q) {
			metas = append(metas, metaOf(conv))
		}
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(id string) error {
	err := os.Remove(s.filePath(id))
	if os.IsNotExist(err) {
		return ErrConversationNotFound
	}
	return err
}

// Clear removes all conversations and the selection marker.
func (s *ConversationStore) Clear() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return err
		}
	}
	os.Remove(s.selectedPath())
	return nil
}

// =============================================================================
// SELECTION MARKER
// =============================================================================

// SaveSelected records which conversation is open, so the client resumes
// where it left off.
func (s *ConversationStore) SaveSelected(id string) error {
	return util.AtomicWriteFile(s.selectedPath(), []byte(id), 0600)
}

// Selected returns the recorded conversation ID, or "" when none is set.
func (s *ConversationStore) Selected() string {
	data, err := os.ReadFile(s.selectedPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *ConversationStore) filePath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *ConversationStore) selectedPath() string {
	return filepath.Join(s.baseDir, "selected")
}

// enforceLimit prunes the oldest conversations past the configured cap.
// Pruning failure is not fatal to the save that triggered it.
func (s *ConversationStore) enforceLimit() {
	if s.maxConv <= 0 {
		return
	}
	metas, err := s.List()
	if err != nil || len(metas) <= s.maxConv {
		return
	}
	for _, meta := range metas[s.maxConv:] {
		os.Remove(s.filePath(meta.ID))
	}
}

func metaOf(conv *model.Conversation) ConversationMeta {
	meta := ConversationMeta{
		ID:           conv.ID,
		Name:         conv.Name,
		Model:        conv.Model.ID,
		FolderID:     conv.FolderID,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: len(conv.Messages),
	}
	if um := conv.FirstUserMessage(); um != nil {
		meta.Preview = util.EllipsizeRunes(um.Content.Text(), previewRuneLimit)
	}
	return meta
}

func conversationMatches(conv *model.Conversation, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(conv.Name), lowerQuery) {
		return true
	}
	for i := range conv.Messages {
		if strings.Contains(strings.ToLower(conv.Messages[i].Content.Text()), lowerQuery) {
			return true
		}
	}
	return false
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation storage error.
type ConversationError struct {
	Message string
}

func (e *ConversationError) Error() string {
	return e.Message
}

// Is supports errors.Is comparison against ErrConversationNotFound.
func (e *ConversationError) Is(target error) bool {
	var convErr *ConversationError
	if errors.As(target, &convErr) {
		return e.Message == convErr.Message
	}
	return false
}
