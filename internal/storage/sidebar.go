// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/util"
)

// SidebarStore persists folders and prompt templates, each as a single
// JSON list file under the application directory.
type SidebarStore struct {
	baseDir string
}

// NewSidebarStore creates a store under ~/.relaychat.
func NewSidebarStore() (*SidebarStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSidebarStoreWithDir(filepath.Join(home, ".relaychat"))
}

// NewSidebarStoreWithDir creates a store at a specific directory, mainly
// for tests.
func NewSidebarStoreWithDir(baseDir string) (*SidebarStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &SidebarStore{baseDir: baseDir}, nil
}

// =============================================================================
// FOLDERS
// =============================================================================

// Folders returns all folders. A missing file is an empty list.
func (s *SidebarStore) Folders() ([]model.Folder, error) {
	var folders []model.Folder
	if err := s.readList("folders.json", &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// SaveFolders replaces the folder list.
func (s *SidebarStore) SaveFolders(folders []model.Folder) error {
	return s.writeList("folders.json", folders)
}

// DeleteFolder removes a folder by ID and returns the updated list.
// Conversations and prompts keep their folder_id; callers detach them.
func (s *SidebarStore) DeleteFolder(id string) ([]model.Folder, error) {
	folders, err := s.Folders()
	if err != nil {
		return nil, err
	}
	kept := folders[:0]
	for _, f := range folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	if err := s.SaveFolders(kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// =============================================================================
// PROMPTS
// =============================================================================

// Prompts returns all prompt templates. A missing file is an empty list.
func (s *SidebarStore) Prompts() ([]model.Prompt, error) {
	var prompts []model.Prompt
	if err := s.readList("prompts.json", &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// SavePrompts replaces the prompt template list.
func (s *SidebarStore) SavePrompts(prompts []model.Prompt) error {
	return s.writeList("prompts.json", prompts)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *SidebarStore) readList(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *SidebarStore) writeList(name string, list any) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(s.baseDir, name), data, 0600)
}
