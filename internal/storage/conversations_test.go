// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/relaychat-tui/internal/model"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	store, err := NewConversationStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStoreWithDir() error = %v", err)
	}
	return store
}

func sampleConversation(name string) *model.Conversation {
	conv := model.NewConversation(name, model.DefaultModel)
	conv.Messages = []model.Message{
		model.NewUserMessage("what is the answer"),
		model.NewAssistantMessage("forty-two"),
	}
	return conv
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation("my chat")
	conv.MemoryType = model.MemorySummarizer
	conv.AllowedTools = []model.Tool{{Name: "search", Description: "web"}}

	if err := store.Save(conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Name != "my chat" {
		t.Errorf("Name = %q, want %q", loaded.Name, "my chat")
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(loaded.Messages))
	}
	if got := loaded.Messages[0].Content.Text(); got != "what is the answer" {
		t.Errorf("first message = %q", got)
	}
	if loaded.MemoryType != model.MemorySummarizer {
		t.Errorf("MemoryType = %q, want %q", loaded.MemoryType, model.MemorySummarizer)
	}
	if len(loaded.AllowedTools) != 1 || loaded.AllowedTools[0].Name != "search" {
		t.Errorf("AllowedTools = %+v", loaded.AllowedTools)
	}
}

func TestLoadMissingConversation(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Load() error = %v, want ErrConversationNotFound", err)
	}
}

func TestListMostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	older := sampleConversation("older")
	if err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	newer := sampleConversation("newer")
	if err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len(metas) = %d, want 2", len(metas))
	}
	if metas[0].Name != "newer" || metas[1].Name != "older" {
		t.Errorf("order = [%s, %s], want [newer, older]", metas[0].Name, metas[1].Name)
	}
	if metas[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", metas[0].MessageCount)
	}
	if metas[0].Preview != "what is the answer" {
		t.Errorf("Preview = %q", metas[0].Preview)
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("rocket science")
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}
	other := sampleConversation("cooking")
	other.Messages = []model.Message{model.NewUserMessage("how to bake bread")}
	if err := store.Save(other); err != nil {
		t.Fatal(err)
	}

	byName, err := store.Search("ROCKET")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(byName) != 1 || byName[0].ID != conv.ID {
		t.Errorf("Search by name = %+v", byName)
	}

	byText, err := store.Search("bread")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(byText) != 1 || byText[0].ID != other.ID {
		t.Errorf("Search by message text = %+v", byText)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	conv := sampleConversation("gone soon")
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Load() after delete error = %v, want ErrConversationNotFound", err)
	}
	if err := store.Delete(conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("second Delete() error = %v, want ErrConversationNotFound", err)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	store.Save(sampleConversation("a"))
	store.Save(sampleConversation("b"))
	store.SaveSelected("a")

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("len(metas) = %d after Clear, want 0", len(metas))
	}
	if store.Selected() != "" {
		t.Errorf("Selected() = %q after Clear, want empty", store.Selected())
	}
}

func TestSelectedMarker(t *testing.T) {
	store := newTestStore(t)
	if store.Selected() != "" {
		t.Errorf("Selected() = %q on fresh store", store.Selected())
	}
	if err := store.SaveSelected("conv-123"); err != nil {
		t.Fatalf("SaveSelected() error = %v", err)
	}
	if store.Selected() != "conv-123" {
		t.Errorf("Selected() = %q, want conv-123", store.Selected())
	}
}

func TestEnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.SetMaxConversations(2)

	for _, name := range []string{"one", "two", "three"} {
		if err := store.Save(sampleConversation(name)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len(metas) = %d, want 2 after pruning", len(metas))
	}
	for _, meta := range metas {
		if meta.Name == "one" {
			t.Error("oldest conversation survived pruning")
		}
	}
}

func TestSidebarStore(t *testing.T) {
	store, err := NewSidebarStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewSidebarStoreWithDir() error = %v", err)
	}

	folders, err := store.Folders()
	if err != nil || len(folders) != 0 {
		t.Fatalf("Folders() = %v, %v on fresh store", folders, err)
	}

	work := model.NewFolder("Work", model.FolderChat)
	play := model.NewFolder("Play", model.FolderChat)
	if err := store.SaveFolders([]model.Folder{work, play}); err != nil {
		t.Fatalf("SaveFolders() error = %v", err)
	}

	kept, err := store.DeleteFolder(work.ID)
	if err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	if len(kept) != 1 || kept[0].ID != play.ID {
		t.Errorf("kept folders = %+v", kept)
	}

	prompt := model.NewPrompt("greeting")
	prompt.Content = "Say hello in {{language}}"
	if err := store.SavePrompts([]model.Prompt{prompt}); err != nil {
		t.Fatalf("SavePrompts() error = %v", err)
	}
	prompts, err := store.Prompts()
	if err != nil {
		t.Fatalf("Prompts() error = %v", err)
	}
	if len(prompts) != 1 || prompts[0].Content != "Say hello in {{language}}" {
		t.Errorf("prompts = %+v", prompts)
	}
}
