// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/config"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/session"
	"github.com/jeranaias/relaychat-tui/internal/storage"
)

// recordingBackend captures chat requests and answers each with a single
// canned record.
type recordingBackend struct {
	mu       sync.Mutex
	requests []backend.ChatRequest
	reply    string
}

func (b *recordingBackend) SyncService(ctx context.Context, serviceID, clientID string, cfg backend.ServiceConfig) error {
	return nil
}

func (b *recordingBackend) Chat(ctx context.Context, r backend.ChatRequest) (io.ReadCloser, error) {
	b.mu.Lock()
	b.requests = append(b.requests, r)
	b.mu.Unlock()
	return io.NopCloser(strings.NewReader(b.reply)), nil
}

func (b *recordingBackend) last(t *testing.T) backend.ChatRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		t.Fatal("no chat request was made")
	}
	return b.requests[len(b.requests)-1]
}

func newTestApp(t *testing.T) (*App, *recordingBackend, *bytes.Buffer) {
	t.Helper()

	store, err := storage.NewConversationStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sidebar, err := storage.NewSidebarStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	fake := &recordingBackend{reply: `data: {"content": "a reply"}`}
	var out bytes.Buffer
	app := &App{
		Config:   config.Default(),
		Ctrl:     session.NewController(fake),
		Store:    store,
		Sidebar:  sidebar,
		ClientID: "cli-test",
		Out:      &out,
	}
	return app, fake, &out
}

func TestAskSendsImageQuery(t *testing.T) {
	app, fake, _ := newTestApp(t)
	conv := model.NewConversation("New Conversation", model.DefaultModel)

	conv, err := app.Ask(context.Background(), conv, "what is this", "https://example.com/x.png", false)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	req := fake.last(t)
	if req.ImageURL != "https://example.com/x.png" {
		t.Errorf("ImageURL = %q", req.ImageURL)
	}
	if req.Query != "what is this" {
		t.Errorf("Query = %q", req.Query)
	}

	last := conv.LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		t.Fatal("expected a streamed assistant message")
	}
	if last.Content.Text() != "a reply" {
		t.Errorf("assistant text = %q", last.Content.Text())
	}
	if um := conv.FirstUserMessage(); um == nil || um.Content.ImageURL() != "https://example.com/x.png" {
		t.Error("user message lost its image attachment")
	}
}

func TestImageCommand(t *testing.T) {
	app, fake, _ := newTestApp(t)
	conv := model.NewConversation("New Conversation", model.DefaultModel)

	conv, done := app.command(context.Background(), conv, "/image https://example.com/p.png describe the scene")
	if done {
		t.Fatal("command() reported exit")
	}

	req := fake.last(t)
	if req.ImageURL != "https://example.com/p.png" {
		t.Errorf("ImageURL = %q", req.ImageURL)
	}
	if req.Query != "describe the scene" {
		t.Errorf("Query = %q", req.Query)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want user + assistant", len(conv.Messages))
	}
}

func TestImageCommandUsage(t *testing.T) {
	app, fake, out := newTestApp(t)
	conv := model.NewConversation("New Conversation", model.DefaultModel)

	app.command(context.Background(), conv, "/image https://example.com/p.png")

	if !strings.Contains(out.String(), "usage: /image") {
		t.Errorf("output = %q, want usage hint", out.String())
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.requests) != 0 {
		t.Error("a chat request was made for an incomplete /image command")
	}
}

func TestFolderCommands(t *testing.T) {
	app, _, out := newTestApp(t)
	conv := model.NewConversation("Budget review", model.DefaultModel)
	if err := app.Store.Save(conv); err != nil {
		t.Fatal(err)
	}

	app.command(context.Background(), conv, "/folder Work")
	if !strings.Contains(out.String(), `filed in "Work"`) {
		t.Errorf("output = %q", out.String())
	}
	if conv.FolderID == "" {
		t.Error("conversation was not assigned a folder")
	}

	folders, err := app.Sidebar.Folders()
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0].Name != "Work" || folders[0].Type != model.FolderChat {
		t.Errorf("folders = %+v", folders)
	}

	// Reusing the name files into the same folder instead of creating a
	// duplicate.
	other := model.NewConversation("Other", model.DefaultModel)
	app.Store.Save(other)
	app.command(context.Background(), other, "/folder work")
	if other.FolderID != conv.FolderID {
		t.Errorf("FolderID = %q, want %q", other.FolderID, conv.FolderID)
	}
	folders, _ = app.Sidebar.Folders()
	if len(folders) != 1 {
		t.Errorf("len(folders) = %d after reuse, want 1", len(folders))
	}

	out.Reset()
	app.command(context.Background(), conv, "/folders")
	if !strings.Contains(out.String(), "Work") {
		t.Errorf("/folders output = %q", out.String())
	}
}

func TestPromptCommands(t *testing.T) {
	app, _, out := newTestApp(t)
	conv := model.NewConversation("New Conversation", model.DefaultModel)
	if err := app.Store.Save(conv); err != nil {
		t.Fatal(err)
	}

	app.command(context.Background(), conv, "/prompt-save reviewer You are a strict code reviewer.")
	if !strings.Contains(out.String(), `saved template "reviewer"`) {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	app.command(context.Background(), conv, "/prompts")
	if !strings.Contains(out.String(), "reviewer") || !strings.Contains(out.String(), "strict code reviewer") {
		t.Errorf("/prompts output = %q", out.String())
	}

	app.command(context.Background(), conv, "/prompt reviewer")
	if conv.Prompt != "You are a strict code reviewer." {
		t.Errorf("Prompt = %q", conv.Prompt)
	}

	// Saving the same name again replaces the content.
	app.command(context.Background(), conv, "/prompt-save reviewer Be gentle.")
	prompts, err := app.Sidebar.Prompts()
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 1 || prompts[0].Content != "Be gentle." {
		t.Errorf("prompts = %+v", prompts)
	}
}

func TestPromptRequiresEditableConversation(t *testing.T) {
	app, _, out := newTestApp(t)
	conv := model.NewConversation("New Conversation", model.DefaultModel)
	conv = model.Reduce(conv, model.UserMessageAppended{Message: model.NewUserMessage("hi")})

	app.command(context.Background(), conv, "/prompt-save greet Hello.")
	out.Reset()
	app.command(context.Background(), conv, "/prompt greet")

	if conv.Prompt != "" {
		t.Errorf("Prompt = %q, want unchanged", conv.Prompt)
	}
	if !strings.Contains(out.String(), "already has messages") {
		t.Errorf("output = %q, want editability warning", out.String())
	}
}
