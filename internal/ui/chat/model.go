// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: a transcript viewport,
// an input textarea, and the streaming plumbing between them and the
// session controller. All conversation mutations go through model.Reduce;
// the view never edits messages directly.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relaychat-tui/internal/config"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/session"
	"github.com/jeranaias/relaychat-tui/internal/storage"
	"github.com/jeranaias/relaychat-tui/internal/telemetry"
	"github.com/jeranaias/relaychat-tui/internal/ui/styles"
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Collaborators
	cfg      *config.Config
	ctrl     *session.Controller
	store    *storage.ConversationStore
	usage    *telemetry.UsageStore // optional
	clientID string

	// State
	conv       *model.Conversation
	events     <-chan session.Event
	streaming  bool
	streamOpen bool // an assistant message has been opened for this send
	lastStats  *session.Stats
	err        error

	// Rendering
	theme    *styles.Theme
	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer
	buffer   *StreamingBuffer
	cancels  *cancelManager
	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates the chat view for a conversation. usage may be nil.
func New(cfg *config.Config, ctrl *session.Controller, store *storage.ConversationStore,
	usage *telemetry.UsageStore, clientID string, conv *model.Conversation) *Model {

	input := textarea.New()
	input.Placeholder = "Send a message..."
	input.Prompt = "┃ "
	input.CharLimit = conv.Model.MaxLength
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	theme := styles.NewTheme(cfg.UI.Theme)
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = theme.Spinner

	return &Model{
		cfg:      cfg,
		ctrl:     ctrl,
		store:    store,
		usage:    usage,
		clientID: clientID,
		conv:     conv,
		theme:    theme,
		input:    input,
		spin:     spin,
		buffer:   NewStreamingBuffer(),
		cancels:  &cancelManager{},
	}
}

// Conversation returns the current conversation state, for saving on
// exit.
func (m *Model) Conversation() *model.Conversation {
	return m.conv
}
