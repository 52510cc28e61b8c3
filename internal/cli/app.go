// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the line-oriented surfaces of relaychat-tui: the
// one-shot ask mode and the interactive REPL used on terminals that can't
// host the full TUI. Both drive the same session controller and reducer
// as the TUI, so streaming behavior is identical.
//
// USABILITY: Markdown rendering and input history for a usable fallback.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/config"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/session"
	"github.com/jeranaias/relaychat-tui/internal/storage"
	"github.com/jeranaias/relaychat-tui/internal/telemetry"
)

// App bundles the collaborators the CLI surfaces share.
type App struct {
	Config   *config.Config
	Client   *backend.Client
	Ctrl     *session.Controller
	Store    *storage.ConversationStore
	Sidebar  *storage.SidebarStore
	Usage    *telemetry.UsageStore // optional
	ClientID string
	Out      io.Writer
}

// Ask sends one message in the conversation, streams deltas to Out as
// they arrive, and returns the updated conversation. imageURL optionally
// attaches an image to the message. On clean close the final text is
// re-rendered as markdown when Out supports it.
func (a *App) Ask(ctx context.Context, conv *model.Conversation, text, imageURL string, renderMarkdown bool) (*model.Conversation, error) {
	if a.Ctrl.Streaming(conv.ID) {
		return conv, session.ErrConcurrentSend
	}

	// SIGINT aborts the stream instead of killing the process.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	first := len(conv.Messages) == 0
	editable := conv.IsEditable()
	msg := model.NewUserMessage(text)
	if imageURL != "" {
		msg = model.NewUserImageMessage(text, imageURL)
	}
	conv = model.Reduce(conv, model.UserMessageAppended{Message: msg})

	ch, err := a.Ctrl.Send(ctx, session.RequestFor(conv, a.ClientID, text, imageURL, a.Config.Search.Enabled, first, editable))
	if err != nil {
		return conv, err
	}

	open := false
	var sendErr error
	for ev := range ch {
		switch ev.Type {
		case session.EventDelta:
			if !open {
				conv = model.Reduce(conv, model.StreamDeltaFirst{Text: ev.Delta})
				open = true
			} else {
				conv = model.Reduce(conv, model.StreamDeltaNext{Text: ev.Cumulative})
			}
			fmt.Fprint(a.Out, ev.Delta)

		case session.EventClosed:
			conv = model.Reduce(conv, model.StreamClosed{})
			a.recordUsage(conv, "closed", ev.Stats)
			fmt.Fprintln(a.Out)
			if renderMarkdown {
				a.rerenderMarkdown(conv)
			}

		case session.EventAborted:
			conv = model.Reduce(conv, model.StreamAborted{})
			a.recordUsage(conv, "aborted", ev.Stats)
			fmt.Fprintln(a.Out, "\n[stopped]")

		case session.EventError:
			conv = model.Reduce(conv, model.StreamError{Message: sendErrorText(ev.Err)})
			a.recordUsage(conv, "error", ev.Stats)
			sendErr = ev.Err
			fmt.Fprintf(a.Out, "error: %s\n", sendErrorText(ev.Err))
		}
	}

	if err := a.Store.Save(conv); err != nil {
		return conv, err
	}
	a.Store.SaveSelected(conv.ID)
	return conv, sendErr
}

// rerenderMarkdown replaces the raw streamed text with a glamour
// rendering of the final assistant message.
func (a *App) rerenderMarkdown(conv *model.Conversation) {
	last := conv.LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return
	}
	if rendered, err := r.Render(last.Content.Text()); err == nil {
		fmt.Fprint(a.Out, rendered)
	}
}

func (a *App) recordUsage(conv *model.Conversation, status string, stats *session.Stats) {
	if a.Usage == nil || stats == nil {
		return
	}
	a.Usage.Record(telemetry.Usage{
		ConversationID: conv.ID,
		Model:          conv.Model.ID,
		Deltas:         stats.Deltas,
		Bytes:          stats.Bytes,
		TTFT:           stats.TTFT,
		Duration:       stats.Duration,
		Status:         status,
	})
}

func sendErrorText(err error) string {
	var chatErr *backend.ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}
	var syncErr *backend.ConfigSyncError
	if errors.As(err, &syncErr) {
		return syncErr.Body
	}
	if err != nil {
		return err.Error()
	}
	return "request failed"
}
