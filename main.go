// relaychat TUI - A terminal client for the relay chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/cli"
	"github.com/jeranaias/relaychat-tui/internal/config"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/session"
	"github.com/jeranaias/relaychat-tui/internal/storage"
	"github.com/jeranaias/relaychat-tui/internal/telemetry"
	"github.com/jeranaias/relaychat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		askText  = flag.String("ask", "", "send one message and exit")
		imageURL = flag.String("image", "", "attach an image URL to the -ask message")
		plain    = flag.Bool("plain", false, "use the line-oriented REPL instead of the TUI")
		host     = flag.String("host", "", "relay backend host (overrides config)")
		newConv  = flag.Bool("new", false, "start a new conversation")
		version  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("relaychat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if *host != "" {
		cfg.Backend.Host = *host
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	clientID, err := config.EnsureClientID()
	if err != nil {
		fatal(err)
	}

	store, err := storage.NewConversationStore()
	if err != nil {
		fatal(err)
	}
	store.SetMaxConversations(cfg.Storage.MaxConversations)

	sidebar, err := storage.NewSidebarStore()
	if err != nil {
		fatal(err)
	}

	usage, err := telemetry.OpenUsageStore()
	if err != nil {
		// Usage recording is best-effort; the client works without it.
		usage = nil
	} else {
		defer usage.Close()
	}

	client := backend.NewClient(cfg.Backend.Host,
		backend.WithProvider(backend.Provider(cfg.Backend.APIType)),
		backend.WithAPIKey(cfg.Backend.APIKey),
		backend.WithOrganization(cfg.Backend.Organization),
		backend.WithGoogleSearch(cfg.Search.GoogleAPIKey, cfg.Search.GoogleCSEID),
		backend.WithIdleTimeout(time.Duration(cfg.Backend.IdleTimeoutSecs)*time.Second),
		backend.WithRateLimit(rate.NewLimiter(rate.Every(time.Second), 2)),
	)
	ctrl := session.NewController(client)

	conv := resumeConversation(store, *newConv)

	// Hot-reload the backend key and search settings while running.
	if path, err := config.ConfigPathTOML(); err == nil {
		watcher, err := config.WatchConfig(path, func(next *config.Config) {
			config.SetGlobal(next)
			client.Reconfigure(
				backend.WithProvider(backend.Provider(next.Backend.APIType)),
				backend.WithAPIKey(next.Backend.APIKey),
				backend.WithOrganization(next.Backend.Organization),
				backend.WithGoogleSearch(next.Search.GoogleAPIKey, next.Search.GoogleCSEID),
				backend.WithIdleTimeout(time.Duration(next.Backend.IdleTimeoutSecs)*time.Second),
			)
		})
		if err == nil {
			defer watcher.Close()
		}
	}

	app := &cli.App{
		Config:   cfg,
		Client:   client,
		Ctrl:     ctrl,
		Store:    store,
		Sidebar:  sidebar,
		Usage:    usage,
		ClientID: clientID,
		Out:      os.Stdout,
	}

	switch {
	case *askText != "":
		interactive := term.IsTerminal(int(os.Stdout.Fd()))
		if _, err := app.Ask(context.Background(), conv, *askText, *imageURL, interactive); err != nil {
			fatal(err)
		}

	case *plain || cfg.UI.Plain || !term.IsTerminal(int(os.Stdout.Fd())):
		if err := app.REPL(context.Background(), conv); err != nil {
			fatal(err)
		}

	default:
		view := chat.New(cfg, ctrl, store, usage, clientID, conv)
		p := tea.NewProgram(view, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fatal(err)
		}
		store.Save(view.Conversation())
		store.SaveSelected(view.Conversation().ID)
	}
}

// resumeConversation reopens the last selected conversation, or starts a
// fresh one.
func resumeConversation(store *storage.ConversationStore, forceNew bool) *model.Conversation {
	if !forceNew {
		if id := store.Selected(); id != "" {
			if conv, err := store.Load(id); err == nil {
				return conv
			}
		}
	}
	return model.NewConversation("New Conversation", model.DefaultModel)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "relaychat: %v\n", err)
	os.Exit(1)
}
