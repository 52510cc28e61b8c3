// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relaychat-tui/internal/backend"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/session"
	"github.com/jeranaias/relaychat-tui/internal/telemetry"
)

// =============================================================================
// MESSAGES AND COMMANDS
// =============================================================================

// streamEventMsg wraps one event from the session channel; ok is false
// once the channel closes.
type streamEventMsg struct {
	ev session.Event
	ok bool
}

// flushTickMsg drives batched transcript redraws while streaming.
type flushTickMsg time.Time

func listenCmd(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return streamEventMsg{ev: ev, ok: ok}
	}
}

func flushTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return flushTickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancels.cancelActive()
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEsc:
			if m.streaming {
				m.cancels.cancelActive()
				return m, nil
			}

		case tea.KeyEnter:
			if !m.streaming {
				text := strings.TrimSpace(m.input.Value())
				if text != "" {
					m.input.Reset()
					return m, m.startSend(text)
				}
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.streaming {
			cmds = append(cmds, cmd)
		}

	case flushTickMsg:
		if m.streaming {
			if _, flushed := m.buffer.Flush(); flushed {
				m.refreshViewport(false)
			}
			cmds = append(cmds, flushTickCmd())
		}

	case streamEventMsg:
		return m.onStreamEvent(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// SEND LIFECYCLE
// =============================================================================

// startSend folds the user message into the conversation and launches the
// streaming send.
func (m *Model) startSend(text string) tea.Cmd {
	// The controller slot is authoritative; another surface may already be
	// streaming this conversation.
	if m.ctrl.Streaming(m.conv.ID) {
		return nil
	}

	first := len(m.conv.Messages) == 0
	editable := m.conv.IsEditable()

	m.conv = model.Reduce(m.conv, model.UserMessageAppended{Message: model.NewUserMessage(text)})

	req := session.RequestFor(m.conv, m.clientID, text, "", m.cfg.Search.Enabled, first, editable)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.ctrl.Send(ctx, req)
	if err != nil {
		cancel()
		m.err = err
		m.refreshViewport(true)
		return nil
	}

	m.cancels.set(cancel)
	m.events = ch
	m.streaming = true
	m.streamOpen = false
	m.err = nil
	m.buffer.Reset()
	m.refreshViewport(true)

	return tea.Batch(listenCmd(ch), flushTickCmd(), m.spin.Tick)
}

func (m *Model) onStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.streaming = false
		m.cancels.clear()
		m.buffer.ForceFlush()
		m.refreshViewport(true)
		return m, nil
	}

	ev := msg.ev
	switch ev.Type {
	case session.EventDelta:
		if !m.streamOpen {
			m.conv = model.Reduce(m.conv, model.StreamDeltaFirst{Text: ev.Delta})
			m.streamOpen = true
		} else {
			m.conv = model.Reduce(m.conv, model.StreamDeltaNext{Text: ev.Cumulative})
		}
		m.buffer.Write(ev.Delta)

	case session.EventClosed:
		m.conv = model.Reduce(m.conv, model.StreamClosed{})
		m.finishSend("closed", ev.Stats)

	case session.EventAborted:
		m.conv = model.Reduce(m.conv, model.StreamAborted{})
		m.finishSend("aborted", ev.Stats)

	case session.EventError:
		m.conv = model.Reduce(m.conv, model.StreamError{Message: errorText(ev.Err)})
		m.finishSend("error", ev.Stats)
	}

	if ev.Terminal() {
		m.refreshViewport(true)
	}
	return m, listenCmd(m.events)
}

// finishSend persists the conversation and records usage after a terminal
// event. The channel close that follows flips the streaming flag.
func (m *Model) finishSend(status string, stats *session.Stats) {
	m.lastStats = stats
	if err := m.store.Save(m.conv); err != nil {
		m.err = err
	}
	if m.usage != nil && stats != nil {
		m.usage.Record(telemetry.Usage{
			ConversationID: m.conv.ID,
			Model:          m.conv.Model.ID,
			Deltas:         stats.Deltas,
			Bytes:          stats.Bytes,
			TTFT:           stats.TTFT,
			Duration:       stats.Duration,
			Status:         status,
		})
	}
}

// errorText picks the user-facing text for a failed send.
func errorText(err error) string {
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

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 1
	inputHeight := 5
	statusHeight := 1
	vpHeight := height - headerHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(width - 4)

	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	); err == nil {
		m.renderer = r
	}

	m.refreshViewport(false)
}
