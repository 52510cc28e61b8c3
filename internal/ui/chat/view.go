// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m *Model) headerView() string {
	name := m.conv.Name
	if name == "" {
		name = "New Conversation"
	}
	title := fmt.Sprintf("%s — %s", util.TruncateWidth(name, m.width/2), m.conv.Model.Name)
	return m.theme.Header.Render(title)
}

func (m *Model) statusView() string {
	var parts []string

	if m.streaming {
		parts = append(parts, m.spin.View()+"streaming (esc to stop)")
	} else {
		parts = append(parts, "enter to send • ctrl+c to quit")
	}

	if m.err != nil {
		parts = append(parts, m.theme.ErrorText.Render(util.TruncateWidth(m.err.Error(), m.width/2)))
	} else if m.cfg.UI.ShowStats && m.lastStats != nil {
		parts = append(parts, m.theme.Dim.Render(fmt.Sprintf(
			"%d deltas • ttft %dms • %.1fs",
			m.lastStats.Deltas,
			m.lastStats.TTFT.Milliseconds(),
			m.lastStats.Duration.Seconds(),
		)))
	}

	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

// refreshViewport rebuilds the transcript. Assistant markdown goes
// through glamour only when settled; the in-flight message renders plain
// so partial markup doesn't flicker.
func (m *Model) refreshViewport(scrollToBottom bool) {
	if !m.ready {
		return
	}

	var b strings.Builder
	last := len(m.conv.Messages) - 1
	for i := range m.conv.Messages {
		msg := &m.conv.Messages[i]
		inFlight := m.streaming && i == last && msg.Role == model.RoleAssistant
		b.WriteString(m.renderMessage(msg, inFlight))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	if scrollToBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessage(msg *model.Message, inFlight bool) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	}

	text := msg.Content.Text()
	if url := msg.Content.ImageURL(); url != "" {
		text += "\n" + m.theme.Dim.Render("[image: "+url+"]")
	}

	if msg.Role == model.RoleAssistant && !inFlight && m.renderer != nil {
		if rendered, err := m.renderer.Render(text); err == nil {
			return label + "\n" + strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	return label + "\n" + text + "\n"
}
