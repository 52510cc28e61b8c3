// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for relaychat-tui.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the chat view. It detects the
// terminal background unless the config forces a mode.
type Theme struct {
	IsDark bool

	// Transcript styles
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorText      lipgloss.Style
	Dim            lipgloss.Style

	// Chrome styles
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	InputBox  lipgloss.Style
	Spinner   lipgloss.Style
}

// NewTheme builds a theme for the given mode: "dark", "light", or "auto".
func NewTheme(mode string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}

	t := &Theme{IsDark: isDark}

	accent := lipgloss.Color("62")
	user := lipgloss.Color("39")
	assistant := lipgloss.Color("42")
	errc := lipgloss.Color("203")
	dim := lipgloss.Color("243")
	if !isDark {
		accent = lipgloss.Color("56")
		user = lipgloss.Color("26")
		assistant = lipgloss.Color("28")
		errc = lipgloss.Color("160")
		dim = lipgloss.Color("245")
	}

	t.UserLabel = lipgloss.NewStyle().Foreground(user).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(assistant).Bold(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(errc)
	t.Dim = lipgloss.NewStyle().Foreground(dim)

	t.Header = lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(dim).Padding(0, 1)
	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(accent)

	return t
}
