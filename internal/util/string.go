// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"github.com/mattn/go-runewidth"
)

// UNICODE: All truncation here counts runes or display cells, never bytes,
// so multi-byte UTF-8 characters are never split.

// EllipsizeRunes returns s unchanged when it holds at most maxRunes runes;
// otherwise it returns the first maxRunes runes followed by "...".
func EllipsizeRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateRunes truncates s to at most maxRunes runes without an ellipsis.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TruncateWidth truncates s to a maximum display width in terminal cells,
// accounting for double-width (CJK) characters.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to the given display width. Strings already
// wider than width are returned unchanged.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
