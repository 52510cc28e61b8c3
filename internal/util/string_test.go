// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

func TestEllipsizeRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than limit", "hello", 30, "hello"},
		{"exactly at limit", "abcde", 5, "abcde"},
		{"over limit", "abcdef", 5, "abcde..."},
		{"multibyte runes", "héllo wörld", 5, "héllo..."},
		{"zero limit", "abc", 0, ""},
		{"empty string", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EllipsizeRunes(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("EllipsizeRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo", 3); got != "hél" {
		t.Errorf("TruncateRunes = %q, want %q", got, "hél")
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("TruncateRunes = %q, want %q", got, "abc")
	}
}

func TestTruncateWidth(t *testing.T) {
	// CJK characters take two cells each.
	if got := TruncateWidth("日本語テスト", 6); got != "日..." {
		t.Errorf("TruncateWidth = %q, want %q", got, "日...")
	}
	if got := TruncateWidth("short", 20); got != "short" {
		t.Errorf("TruncateWidth = %q, want %q", got, "short")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/nested/out.json"

	if err := AtomicWriteFile(path, []byte(`{"ok":true}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	// Overwrite must replace the old content completely.
	if err := AtomicWriteFile(path, []byte(`{"ok":false}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error = %v", err)
	}
}
