// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestTruncateDisplay(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"ascii cut", "hello world", 8, "hello w…"},
		{"zero width", "hello", 0, ""},
		{"korean fits", "분리수거", 8, "분리수거"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateDisplay(tt.in, tt.width); got != tt.want {
				t.Errorf("truncateDisplay(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestTruncateDisplayCountsWideRunes(t *testing.T) {
	// Hangul syllables are two cells wide; four of them need eight cells.
	got := truncateDisplay("분리수거함", 8)
	if got == "분리수거함" {
		t.Error("five wide runes cannot fit in eight cells")
	}
}

func TestWrapLineWideRunes(t *testing.T) {
	// Each rune is two cells; width 6 fits three runes per line.
	got := wrapLine("가나다라마", 6)
	want := "가나다\n라마"
	if got != want {
		t.Errorf("wrapLine = %q, want %q", got, want)
	}
}

func TestWrapLineAscii(t *testing.T) {
	got := wrapLine("abcdef", 3)
	if got != "abc\ndef" {
		t.Errorf("wrapLine = %q", got)
	}
}

func TestPadDisplay(t *testing.T) {
	if got := padDisplay("ab", 5); got != "ab   " {
		t.Errorf("padDisplay = %q", got)
	}
}
