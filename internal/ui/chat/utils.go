// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/mattn/go-runewidth"
)

// runeWidth returns the display cell width of a rune. Hangul and other wide
// runes occupy two cells.
func runeWidth(r rune) int {
	return runewidth.RuneWidth(r)
}

// truncateDisplay trims a string to a display width, appending an ellipsis
// when it was cut. Safe for multi-byte runes.
func truncateDisplay(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// padDisplay right-pads a string to a display width.
func padDisplay(s string, width int) string {
	return runewidth.FillRight(s, width)
}
