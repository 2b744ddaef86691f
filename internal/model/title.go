// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// TitleMaxRunes caps inferred conversation titles.
const TitleMaxRunes = 20

// InferTitle derives a conversation title from the first user message.
// The text is trimmed, newlines are collapsed, and the leading TitleMaxRunes
// runes are kept with an ellipsis marker when truncated. Applied exactly
// once, when the log is empty at submission time.
func InferTitle(firstUserText string) string {
	title := strings.TrimSpace(firstUserText)
	title = strings.ReplaceAll(title, "\r", "")
	title = strings.ReplaceAll(title, "\n", " ")
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) <= TitleMaxRunes {
		return title
	}
	return string(runes[:TitleMaxRunes]) + "…"
}
