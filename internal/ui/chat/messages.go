// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ecosort/bunri-tui/internal/model"
	"github.com/ecosort/bunri-tui/internal/session"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// EventMsg wraps an orchestrator event for delivery through the Bubble Tea
// loop. main wires orchestrator.SetSink to program.Send with this wrapper.
type EventMsg struct {
	Event session.Event
}

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text    string
	IsError bool
}

// clearStatusMsg removes the transient status line.
type clearStatusMsg struct{}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// renderTranscript renders the full message log for the viewport.
func (m *Model) renderTranscript(messages []model.Message) string {
	if len(messages) == 0 {
		return m.renderWelcome()
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMessage renders one message as a labeled bubble.
func (m *Model) renderMessage(msg model.Message) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName()) +
		" " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch msg.Kind {
	case model.KindImagePreview:
		body := m.theme.UserBubble.Render("(이미지) " + filepath.Base(msg.PreviewPath))
		return label + "\n" + body

	case model.KindImageAnalysis:
		return label + "\n" + m.renderAnalysis(msg)

	default:
		return label + "\n" + m.renderText(msg)
	}
}

// renderAnalysis renders a classification result or failure.
func (m *Model) renderAnalysis(msg model.Message) string {
	if !msg.AnalysisOK() {
		return m.theme.ErrorBubble.Render(msg.ResultError)
	}

	r := msg.Result
	head := "분류 결과: " + r.MainClass
	// Confidence arrives as a percentage, 0 to 100.
	if m.showConfidence && r.Confidence > 0 {
		head += fmt.Sprintf(" (%.0f%%)", r.Confidence)
	}
	body := head
	if r.RecyclingInfo != "" {
		body += "\n" + r.RecyclingInfo
	}
	return m.theme.AnalysisBubble.Render(m.wrap(body, m.bubbleWidth()))
}

// renderText renders a plain chat message. Completed assistant replies go
// through the markdown renderer; in-flight ones render raw so partial
// markdown does not flicker.
func (m *Model) renderText(msg model.Message) string {
	content := msg.Content

	if msg.Role == model.RoleAssistant {
		if msg.IsEmpty() {
			return m.theme.ThinkingText.Render("답변을 기다리는 중" + m.spinner.View())
		}
		if m.markdown != nil && !m.streamingActive() {
			if rendered, err := m.markdown.Render(content); err == nil {
				content = strings.TrimRight(rendered, "\n")
				return m.theme.AssistantBubble.Render(content)
			}
		}
		return m.theme.AssistantBubble.Render(m.wrap(content, m.bubbleWidth()))
	}

	return m.theme.UserBubble.Render(m.wrap(content, m.bubbleWidth()))
}

// renderWelcome fills an empty conversation with usage hints.
func (m *Model) renderWelcome() string {
	lines := []string{
		m.theme.HeaderTitle.Render("분리수거 도우미"),
		"",
		m.theme.Muted.Render("무엇을 버려야 할지 물어보세요."),
		m.theme.Muted.Render("/attach <경로> 로 사진을 첨부하면 품목을 분류해 드립니다."),
		m.theme.Muted.Render("/help 로 전체 명령을 볼 수 있습니다."),
	}
	return "\n" + strings.Join(lines, "\n")
}

// bubbleWidth is the usable content width inside a message bubble.
func (m *Model) bubbleWidth() int {
	w := m.width - 12
	if w < 20 {
		w = 20
	}
	return w
}

// wrap soft-wraps text to the given display width, preserving existing
// newlines. Wide (CJK) runes count as two cells.
func (m *Model) wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

func wrapLine(line string, width int) string {
	var out strings.Builder
	col := 0
	for _, r := range line {
		rw := runeWidth(r)
		if col+rw > width {
			out.WriteRune('\n')
			col = 0
		}
		out.WriteRune(r)
		col += rw
	}
	return out.String()
}
