// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "로딩 중..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	screen := strings.Join(sections, "\n")

	if m.showPicker {
		return m.renderPicker()
	}
	return screen
}

// renderHeader shows the app name and the active conversation title.
func (m Model) renderHeader() string {
	title := m.orch.Active().Title
	left := m.theme.Header.Render("bunri")
	right := m.theme.HeaderTitle.Render(truncateDisplay(title, m.width-20))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderInput shows the prompt line with any pending attachment badge.
func (m Model) renderInput() string {
	line := m.input.View()
	if m.pendingImage != "" {
		badge := m.theme.AttachmentBadge.Render("[" + filepath.Base(m.pendingImage) + "]")
		line = badge + " " + line
	}
	return m.theme.InputContainer.Width(m.width).Render(line)
}

// renderStatusBar shows either the transient status, the busy indicator, or
// the shortcut hints.
func (m Model) renderStatusBar() string {
	var content string
	switch {
	case m.status != "":
		if m.statusError {
			content = m.theme.ErrorText.Render(m.status)
		} else {
			content = m.theme.SuccessText.Render(m.status)
		}
	case m.streamingActive():
		content = m.theme.StatusBusy.Render(m.busyState.String()) + " " + m.spinner.View()
	default:
		content = m.theme.ShortcutKey.Render("Enter") + m.theme.ShortcutDesc.Render(" 전송  ") +
			m.theme.ShortcutKey.Render("Ctrl+N") + m.theme.ShortcutDesc.Render(" 새 대화  ") +
			m.theme.ShortcutKey.Render("Ctrl+L") + m.theme.ShortcutDesc.Render(" 목록  ") +
			m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render(" 도움말")
	}
	return m.theme.StatusBar.Width(m.width).Render(content)
}

// renderPicker draws the conversation list overlay.
func (m Model) renderPicker() string {
	convs := m.orch.Conversations()
	active := m.orch.Active()

	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("대화 목록"))
	b.WriteString("\n\n")
	for i, c := range convs {
		marker := "  "
		if c.ID == active.ID {
			marker = "* "
		}
		line := marker + truncateDisplay(c.Title, m.width-30)
		meta := c.CreatedAt.Format("01-02 15:04")
		if i == m.pickerDelete {
			line += "  " + m.theme.ErrorText.Render("삭제하려면 d를 한 번 더")
		}
		row := fmt.Sprintf("%s  %s", line, m.theme.PickerMeta.Render(meta))
		if i == m.pickerCursor {
			b.WriteString(m.theme.PickerItemSelected.Render(row))
		} else {
			b.WriteString(m.theme.PickerItem.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("enter 선택  n 새 대화  d 삭제  esc 닫기"))

	box := m.theme.PickerBox.Width(minInt(m.width-4, 72)).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderHelp draws the command reference overlay.
func (m Model) renderHelp() string {
	rows := [][2]string{
		{"/attach <경로>", "이미지 첨부 (다음 전송 시 분류)"},
		{"/new", "새 대화 시작"},
		{"/list", "대화 목록 열기"},
		{"/rename <제목>", "현재 대화 제목 변경"},
		{"/delete", "현재 대화 삭제 (두 번 입력)"},
		{"/wipe", "모든 대화 삭제 (두 번 입력)"},
		{"/quit", "종료"},
		{"Ctrl+N", "새 대화"},
		{"Ctrl+L", "대화 목록"},
		{"Esc", "입력/첨부 초기화"},
	}

	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("도움말"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(m.theme.ShortcutKey.Render(padDisplay(r[0], 18)))
		b.WriteString(m.theme.ShortcutDesc.Render(r[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("아무 키나 누르면 닫힙니다."))

	box := m.theme.PickerBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
