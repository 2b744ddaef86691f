// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecosort/bunri-tui/internal/session"
)

// statusDuration is how long a transient status line stays visible.
const statusDuration = 4 * time.Second

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case StatusMsg:
		m.status = msg.Text
		m.statusError = msg.IsError
		return m, tea.Tick(statusDuration, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.status = ""
		m.statusError = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.streamingActive() {
			m.refreshTranscript(false)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleEvent folds an orchestrator event into the view.
func (m Model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case session.StateChangedEvent:
		m.busyState = ev.State
		m.refreshTranscript(true)
		return m, nil

	case session.LogChangedEvent:
		m.refreshTranscript(true)
		return m, nil

	case session.ConversationsChangedEvent:
		if m.pickerCursor >= len(m.orch.Conversations()) {
			m.pickerCursor = 0
		}
		m.refreshTranscript(true)
		return m, nil

	case session.StreamFailedEvent:
		return m, status("응답을 받지 못했습니다.", true)
	}
	return m, nil
}

// handleKey routes keyboard input depending on the active overlay.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showPicker {
		return m.handlePickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyCtrlN:
		m.orch.NewConversation()
		m.pendingImage = ""
		return m, nil
	case tea.KeyCtrlL:
		m.showPicker = true
		m.pickerCursor = m.activeIndex()
		m.pickerDelete = -1
		return m, nil
	case tea.KeyEsc:
		m.input.SetValue("")
		m.pendingImage = ""
		m.armedCommand = ""
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handlePickerKey drives the conversation picker overlay.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	convs := m.orch.Conversations()

	switch msg.String() {
	case "esc", "q", "ctrl+l":
		m.showPicker = false
		return m, nil
	case "up", "k":
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		m.pickerDelete = -1
		return m, nil
	case "down", "j":
		if m.pickerCursor < len(convs)-1 {
			m.pickerCursor++
		}
		m.pickerDelete = -1
		return m, nil
	case "enter":
		if m.pickerCursor < len(convs) {
			if err := m.orch.SelectConversation(convs[m.pickerCursor].ID); err != nil {
				return m, status("대화를 열 수 없습니다.", true)
			}
			m.pendingImage = ""
		}
		m.showPicker = false
		return m, nil
	case "n":
		m.orch.NewConversation()
		m.pendingImage = ""
		m.showPicker = false
		return m, nil
	case "d":
		// First press arms the delete, second press confirms.
		if m.pickerDelete != m.pickerCursor {
			m.pickerDelete = m.pickerCursor
			return m, nil
		}
		m.pickerDelete = -1
		if m.pickerCursor < len(convs) {
			if err := m.orch.SelectConversation(convs[m.pickerCursor].ID); err == nil {
				m.orch.DeleteActive()
			}
			if m.pickerCursor > 0 {
				m.pickerCursor--
			}
		}
		return m, nil
	}
	return m, nil
}

// submit parses the input line as either a slash command or a chat
// submission.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runCommand(text)
	}

	if text == "" && m.pendingImage == "" {
		return m, nil
	}

	m.armedCommand = ""
	err := m.orch.Submit(text, m.pendingImage)
	if errors.Is(err, session.ErrBusy) {
		return m, status("이전 요청이 진행 중입니다.", true)
	}
	m.input.SetValue("")
	m.pendingImage = ""
	return m, nil
}

// runCommand executes a slash command. Destructive commands must be entered
// twice in a row; any other input disarms the pending one.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if cmd != m.armedCommand {
		m.armedCommand = ""
	}

	switch cmd {
	case "/new":
		m.orch.NewConversation()
		m.pendingImage = ""
		return m, nil

	case "/list":
		m.showPicker = true
		m.pickerCursor = m.activeIndex()
		m.pickerDelete = -1
		return m, nil

	case "/attach":
		if arg == "" {
			return m, status("사용법: /attach <이미지 경로>", true)
		}
		if _, err := os.Stat(arg); err != nil {
			return m, status("파일을 찾을 수 없습니다: "+arg, true)
		}
		m.pendingImage = arg
		return m, status("이미지 첨부됨: "+arg, false)

	case "/rename":
		if arg == "" {
			return m, status("사용법: /rename <새 제목>", true)
		}
		m.orch.RenameActive(arg)
		return m, status("제목을 변경했습니다.", false)

	case "/delete":
		if m.armedCommand != "/delete" {
			m.armedCommand = "/delete"
			return m, status("다시 /delete 를 입력하면 현재 대화를 삭제합니다.", false)
		}
		m.armedCommand = ""
		if m.orch.DeleteActive() {
			m.pendingImage = ""
			return m, status("대화를 삭제했습니다.", false)
		}
		return m, nil

	case "/wipe":
		if m.armedCommand != "/wipe" {
			m.armedCommand = "/wipe"
			return m, status("다시 /wipe 를 입력하면 모든 대화를 삭제합니다.", false)
		}
		m.armedCommand = ""
		if m.orch.DeleteAll() {
			m.pendingImage = ""
			return m, status("모든 대화를 삭제했습니다.", false)
		}
		return m, nil

	case "/help":
		m.showHelp = true
		return m, nil

	case "/quit":
		return m, tea.Quit
	}

	return m, status("알 수 없는 명령: "+cmd, true)
}

// activeIndex finds the active conversation's position in the picker list.
func (m *Model) activeIndex() int {
	active := m.orch.Active()
	for i, c := range m.orch.Conversations() {
		if c.ID == active.ID {
			return i
		}
	}
	return 0
}

// status creates a command that shows a transient status line.
func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Text: text, IsError: isErr}
	}
}
