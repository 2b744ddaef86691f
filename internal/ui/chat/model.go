// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/ecosort/bunri-tui/internal/session"
	"github.com/ecosort/bunri-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	orch  *session.Orchestrator

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown rendering for completed assistant replies. Rebuilt on resize
	// so the word wrap tracks the terminal width.
	markdown       *glamour.TermRenderer
	renderMarkdown bool
	showConfidence bool

	// Submission state mirrored from the orchestrator.
	busyState session.State

	// Pending image attachment for the next submission.
	pendingImage string

	// Conversation picker overlay
	showPicker   bool
	pickerCursor int
	pickerDelete int // index armed for delete confirmation, -1 when none

	// Destructive slash command armed for confirmation, "" when none.
	// Repeating the same command confirms; anything else disarms.
	armedCommand string

	// Help overlay
	showHelp bool

	// Transient status line
	status      string
	statusError bool
}

// Options configures the chat model from user preferences.
type Options struct {
	Markdown       bool
	ShowConfidence bool
}

// New creates a new chat model over an orchestrator.
func New(theme *styles.Theme, orch *session.Orchestrator, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "무엇을 버려야 하나요?"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{".", "..", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}

	return Model{
		theme:          theme,
		orch:           orch,
		viewport:       vp,
		input:          ti,
		spinner:        sp,
		renderMarkdown: opts.Markdown,
		showConfidence: opts.ShowConfidence,
		pickerDelete:   -1,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// streamingActive reports whether a submission is in flight.
func (m *Model) streamingActive() bool {
	return m.busyState != session.StateIdle
}

// resize recomputes component dimensions and rebuilds the markdown
// renderer for the new width.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	headerHeight := 1
	statusHeight := 1
	inputHeight := 2
	vpHeight := height - headerHeight - statusHeight - inputHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4

	m.markdown = nil
	if m.renderMarkdown {
		wrap := m.bubbleWidth()
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.markdown = r
		}
	}
	m.ready = true
	m.refreshTranscript(true)
}

// refreshTranscript re-renders the log into the viewport.
func (m *Model) refreshTranscript(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.orch.Messages()))
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}
