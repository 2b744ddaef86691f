// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the submission state machine of one chat session.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ecosort/bunri-tui/internal/history"
	"github.com/ecosort/bunri-tui/internal/index"
	"github.com/ecosort/bunri-tui/internal/model"
	"github.com/ecosort/bunri-tui/internal/storage"
)

// =============================================================================
// STATES AND EVENTS
// =============================================================================

// State is the submission state of the active conversation.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateAnalyzingImage runs the image classifier.
	StateAnalyzingImage
	// StateAwaitingFirstChunk has sent the question but received nothing yet.
	StateAwaitingFirstChunk
	// StateStreaming is appending chunks to the assistant placeholder.
	StateStreaming
)

// String returns a status label for the state.
func (s State) String() string {
	switch s {
	case StateAnalyzingImage:
		return "분석 중..."
	case StateAwaitingFirstChunk, StateStreaming:
		return "답변 중..."
	default:
		return ""
	}
}

// Event notifies the UI of a committed change. Events are delivered on the
// goroutine that produced them; the sink must be safe for that.
type Event any

// StateChangedEvent reports a submission state transition.
type StateChangedEvent struct {
	ConversationID string
	State          State
}

// LogChangedEvent reports that the active conversation's log mutated.
type LogChangedEvent struct {
	ConversationID string
}

// ConversationsChangedEvent reports an index mutation (create, rename,
// delete, selection).
type ConversationsChangedEvent struct{}

// StreamFailedEvent reports a chat exchange failure already folded into the
// log.
type StreamFailedEvent struct {
	ConversationID string
	Err            error
}

// =============================================================================
// COLLABORATOR PORTS
// =============================================================================

// ChatStreamer is the chat backend boundary.
type ChatStreamer interface {
	Stream(ctx context.Context, message, imageContext string, onChunk func(chunk string)) error
}

// Classifier is the image classification backend boundary.
type Classifier interface {
	Classify(ctx context.Context, path string) (*model.Classification, error)
}

// ConfirmFunc decides destructive operations. Injected so the core stays
// testable without a UI harness.
type ConfirmFunc func(prompt string) bool

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// ErrBusy is returned when a submission arrives while another is in flight.
var ErrBusy = errors.New("a submission is already in progress")

// AutoQuestion is sent when the user attached an image without typing a
// question and classification succeeded.
const AutoQuestion = "이 물건의 올바른 배출 방법을 알려주세요."

// Orchestrator composes the index, the active message log, and the backend
// clients into per-submission workflows.
//
// The mutex is the exclusion token for the one-exchange-per-log rule: Submit
// rejects deterministically with ErrBusy while a submission is in flight,
// instead of relying on advisory flags. In-flight work is cancelled when the
// active conversation changes, so a stream never outlives its selection.
type Orchestrator struct {
	mu sync.Mutex

	store      *storage.Store
	idx        *index.Index
	chat       ChatStreamer
	classifier Classifier
	confirm    ConfirmFunc
	emit       func(Event)

	state  State
	active model.Conversation
	log    *history.Log
	cancel context.CancelFunc
}

// New creates an orchestrator over an already loaded index. The index always
// holds at least one conversation after Load, which becomes active.
func New(store *storage.Store, idx *index.Index, chat ChatStreamer, classifier Classifier) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		idx:        idx,
		chat:       chat,
		classifier: classifier,
		confirm:    func(string) bool { return true },
		emit:       func(Event) {},
	}
	if conv, ok := idx.Active(); ok {
		o.active = conv
		o.log = history.Open(store, conv.StorageKey)
	} else {
		o.active = idx.Create()
		o.log = history.Open(store, o.active.StorageKey)
	}
	return o
}

// SetSink installs the event sink. Must be called before the first
// submission.
func (o *Orchestrator) SetSink(emit func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if emit != nil {
		o.emit = emit
	}
}

// SetConfirm installs the confirmation capability for destructive
// operations.
func (o *Orchestrator) SetConfirm(confirm ConfirmFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if confirm != nil {
		o.confirm = confirm
	}
}

// =============================================================================
// SNAPSHOTS FOR THE UI
// =============================================================================

// State returns the current submission state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Active returns the selected conversation descriptor.
func (o *Orchestrator) Active() model.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if conv, ok := o.idx.Active(); ok {
		return conv
	}
	return o.active
}

// Conversations lists the index newest-first.
func (o *Orchestrator) Conversations() []model.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.idx.List()
}

// Messages returns a copy of the active conversation's log.
func (o *Orchestrator) Messages() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.Messages()
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation creates and selects a fresh conversation, cancelling any
// in-flight work.
func (o *Orchestrator) NewConversation() model.Conversation {
	o.mu.Lock()
	o.cancelInflightLocked()
	conv := o.idx.Create()
	o.active = conv
	o.log = history.Open(o.store, conv.StorageKey)
	o.mu.Unlock()

	o.emit(ConversationsChangedEvent{})
	o.emit(LogChangedEvent{ConversationID: conv.ID})
	return conv
}

// SelectConversation switches the active conversation, cancelling any
// in-flight work tied to the previous selection.
func (o *Orchestrator) SelectConversation(id string) error {
	o.mu.Lock()
	if err := o.idx.Select(id); err != nil {
		o.mu.Unlock()
		return err
	}
	o.cancelInflightLocked()
	conv, _ := o.idx.Active()
	o.active = conv
	o.log = history.Open(o.store, conv.StorageKey)
	o.mu.Unlock()

	o.emit(ConversationsChangedEvent{})
	o.emit(LogChangedEvent{ConversationID: conv.ID})
	return nil
}

// RenameActive replaces the active conversation's title.
func (o *Orchestrator) RenameActive(title string) {
	o.mu.Lock()
	o.idx.Rename(o.active.ID, title)
	o.active.Title = title
	o.mu.Unlock()
	o.emit(ConversationsChangedEvent{})
}

// DeleteActive removes the active conversation and its log after
// confirmation. The next conversation becomes active; when none remains a
// fresh one is created so the user keeps an active context.
func (o *Orchestrator) DeleteActive() bool {
	o.mu.Lock()
	confirm := o.confirm
	id := o.active.ID
	o.mu.Unlock()

	if !confirm("현재 대화를 삭제할까요?") {
		return false
	}

	o.mu.Lock()
	o.cancelInflightLocked()
	o.idx.Delete(id)
	conv, ok := o.idx.Active()
	if !ok {
		conv = o.idx.Create()
	}
	o.active = conv
	o.log = history.Open(o.store, conv.StorageKey)
	o.mu.Unlock()

	o.emit(ConversationsChangedEvent{})
	o.emit(LogChangedEvent{ConversationID: conv.ID})
	return true
}

// DeleteAll wipes every conversation after confirmation and starts over with
// a single fresh one.
func (o *Orchestrator) DeleteAll() bool {
	o.mu.Lock()
	confirm := o.confirm
	o.mu.Unlock()

	if !confirm("모든 대화를 삭제할까요?") {
		return false
	}

	o.mu.Lock()
	o.cancelInflightLocked()
	o.idx.DeleteAll()
	conv := o.idx.Create()
	o.active = conv
	o.log = history.Open(o.store, conv.StorageKey)
	o.mu.Unlock()

	o.emit(ConversationsChangedEvent{})
	o.emit(LogChangedEvent{ConversationID: conv.ID})
	return true
}

// cancelInflightLocked aborts in-flight work for the previous selection.
// The submission goroutine observes the cancelled context between await
// points and finishes against its own captured log.
func (o *Orchestrator) cancelInflightLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = StateIdle
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit runs one user submission: optional image analysis, context
// resolution, then the streaming chat exchange. Returns ErrBusy while a
// previous submission is still in flight; returns nil immediately otherwise,
// with progress delivered through events.
func (o *Orchestrator) Submit(text, imagePath string) error {
	text = strings.TrimSpace(text)
	if text == "" && imagePath == "" {
		return nil
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	if imagePath != "" {
		o.state = StateAnalyzingImage
	} else {
		o.state = StateAwaitingFirstChunk
	}
	state := o.state
	lg := o.log
	conv := o.active
	wasEmpty := lg.Len() == 0
	o.mu.Unlock()

	o.emit(StateChangedEvent{ConversationID: conv.ID, State: state})
	go o.run(ctx, text, imagePath, lg, conv, wasEmpty)
	return nil
}

// run executes one submission to completion on its own goroutine. All log
// mutations take the orchestrator lock; network awaits do not.
func (o *Orchestrator) run(ctx context.Context, text, imagePath string, lg *history.Log, conv model.Conversation, wasEmpty bool) {
	explicit := o.analyzeImage(ctx, imagePath, lg, conv)
	if ctx.Err() != nil {
		return
	}

	finalQuestion := text
	if finalQuestion == "" {
		if explicit == "" {
			// Image failed and nothing was typed: nothing to ask.
			o.finish(ctx, conv.ID)
			return
		}
		finalQuestion = AutoQuestion
	}

	if wasEmpty {
		o.mu.Lock()
		o.idx.Rename(conv.ID, model.InferTitle(finalQuestion))
		if o.active.ID == conv.ID {
			o.active.Title = model.InferTitle(finalQuestion)
		}
		o.mu.Unlock()
		o.emit(ConversationsChangedEvent{})
	}

	o.mu.Lock()
	imageContext := model.ResolveContext(explicit, lg.Messages())
	lg.AppendPair(finalQuestion)
	o.state = StateAwaitingFirstChunk
	o.mu.Unlock()
	o.emit(StateChangedEvent{ConversationID: conv.ID, State: StateAwaitingFirstChunk})
	o.emit(LogChangedEvent{ConversationID: conv.ID})

	streamed := false
	err := o.chat.Stream(ctx, finalQuestion, imageContext, func(chunk string) {
		// A chunk can race the cancellation that ends this submission;
		// dropping it keeps the state machine owned by the new selection.
		if ctx.Err() != nil {
			return
		}
		o.mu.Lock()
		if !streamed {
			streamed = true
			o.state = StateStreaming
			o.mu.Unlock()
			// Waiting indicator clears on the first chunk even though the
			// exchange continues.
			o.emit(StateChangedEvent{ConversationID: conv.ID, State: StateStreaming})
			o.mu.Lock()
		}
		lg.AppendToLast(chunk)
		o.mu.Unlock()
		o.emit(LogChangedEvent{ConversationID: conv.ID})
	})

	if ctx.Err() != nil {
		o.markCancelled(lg, conv.ID, streamed)
		return
	}
	if err != nil {
		o.failStream(lg, conv, err, streamed)
	}
	o.finish(ctx, conv.ID)
}

// analyzeImage runs the classification leg. Failures become a visible
// analysis message and never abort the rest of the submission.
func (o *Orchestrator) analyzeImage(ctx context.Context, imagePath string, lg *history.Log, conv model.Conversation) string {
	if imagePath == "" {
		return ""
	}

	// The preview stays visible even when analysis fails. The image is
	// copied into the store so the handle outlives the source file.
	handle, err := o.store.ImportBlob(imagePath)
	if err != nil {
		log.Warn().Err(err).Str("path", imagePath).Msg("failed to stage image copy")
		handle = imagePath
	}
	o.appendMessage(lg, conv.ID, model.NewImagePreview(handle))

	result, err := o.classifier.Classify(ctx, imagePath)
	if ctx.Err() != nil {
		return ""
	}
	if err != nil {
		o.appendMessage(lg, conv.ID, model.NewAnalysisError("이미지 분석에 실패했습니다. ("+err.Error()+")"))
		return ""
	}
	o.appendMessage(lg, conv.ID, model.NewAnalysisResult(*result))
	return result.MainClass
}

// failStream folds a chat failure into the log. Chunks already shown are
// preserved and the error is appended as a suffix; a failure before the
// first chunk replaces the empty placeholder outright.
func (o *Orchestrator) failStream(lg *history.Log, conv model.Conversation, err error, streamed bool) {
	o.mu.Lock()
	lg.MutateLast(func(m model.Message) model.Message {
		if streamed && m.Content != "" {
			m.Content += "\n\n채팅 오류: " + err.Error()
		} else {
			m.Content = "채팅 오류: " + err.Error()
		}
		return m
	})
	o.mu.Unlock()
	o.emit(LogChangedEvent{ConversationID: conv.ID})
	o.emit(StreamFailedEvent{ConversationID: conv.ID, Err: err})
}

// markCancelled records an interrupted exchange on the submission's own log.
// The state was already reset by whoever cancelled the selection.
func (o *Orchestrator) markCancelled(lg *history.Log, convID string, streamed bool) {
	o.mu.Lock()
	lg.MutateLast(func(m model.Message) model.Message {
		if m.Kind != model.KindText || m.Role != model.RoleAssistant {
			return m
		}
		if streamed && m.Content != "" {
			m.Content += "\n\n(답변이 중단되었습니다.)"
		} else {
			m.Content = "(답변이 중단되었습니다.)"
		}
		return m
	})
	o.mu.Unlock()
	o.emit(LogChangedEvent{ConversationID: convID})
}

// finish returns the machine to idle after a submission completes. The
// context proves ownership: a cancelled submission lost the machine to a
// newer selection, whose state and cancel token must not be reset by the
// loser. The re-check happens under the lock because the cancellation can
// land after run's last ctx.Err() observation.
func (o *Orchestrator) finish(ctx context.Context, convID string) {
	o.mu.Lock()
	if ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.cancel = nil
	o.mu.Unlock()
	o.emit(StateChangedEvent{ConversationID: convID, State: StateIdle})
}

func (o *Orchestrator) appendMessage(lg *history.Log, convID string, msg model.Message) {
	o.mu.Lock()
	lg.Append(msg)
	o.mu.Unlock()
	o.emit(LogChangedEvent{ConversationID: convID})
}
