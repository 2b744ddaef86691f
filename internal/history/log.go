// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history owns the ordered message log of one conversation.
package history

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ecosort/bunri-tui/internal/model"
	"github.com/ecosort/bunri-tui/internal/storage"
)

// Log is the message history of exactly one conversation, bound to its
// storage key. Ordering is append order; the log is never reordered, and
// only the tail element is ever mutated.
//
// Every mutation persists the whole log synchronously. Persistence failures
// are logged and swallowed: the in-memory log stays authoritative for the
// session, matching how a browser client keeps working when localStorage is
// full.
type Log struct {
	store    *storage.Store
	key      string
	messages []model.Message
}

// Open loads the log stored under key. An absent or corrupt record yields an
// empty log, never an error.
func Open(store *storage.Store, key string) *Log {
	l := &Log{store: store, key: key}
	if err := store.Read(key, &l.messages); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("message log unreadable, starting empty")
		}
		l.messages = nil
	}
	return l
}

// Key returns the storage key the log persists under.
func (l *Log) Key() string {
	return l.key
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the log for display.
func (l *Log) Messages() []model.Message {
	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Last returns the tail message, or nil for an empty log.
func (l *Log) Last() *model.Message {
	if len(l.messages) == 0 {
		return nil
	}
	return &l.messages[len(l.messages)-1]
}

// Append adds a message to the end and persists.
func (l *Log) Append(msg model.Message) {
	l.messages = append(l.messages, msg)
	l.persist()
}

// AppendPair appends the user's text message immediately followed by the
// empty assistant placeholder that will receive streamed chunks.
func (l *Log) AppendPair(userText string) {
	l.messages = append(l.messages, model.NewUserMessage(userText), model.NewAssistantPlaceholder())
	l.persist()
}

// MutateLast replaces the tail message with fn(tail) and persists. Used to
// grow the streaming placeholder or overwrite it with an error; applying it
// only to the tail preserves the single-mutable-tail invariant. A no-op on
// an empty log.
func (l *Log) MutateLast(fn func(model.Message) model.Message) {
	if len(l.messages) == 0 {
		return
	}
	l.messages[len(l.messages)-1] = fn(l.messages[len(l.messages)-1])
	l.persist()
}

// AppendToLast grows the tail message's content by chunk.
func (l *Log) AppendToLast(chunk string) {
	l.MutateLast(func(m model.Message) model.Message {
		m.Content += chunk
		return m
	})
}

func (l *Log) persist() {
	if err := l.store.Write(l.key, l.messages); err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("failed to persist message log")
	}
}
