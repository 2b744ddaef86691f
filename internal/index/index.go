// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index manages the ordered list of conversation descriptors.
package index

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ecosort/bunri-tui/internal/model"
	"github.com/ecosort/bunri-tui/internal/storage"
)

// IndexKey is the storage key of the conversation index record.
const IndexKey = "conversations"

// LegacyKey is the storage key written by the pre-index format, which held a
// single implicit conversation's messages.
const LegacyKey = "chat_history"

// ErrNotFound is returned when no conversation has the requested ID.
var ErrNotFound = errors.New("conversation not found")

// Index is the newest-first list of conversations plus the active selection.
// It is the source of truth for which message logs exist: every descriptor
// owns exactly one log record, addressed by its storage key, and deleting a
// descriptor deletes the log with it.
//
// All mutating operations persist the full index synchronously afterward;
// persistence failures are logged and swallowed.
type Index struct {
	store    *storage.Store
	convs    []model.Conversation
	activeID string
}

// Load reads the index from durable storage. A missing or unparsable record
// falls back to a single freshly created conversation so the user always has
// an active context. The legacy single-conversation format is migrated
// before the first read.
func Load(store *storage.Store) *Index {
	idx := &Index{store: store}
	idx.migrateLegacy()

	if err := store.Read(IndexKey, &idx.convs); err != nil || len(idx.convs) == 0 {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("conversation index unreadable, starting fresh")
		}
		idx.convs = nil
		idx.Create()
		return idx
	}

	idx.activeID = idx.convs[0].ID
	return idx
}

// migrateLegacy converts a bare chat_history record into exactly one indexed
// conversation. Runs at most once: the legacy record is removed afterward.
func (idx *Index) migrateLegacy() {
	if idx.store.Exists(IndexKey) || !idx.store.Exists(LegacyKey) {
		return
	}

	var msgs []model.Message
	if err := idx.store.Read(LegacyKey, &msgs); err != nil {
		log.Warn().Err(err).Msg("legacy chat history unreadable, discarding")
		idx.store.Delete(LegacyKey)
		return
	}

	conv := model.NewConversation()
	for _, m := range msgs {
		if m.Kind == model.KindText && m.Role == model.RoleUser {
			conv.Title = model.InferTitle(m.Content)
			break
		}
	}
	if err := idx.store.Write(conv.StorageKey, msgs); err != nil {
		log.Warn().Err(err).Msg("failed to migrate legacy chat history")
		return
	}
	if err := idx.store.Write(IndexKey, []model.Conversation{conv}); err != nil {
		log.Warn().Err(err).Msg("failed to write migrated index")
		idx.store.Delete(conv.StorageKey)
		return
	}
	idx.store.Delete(LegacyKey)
	log.Info().Str("id", conv.ID).Msg("migrated legacy chat history")
}

// Create inserts a fresh conversation at the front of the index, selects it,
// and persists.
func (idx *Index) Create() model.Conversation {
	conv := model.NewConversation()
	idx.convs = append([]model.Conversation{conv}, idx.convs...)
	idx.activeID = conv.ID
	idx.persist()
	return conv
}

// List returns the conversations newest-first.
func (idx *Index) List() []model.Conversation {
	out := make([]model.Conversation, len(idx.convs))
	copy(out, idx.convs)
	return out
}

// Len returns the number of conversations.
func (idx *Index) Len() int {
	return len(idx.convs)
}

// Select marks a conversation active. Pure selection, no mutation of the
// persisted index.
func (idx *Index) Select(id string) error {
	for _, c := range idx.convs {
		if c.ID == id {
			idx.activeID = id
			return nil
		}
	}
	return ErrNotFound
}

// Active returns the selected conversation.
func (idx *Index) Active() (model.Conversation, bool) {
	for _, c := range idx.convs {
		if c.ID == idx.activeID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// Rename replaces a conversation's title and persists.
func (idx *Index) Rename(id, title string) error {
	for i := range idx.convs {
		if idx.convs[i].ID == id {
			idx.convs[i].Title = title
			idx.persist()
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the descriptor and, as a side effect, its message log and
// any image blobs the log references. If the deleted conversation was
// active, the one that followed it in the list (or none) becomes active.
func (idx *Index) Delete(id string) error {
	for i, c := range idx.convs {
		if c.ID != id {
			continue
		}
		idx.deleteLog(c.StorageKey)
		idx.convs = append(idx.convs[:i], idx.convs[i+1:]...)
		if idx.activeID == id {
			idx.activeID = ""
			if len(idx.convs) > 0 {
				// The conversation that followed the deleted one takes over;
				// deleting the oldest falls back to the new last entry.
				next := i
				if next >= len(idx.convs) {
					next = len(idx.convs) - 1
				}
				idx.activeID = idx.convs[next].ID
			}
		}
		idx.persist()
		return nil
	}
	return ErrNotFound
}

// DeleteAll clears the index and every associated message log.
func (idx *Index) DeleteAll() {
	for _, c := range idx.convs {
		idx.deleteLog(c.StorageKey)
	}
	idx.convs = nil
	idx.activeID = ""
	idx.persist()
}

// deleteLog removes one log record, releasing image handles first.
func (idx *Index) deleteLog(storageKey string) {
	var msgs []model.Message
	if err := idx.store.Read(storageKey, &msgs); err == nil {
		for _, m := range msgs {
			idx.store.ReleaseBlob(m.PreviewPath)
		}
	}
	if err := idx.store.Delete(storageKey); err != nil {
		log.Warn().Err(err).Str("key", storageKey).Msg("failed to delete message log")
	}
}

func (idx *Index) persist() {
	if err := idx.store.Write(IndexKey, idx.convs); err != nil {
		log.Warn().Err(err).Msg("failed to persist conversation index")
	}
}
