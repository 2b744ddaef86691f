// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecosort/bunri-tui/internal/history"
	"github.com/ecosort/bunri-tui/internal/model"
	"github.com/ecosort/bunri-tui/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestLoadFreshCreatesOneConversation(t *testing.T) {
	store := newTestStore(t)

	idx := Load(store)
	if idx.Len() != 1 {
		t.Fatalf("fresh index should hold one conversation, got %d", idx.Len())
	}
	active, ok := idx.Active()
	if !ok {
		t.Fatal("fresh index should have an active conversation")
	}
	if active.Title != model.DefaultTitle {
		t.Errorf("fresh conversation should carry the default title, got %q", active.Title)
	}
}

func TestLoadCorruptIndexStartsFresh(t *testing.T) {
	store := newTestStore(t)

	path := filepath.Join(store.BaseDir, IndexKey+".json")
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := Load(store)
	if idx.Len() != 1 {
		t.Fatalf("corrupt index should fall back to one fresh conversation, got %d", idx.Len())
	}
	if _, ok := idx.Active(); !ok {
		t.Error("fallback conversation should be active")
	}
}

func TestCreateInsertsAtFrontAndSelects(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)

	first, _ := idx.Active()
	second := idx.Create()

	convs := idx.List()
	if convs[0].ID != second.ID {
		t.Error("new conversation should be first in the list")
	}
	if convs[1].ID != first.ID {
		t.Error("previous conversation should shift down")
	}
	active, _ := idx.Active()
	if active.ID != second.ID {
		t.Error("new conversation should become active")
	}
}

func TestPersistAcrossReload(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)
	idx.Create()
	idx.Create()

	reloaded := Load(store)
	if reloaded.Len() != 3 {
		t.Fatalf("expected 3 conversations after reload, got %d", reloaded.Len())
	}
	// Newest-first order persists; the newest becomes active again.
	active, _ := reloaded.Active()
	if active.ID != reloaded.List()[0].ID {
		t.Error("reload should select the newest conversation")
	}
}

func TestRename(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)

	active, _ := idx.Active()
	if err := idx.Rename(active.ID, "스티로폼 질문"); err != nil {
		t.Fatal(err)
	}

	reloaded := Load(store)
	if got := reloaded.List()[0].Title; got != "스티로폼 질문" {
		t.Errorf("rename should persist, got %q", got)
	}
}

func TestRenameUnknownID(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)

	if err := idx.Rename("missing", "x"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsolation(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)

	a, _ := idx.Active()
	b := idx.Create()
	c := idx.Create()

	// Give each conversation distinct content.
	for _, conv := range []model.Conversation{a, b, c} {
		lg := history.Open(store, conv.StorageKey)
		lg.Append(model.NewUserMessage("내용-" + conv.ID))
	}

	if err := idx.Delete(b.ID); err != nil {
		t.Fatal(err)
	}

	if idx.Len() != 2 {
		t.Fatalf("expected 2 conversations after delete, got %d", idx.Len())
	}
	if store.Exists(b.StorageKey) {
		t.Error("deleted conversation's log should be removed")
	}
	// Other logs stay byte-for-byte intact.
	for _, conv := range []model.Conversation{a, c} {
		lg := history.Open(store, conv.StorageKey)
		if lg.Len() != 1 || lg.Last().Content != "내용-"+conv.ID {
			t.Errorf("unrelated log %s was disturbed", conv.ID)
		}
	}
}

func TestDeleteActiveSelectsNext(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)
	newest := idx.Create()

	if err := idx.Delete(newest.ID); err != nil {
		t.Fatal(err)
	}
	active, ok := idx.Active()
	if !ok {
		t.Fatal("a conversation should remain active after deleting the selected one")
	}
	if active.ID == newest.ID {
		t.Error("deleted conversation must not stay active")
	}
}

func TestDeleteActiveSelectsSuccessorAtPosition(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)

	oldest, _ := idx.Active()
	middle := idx.Create()
	idx.Create() // newest

	// Deleting the middle conversation hands the selection to the one that
	// followed it, not back to the top of the list.
	if err := idx.Select(middle.ID); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(middle.ID); err != nil {
		t.Fatal(err)
	}
	active, ok := idx.Active()
	if !ok {
		t.Fatal("a conversation should stay active")
	}
	if active.ID != oldest.ID {
		t.Errorf("successor should become active, got %q", active.Title)
	}

	// Deleting the last entry falls back to the previous one.
	if err := idx.Delete(oldest.ID); err != nil {
		t.Fatal(err)
	}
	active, ok = idx.Active()
	if !ok {
		t.Fatal("a conversation should stay active")
	}
	if idx.Len() != 1 || active.ID != idx.List()[0].ID {
		t.Error("deleting the oldest should select the remaining conversation")
	}
}

func TestDeleteAllLeavesNoResidue(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)
	idx.Create()
	idx.Create()

	for _, conv := range idx.List() {
		lg := history.Open(store, conv.StorageKey)
		lg.Append(model.NewUserMessage("hello"))
	}

	idx.DeleteAll()

	if idx.Len() != 0 {
		t.Errorf("index should be empty, got %d", idx.Len())
	}
	if keys := store.Keys("chat_"); len(keys) != 0 {
		t.Errorf("no log records should remain, found %v", keys)
	}
	if _, ok := idx.Active(); ok {
		t.Error("no conversation should be active after wipe")
	}
}

func TestDeleteReleasesImageBlobs(t *testing.T) {
	store := newTestStore(t)
	idx := Load(store)
	active, _ := idx.Active()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(src, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	handle, err := store.ImportBlob(src)
	if err != nil {
		t.Fatal(err)
	}

	lg := history.Open(store, active.StorageKey)
	lg.Append(model.NewImagePreview(handle))

	if err := idx.Delete(active.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(handle); !os.IsNotExist(err) {
		t.Error("image blob should be released with its conversation")
	}
}

func TestLegacyMigration(t *testing.T) {
	store := newTestStore(t)

	legacy := []model.Message{
		model.NewUserMessage("스티로폼은 어떻게 버려요?"),
		model.NewAssistantMessage("스티로폼은 깨끗이 씻어서 배출하세요."),
	}
	if err := store.Write(LegacyKey, legacy); err != nil {
		t.Fatal(err)
	}

	idx := Load(store)

	if idx.Len() != 1 {
		t.Fatalf("migration should produce one conversation, got %d", idx.Len())
	}
	conv := idx.List()[0]
	if conv.Title != "스티로폼은 어떻게 버려요?" {
		t.Errorf("migrated title should come from the first user message, got %q", conv.Title)
	}

	lg := history.Open(store, conv.StorageKey)
	if lg.Len() != 2 {
		t.Fatalf("migrated log should keep all messages, got %d", lg.Len())
	}
	if store.Exists(LegacyKey) {
		t.Error("legacy record should be removed after migration")
	}

	// A second load must not migrate again.
	again := Load(store)
	if again.Len() != 1 {
		t.Errorf("migration must be one-shot, got %d conversations", again.Len())
	}
}

func TestLegacyMigrationSkippedWhenIndexExists(t *testing.T) {
	store := newTestStore(t)

	idx := Load(store) // writes the index
	before := idx.Len()

	if err := store.Write(LegacyKey, []model.Message{model.NewUserMessage("old")}); err != nil {
		t.Fatal(err)
	}

	reloaded := Load(store)
	if reloaded.Len() != before {
		t.Errorf("legacy record must be ignored once an index exists, got %d", reloaded.Len())
	}
}
