// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestWriteReadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	in := record{Name: "분리수거", Count: 3}
	if err := store.Write("test_key", in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var out record
	if err := store.Read("test_key", &out); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out != in {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	var out record
	err := store.Read("nope", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadCorruptRecord(t *testing.T) {
	store := newTestStore(t)

	path := filepath.Join(store.BaseDir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out record
	err := store.Read("bad", &out)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestWriteReplacesWholeValue(t *testing.T) {
	store := newTestStore(t)

	if err := store.Write("k", record{Name: "first", Count: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("k", record{Name: "second"}); err != nil {
		t.Fatal(err)
	}

	var out record
	if err := store.Read("k", &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "second" || out.Count != 0 {
		t.Errorf("last write should win wholesale: %+v", out)
	}
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	store := newTestStore(t)

	if err := store.Delete("missing"); err != nil {
		t.Errorf("deleting an absent record should succeed, got %v", err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newTestStore(t)

	if err := store.Write("k", record{}); err != nil {
		t.Fatal(err)
	}
	if !store.Exists("k") {
		t.Fatal("record should exist after write")
	}
	if err := store.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if store.Exists("k") {
		t.Error("record should be gone after delete")
	}
}

func TestKeysWithPrefix(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"chat_a", "chat_b", "conversations"} {
		if err := store.Write(key, record{}); err != nil {
			t.Fatal(err)
		}
	}

	keys := store.Keys("chat_")
	if len(keys) != 2 {
		t.Errorf("expected 2 chat keys, got %v", keys)
	}
	for _, k := range keys {
		if k != "chat_a" && k != "chat_b" {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestImportAndReleaseBlob(t *testing.T) {
	store := newTestStore(t)

	src := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(src, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	handle, err := store.ImportBlob(src)
	if err != nil {
		t.Fatalf("ImportBlob failed: %v", err)
	}

	// The copy must survive removal of the source.
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(handle)
	if err != nil {
		t.Fatalf("copy should outlive the source: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("copy content mismatch: %q", data)
	}

	store.ReleaseBlob(handle)
	if _, err := os.Stat(handle); !os.IsNotExist(err) {
		t.Error("handle should be removed after release")
	}
}

func TestReleaseBlobIgnoresForeignPaths(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "keep.jpg")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store.ReleaseBlob(outside)
	if _, err := os.Stat(outside); err != nil {
		t.Error("release must not touch files outside the uploads area")
	}
}

func TestImportBlobMissingSource(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ImportBlob(filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Error("importing a missing file should fail")
	}
}
