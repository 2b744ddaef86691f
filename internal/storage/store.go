// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key/value store backing bunri.
package storage

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ecosort/bunri-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// StoreError represents a persistence failure.
// Use errors.Is(err, ErrNotFound) or errors.Is(err, ErrCorrupt) to classify.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support by message identity.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = &StoreError{Message: "record not found"}

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = &StoreError{Message: "record is corrupt"}

// =============================================================================
// FILE STORE
// =============================================================================

// Store is a keyed JSON store over one file per record. Writes are atomic
// with fsync; reads of missing or undecodable records return typed errors
// that callers recover from instead of surfacing to the user.
type Store struct {
	// BaseDir is the directory holding all records.
	// Default: ~/.bunri/
	BaseDir string
}

// Open creates a store rooted at baseDir, creating the directory if needed.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, &StoreError{Message: "create storage directory", Cause: err}
	}
	return &Store{BaseDir: baseDir}, nil
}

// OpenDefault opens the store under the user's home directory.
func OpenDefault() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, &StoreError{Message: "resolve home directory", Cause: err}
	}
	return Open(filepath.Join(homeDir, ".bunri"))
}

// Read decodes the record stored under key into out.
// Returns ErrNotFound for absent records and ErrCorrupt for undecodable ones.
func (s *Store) Read(key string, out any) error {
	data, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return &StoreError{Message: "read record", Cause: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &StoreError{Message: ErrCorrupt.Message, Cause: err}
	}
	return nil
}

// Write persists v as the whole value under key. Last writer wins; there is
// no field-level merge.
func (s *Store) Write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StoreError{Message: "encode record", Cause: err}
	}
	if err := util.AtomicWriteFile(s.recordPath(key), data, 0o644); err != nil {
		return &StoreError{Message: "write record", Cause: err}
	}
	return nil
}

// Delete removes the record under key. Deleting an absent record is not an
// error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.recordPath(key)); err != nil && !os.IsNotExist(err) {
		return &StoreError{Message: "delete record", Cause: err}
	}
	return nil
}

// Exists reports whether a record is stored under key.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.recordPath(key))
	return err == nil
}

// Keys lists all record keys with the given prefix.
func (s *Store) Keys(prefix string) []string {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *Store) recordPath(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

// =============================================================================
// IMAGE BLOBS
// =============================================================================

// ImportBlob copies the file at src into the store's uploads area and
// returns the handle path of the copy. The copy outlives the source file, so
// a preview stays renderable after the original is moved or deleted.
func (s *Store) ImportBlob(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", &StoreError{Message: "open image", Cause: err}
	}
	defer in.Close()

	uploadsDir := filepath.Join(s.BaseDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return "", &StoreError{Message: "create uploads directory", Cause: err}
	}

	out, err := os.CreateTemp(uploadsDir, "img-*"+filepath.Ext(src))
	if err != nil {
		return "", &StoreError{Message: "create image copy", Cause: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", &StoreError{Message: "copy image", Cause: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", &StoreError{Message: "close image copy", Cause: err}
	}
	return out.Name(), nil
}

// ReleaseBlob frees an imported image copy. Called when the owning message
// is evicted or its conversation is deleted. Failures are logged, never
// surfaced.
func (s *Store) ReleaseBlob(handle string) {
	if handle == "" {
		return
	}
	// Only remove files the store created.
	if filepath.Dir(handle) != filepath.Join(s.BaseDir, "uploads") {
		return
	}
	if err := os.Remove(handle); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("handle", handle).Msg("failed to release image blob")
	}
}
