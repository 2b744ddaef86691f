// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"os"
	"path/filepath"
	"testing"

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

func TestOpenAbsentIsEmpty(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_missing")
	if lg.Len() != 0 {
		t.Errorf("absent log should be empty, got %d messages", lg.Len())
	}
}

func TestOpenCorruptIsEmpty(t *testing.T) {
	store := newTestStore(t)

	path := filepath.Join(store.BaseDir, "chat_bad.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	lg := Open(store, "chat_bad")
	if lg.Len() != 0 {
		t.Errorf("corrupt log should start empty, got %d messages", lg.Len())
	}
}

func TestAppendPersistsAcrossReopen(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.Append(model.NewUserMessage("안녕하세요"))
	lg.Append(model.NewAssistantMessage("안녕하세요!"))

	reopened := Open(store, "chat_1")
	if reopened.Len() != 2 {
		t.Fatalf("expected 2 messages after reopen, got %d", reopened.Len())
	}
	msgs := reopened.Messages()
	if msgs[0].Content != "안녕하세요" || msgs[1].Content != "안녕하세요!" {
		t.Errorf("message order not preserved: %+v", msgs)
	}
}

func TestAppendPair(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.AppendPair("플라스틱 컵은 어디에 버려요?")

	if lg.Len() != 2 {
		t.Fatalf("pair should add 2 messages, got %d", lg.Len())
	}
	msgs := lg.Messages()
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "플라스틱 컵은 어디에 버려요?" {
		t.Errorf("first message should be the user text: %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || !msgs[1].IsEmpty() {
		t.Errorf("second message should be the empty placeholder: %+v", msgs[1])
	}
}

func TestAppendToLastConcatenatesChunks(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.AppendPair("질문")

	chunks := []string{"플라스틱 컵", "은 플라스틱", "류로 배출", "하세요."}
	for _, c := range chunks {
		lg.AppendToLast(c)
	}

	got := lg.Last().Content
	want := "플라스틱 컵은 플라스틱류로 배출하세요."
	if got != want {
		t.Errorf("chunks should concatenate in order:\ngot  %q\nwant %q", got, want)
	}
}

func TestChunksSplitMidRune(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.AppendPair("질문")

	// "한" is three UTF-8 bytes; a server may split it across reads.
	full := []byte("한글")
	lg.AppendToLast(string(full[:2]))
	lg.AppendToLast(string(full[2:]))

	if got := lg.Last().Content; got != "한글" {
		t.Errorf("byte-level concatenation should reassemble runes, got %q", got)
	}
}

func TestMutateLastOnlyTouchesTail(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.Append(model.NewUserMessage("first"))
	lg.AppendPair("second")

	lg.MutateLast(func(m model.Message) model.Message {
		m.Content = "채팅 오류: server down"
		return m
	})

	msgs := lg.Messages()
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Error("earlier messages must not change")
	}
	if msgs[2].Content != "채팅 오류: server down" {
		t.Errorf("tail should be replaced, got %q", msgs[2].Content)
	}
}

func TestMutateLastOnEmptyLogIsNoop(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.MutateLast(func(m model.Message) model.Message {
		t.Error("mutator should not run on an empty log")
		return m
	})
}

func TestMessagesReturnsCopy(t *testing.T) {
	store := newTestStore(t)

	lg := Open(store, "chat_1")
	lg.Append(model.NewUserMessage("original"))

	msgs := lg.Messages()
	msgs[0].Content = "tampered"

	if lg.Last().Content != "original" {
		t.Error("mutating the returned slice must not affect the log")
	}
}
