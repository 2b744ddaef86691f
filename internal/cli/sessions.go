// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ecosort/bunri-tui/internal/history"
	"github.com/ecosort/bunri-tui/internal/index"
	"github.com/ecosort/bunri-tui/internal/storage"
)

// HandleSessions lists stored conversations with their message counts.
func HandleSessions(args []string) error {
	parser := NewArgParser(args)

	store, err := openStore(parser)
	if err != nil {
		return err
	}

	idx := index.Load(store)
	convs := idx.List()
	if len(convs) == 0 {
		fmt.Println("저장된 대화가 없습니다.")
		return nil
	}

	fmt.Printf("%-38s %-22s %-8s %s\n", "ID", "생성일", "메시지", "제목")
	for _, c := range convs {
		lg := history.Open(store, c.StorageKey)
		fmt.Printf("%-38s %-22s %-8d %s\n",
			c.ID, c.CreatedAt.Format("2006-01-02 15:04:05"), lg.Len(), c.Title)
	}
	return nil
}

// HandleWipe deletes all stored conversations after confirmation.
func HandleWipe(args []string) error {
	parser := NewArgParser(args)

	store, err := openStore(parser)
	if err != nil {
		return err
	}

	idx := index.Load(store)
	count := idx.Len()

	if !parser.BoolFlag("confirm") {
		fmt.Printf("%d개의 대화를 모두 삭제합니다. 계속할까요? [y/N] ", count)
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Println("취소했습니다.")
			return nil
		}
	}

	idx.DeleteAll()
	fmt.Printf("%d개의 대화를 삭제했습니다.\n", count)
	return nil
}

// openStore opens the storage directory, honoring the --data-dir flag.
func openStore(parser *ArgParser) (*storage.Store, error) {
	if dir := parser.Flag("data-dir"); dir != "" {
		return storage.Open(dir)
	}
	return storage.OpenDefault()
}
