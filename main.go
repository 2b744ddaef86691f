// bunri - a terminal client for the recycling-guide assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ecosort/bunri-tui/internal/api"
	"github.com/ecosort/bunri-tui/internal/cli"
	"github.com/ecosort/bunri-tui/internal/config"
	"github.com/ecosort/bunri-tui/internal/index"
	"github.com/ecosort/bunri-tui/internal/session"
	"github.com/ecosort/bunri-tui/internal/storage"
	"github.com/ecosort/bunri-tui/internal/ui/chat"
	"github.com/ecosort/bunri-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdSessions:
		if err := cli.HandleSessions(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdWipe:
		if err := cli.HandleWipe(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(args)
	}
}

func runTUI(args []string) {
	parser := cli.NewArgParser(args)

	var cfg *config.Config
	var err error
	if path := parser.Flag("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dir := parser.Flag("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	config.SetGlobal(cfg)

	var store *storage.Store
	if cfg.Storage.DataDir != "" {
		store, err = storage.Open(cfg.Storage.DataDir)
	} else {
		store, err = storage.OpenDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so diagnostics go to a file.
	setupLogging(store.BaseDir)

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:     cfg.Backend.BaseURL,
		ChatPath:    cfg.Backend.ChatPath,
		PredictPath: cfg.Backend.PredictPath,
		Timeout:     time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
	})

	idx := index.Load(store)
	orch := session.New(store, idx, client, client)

	theme := styles.NewTheme()
	m := chat.New(theme, orch, chat.Options{
		Markdown:       cfg.UI.Markdown,
		ShowConfidence: cfg.UI.ShowConfidence,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Orchestrator events reach the UI through the Bubble Tea loop. The UI
	// confirms destructive actions before calling the orchestrator (two-step
	// picker delete, repeated /delete and /wipe), so the injected capability
	// approves.
	orch.SetSink(func(ev session.Event) {
		p.Send(chat.EventMsg{Event: ev})
	})
	orch.SetConfirm(func(string) bool { return true })

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging routes zerolog to a file under the data directory.
func setupLogging(dataDir string) {
	path := filepath.Join(dataDir, "bunri.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.Logger = zerolog.Nop()
		return
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
}
