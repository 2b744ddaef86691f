// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line entry points for bunri.
//
// The default invocation launches the TUI; the subcommands cover the
// maintenance surface that does not need a full-screen terminal.
package cli

import (
	"fmt"
	"os"
)

// Version information, synced from main at startup.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies the requested CLI command.
type Command int

const (
	// CmdTUI launches the interactive chat interface (default).
	CmdTUI Command = iota
	// CmdSessions lists stored conversations.
	CmdSessions
	// CmdWipe deletes all stored conversations.
	CmdWipe
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

// Parse maps os.Args onto a command and its remaining arguments.
func Parse() (Command, []string) {
	if len(os.Args) < 2 {
		return CmdTUI, nil
	}

	switch os.Args[1] {
	case "sessions":
		return CmdSessions, os.Args[2:]
	case "wipe":
		return CmdWipe, os.Args[2:]
	case "version", "--version", "-v":
		return CmdVersion, nil
	case "help", "--help", "-h":
		return CmdHelp, nil
	default:
		// Unknown tokens fall through to the TUI so flags like
		// --data-dir reach it.
		return CmdTUI, os.Args[1:]
	}
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("bunri %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// HandleHelp prints usage information.
func HandleHelp() {
	fmt.Print(`bunri - 분리수거 도우미 터미널 클라이언트

Usage:
  bunri              Launch the interactive chat interface
  bunri sessions     List stored conversations
  bunri wipe         Delete all stored conversations
  bunri version      Print version information
  bunri help         Show this help

Flags:
  --config <file>    Use an explicit config file
  --data-dir <dir>   Override the data directory (default ~/.bunri)

Environment:
  BUNRI_BACKEND_URL  Backend server URL (default http://127.0.0.1:8000)
  BUNRI_DATA_DIR     Data directory override
`)
}
