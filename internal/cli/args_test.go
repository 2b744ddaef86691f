// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParserFlagFormats(t *testing.T) {
	p := NewArgParser([]string{"--data-dir", "/tmp/x", "--confirm", "--json=true", "item"})

	if got := p.Flag("data-dir"); got != "/tmp/x" {
		t.Errorf("space-separated flag: got %q", got)
	}
	if !p.BoolFlag("confirm") {
		t.Error("bare flag should be boolean true")
	}
	if !p.BoolFlag("json") {
		t.Error("--json=true should parse as boolean")
	}
	if got := p.Positional(); len(got) != 1 || got[0] != "item" {
		t.Errorf("positional args: got %v", got)
	}
}

func TestArgParserEqualsValue(t *testing.T) {
	p := NewArgParser([]string{"--data-dir=/var/lib/bunri"})

	if got := p.Flag("data-dir"); got != "/var/lib/bunri" {
		t.Errorf("equals-separated flag: got %q", got)
	}
}

func TestArgParserEmpty(t *testing.T) {
	p := NewArgParser(nil)

	if p.Flag("anything") != "" {
		t.Error("missing flag should be empty")
	}
	if p.BoolFlag("anything") {
		t.Error("missing boolean flag should be false")
	}
	if len(p.Positional()) != 0 {
		t.Error("no positionals expected")
	}
}
