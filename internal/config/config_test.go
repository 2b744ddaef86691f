// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected default base URL: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.ChatPath != "/api/chat" {
		t.Errorf("unexpected default chat path: %q", cfg.Backend.ChatPath)
	}
	if cfg.Backend.PredictPath != "/api/predict" {
		t.Errorf("unexpected default predict path: %q", cfg.Backend.PredictPath)
	}
	if cfg.Backend.TimeoutSecs != 60 {
		t.Errorf("unexpected default timeout: %d", cfg.Backend.TimeoutSecs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromPathAbsentFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("absent config should not error: %v", err)
	}
	if cfg.Backend.BaseURL != Default().Backend.BaseURL {
		t.Error("absent config should fall back to defaults")
	}
}

func TestLoadFromPathParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
base_url = "http://10.0.0.5:9000"
timeout_secs = 30

[ui]
markdown = false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("base URL not loaded: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("timeout not loaded: %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.Backend.ChatPath != "/api/chat" {
		t.Error("unset fields should keep defaults")
	}
	if cfg.UI.Markdown {
		t.Error("ui.markdown should be overridden to false")
	}
}

func TestLoadFromPathMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("backend = [[["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("malformed config should error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BUNRI_BACKEND_URL", "http://192.168.0.2:8000")
	t.Setenv("BUNRI_DATA_DIR", "/tmp/bunri-test")
	t.Setenv("BUNRI_TIMEOUT_SECS", "15")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://192.168.0.2:8000" {
		t.Errorf("env base URL not applied: %q", cfg.Backend.BaseURL)
	}
	if cfg.Storage.DataDir != "/tmp/bunri-test" {
		t.Errorf("env data dir not applied: %q", cfg.Storage.DataDir)
	}
	if cfg.Backend.TimeoutSecs != 15 {
		t.Errorf("env timeout not applied: %d", cfg.Backend.TimeoutSecs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Backend.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "localhost:8000" }},
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://host" }},
		{"chat path without slash", func(c *Config) { c.Backend.ChatPath = "api/chat" }},
		{"predict path without slash", func(c *Config) { c.Backend.PredictPath = "predict" }},
		{"zero timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSecs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
