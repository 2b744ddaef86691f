// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for bunri.
//
// Configuration sources (in order of precedence):
//   - Environment variables (BUNRI_*)
//   - ~/.bunri/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete bunri configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Storage StorageConfig `toml:"storage"`
	UI      UIConfig      `toml:"ui"`
}

// BackendConfig locates the recycling-assistant backend.
type BackendConfig struct {
	// BaseURL is the backend server root, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url"`
	// ChatPath is the streaming chat endpoint path.
	ChatPath string `toml:"chat_path"`
	// PredictPath is the image classification endpoint path.
	PredictPath string `toml:"predict_path"`
	// TimeoutSecs bounds the classification request. The chat stream is not
	// subject to this timeout; it runs until the server closes it.
	TimeoutSecs int `toml:"timeout_secs"`
}

// StorageConfig controls where conversations and staged images live.
type StorageConfig struct {
	// DataDir overrides the default ~/.bunri data directory.
	DataDir string `toml:"data_dir"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Markdown renders completed assistant replies through glamour.
	Markdown bool `toml:"markdown"`
	// ShowConfidence appends the classifier confidence to analysis messages.
	ShowConfidence bool `toml:"show_confidence"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://127.0.0.1:8000",
			ChatPath:    "/api/chat",
			PredictPath: "/api/predict",
			TimeoutSecs: 60,
		},
		UI: UIConfig{
			Markdown:       true,
			ShowConfidence: true,
		},
	}
}

// ConfigDir returns the bunri configuration directory (~/.bunri).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".bunri"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.bunri/config.toml, falling back to
// defaults when the file is absent. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path. An absent
// file yields the defaults; a malformed file is an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies BUNRI_* environment variables over the loaded
// values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("BUNRI_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("BUNRI_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("BUNRI_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = secs
		}
	}
}

// Save writes the configuration to ~/.bunri/config.toml.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide configuration set by SetGlobal, or nil
// before initialization.
func Global() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// SetGlobal installs the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that would break the client.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if !strings.HasPrefix(c.Backend.ChatPath, "/") {
		return fmt.Errorf("backend.chat_path %q must start with /", c.Backend.ChatPath)
	}
	if !strings.HasPrefix(c.Backend.PredictPath, "/") {
		return fmt.Errorf("backend.predict_path %q must start with /", c.Backend.PredictPath)
	}
	if c.Backend.TimeoutSecs <= 0 {
		return fmt.Errorf("backend.timeout_secs must be positive, got %d", c.Backend.TimeoutSecs)
	}
	return nil
}
