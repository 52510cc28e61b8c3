// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// relaychat-tui.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.relaychat/config.toml
//   - ~/.relaychat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/jeranaias/relaychat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relaychat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Relay backend configuration
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Google custom search forwarding
	Search SearchConfig `toml:"search" json:"search"`

	// Local persistence configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig holds relay connection settings.
type BackendConfig struct {
	Host            string `toml:"host" json:"host"`
	APIType         string `toml:"api_type" json:"api_type"` // openai | azure | none
	APIKey          string `toml:"api_key" json:"api_key"`
	Organization    string `toml:"organization" json:"organization"`
	IdleTimeoutSecs int    `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
}

// SearchConfig holds Google custom search credentials.
type SearchConfig struct {
	Enabled      bool   `toml:"enabled" json:"enabled"`
	GoogleAPIKey string `toml:"google_api_key" json:"google_api_key"`
	GoogleCSEID  string `toml:"google_cse_id" json:"google_cse_id"`
}

// StorageConfig holds persistence limits.
type StorageConfig struct {
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme     string `toml:"theme" json:"theme"` // dark | light | auto
	ShowStats bool   `toml:"show_stats" json:"show_stats"`
	Plain     bool   `toml:"plain" json:"plain"` // force the line-oriented REPL
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			Host:            "http://localhost:8080",
			APIType:         "openai",
			IdleTimeoutSecs: 90,
		},
		Storage: StorageConfig{
			MaxConversations: 200,
		},
		UI: UIConfig{
			Theme:     "auto",
			ShowStats: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.relaychat.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".relaychat"), nil
}

// ConfigPathTOML returns the primary config file path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the fallback config file path.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration with TOML preferred over JSON, fills defaults,
// and applies environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
			cfg.ApplyEnvOverrides()
			fillDefaults(cfg)
			return cfg, nil
		}
	}

	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadJSON(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	return cfg, nil
}

// LoadTOML merges a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadJSON merges a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// fillDefaults patches zero values left by partial config files.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Backend.Host == "" {
		cfg.Backend.Host = def.Backend.Host
	}
	if cfg.Backend.APIType == "" {
		cfg.Backend.APIType = def.Backend.APIType
	}
	if cfg.Backend.IdleTimeoutSecs == 0 {
		cfg.Backend.IdleTimeoutSecs = def.Backend.IdleTimeoutSecs
	}
	if cfg.Storage.MaxConversations == 0 {
		cfg.Storage.MaxConversations = def.Storage.MaxConversations
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = def.UI.Theme
	}
}

// Save writes cfg to the primary TOML path atomically.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}

	var buf strings.Builder
	buf.WriteString("# relaychat-tui configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(buf.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks cfg for inconsistencies. It returns the first problem
// found.
func (c *Config) Validate() error {
	if c.Backend.Host != "" {
		u, err := url.Parse(c.Backend.Host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationError{Field: "backend.host", Message: "must be an absolute URL"}
		}
	}

	switch c.Backend.APIType {
	case "openai", "azure", "none":
	default:
		return ValidationError{Field: "backend.api_type", Message: "must be openai, azure, or none"}
	}

	if c.Backend.IdleTimeoutSecs < 0 {
		return ValidationError{Field: "backend.idle_timeout_secs", Message: "must not be negative"}
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be dark, light, or auto"}
	}

	if c.Search.Enabled && (c.Search.GoogleAPIKey == "" || c.Search.GoogleCSEID == "") {
		return ValidationError{Field: "search", Message: "enabled search requires google_api_key and google_cse_id"}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides lets RELAYCHAT_* variables override file values,
// which keeps API keys out of config files.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RELAYCHAT_HOST"); v != "" {
		c.Backend.Host = v
	}
	if v := os.Getenv("RELAYCHAT_API_TYPE"); v != "" {
		c.Backend.APIType = v
	}
	if v := os.Getenv("RELAYCHAT_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("RELAYCHAT_ORGANIZATION"); v != "" {
		c.Backend.Organization = v
	}
	if v := os.Getenv("RELAYCHAT_IDLE_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Backend.IdleTimeoutSecs = secs
		}
	}
	if v := os.Getenv("RELAYCHAT_GOOGLE_API_KEY"); v != "" {
		c.Search.GoogleAPIKey = v
	}
	if v := os.Getenv("RELAYCHAT_GOOGLE_CSE_ID"); v != "" {
		c.Search.GoogleCSEID = v
	}
}

// =============================================================================
// CLIENT ID
// =============================================================================

// EnsureClientID returns the persistent client identity sent to the
// relay, generating and storing one on first run.
func EnsureClientID() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "client_id")

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := util.AtomicWriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("failed to persist client id: %w", err)
	}
	return id, nil
}

// =============================================================================
// GLOBAL SINGLETON
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalCfg = cfg
	}
	return globalCfg
}

// SetGlobal replaces the process-wide configuration (used by the watcher
// on hot reload).
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	globalCfg = cfg
	globalMu.Unlock()
}

// ResetGlobalForTesting clears the singleton.
func ResetGlobalForTesting() {
	globalMu.Lock()
	globalCfg = nil
	globalMu.Unlock()
}
