// CLAUDE:SUMMARY Defines the xdswitch YAML configuration and its defaults.
// Package config loads the xdswitch daemon configuration from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level xdswitch configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug | info | warn | error
	Browser   BrowserConfig   `yaml:"browser"`
	Store     StoreConfig     `yaml:"store"`
	Journal   JournalConfig   `yaml:"journal"`
	Indicator IndicatorConfig `yaml:"indicator"`
	HTTP      HTTPConfig      `yaml:"http"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote      string `yaml:"remote"` // DevTools WebSocket URL; empty launches Chrome
	Headless    bool   `yaml:"headless"`
	Bin         string `yaml:"bin"`
	UserDataDir string `yaml:"user_data_dir"`
}

// StoreConfig locates the per-site preference database.
type StoreConfig struct {
	Path      string        `yaml:"path"`
	Ephemeral bool          `yaml:"ephemeral"` // in-memory store, nothing survives a restart
	Watch     time.Duration `yaml:"watch"`     // poll interval for external edits; 0 disables
}

// JournalConfig controls the reconcile/apply journal.
type JournalConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// IndicatorConfig selects the indicator sinks.
type IndicatorConfig struct {
	Sinks []SinkConfig `yaml:"sinks"`
}

// SinkConfig defines one indicator backend.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | term | webhook
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// HTTPConfig controls the control API listener.
type HTTPConfig struct {
	Addr      string `yaml:"addr"` // empty disables the API
	TokenHash string `yaml:"token_hash"`
}

// MCPConfig controls the MCP surface.
type MCPConfig struct {
	Stdio bool `yaml:"stdio"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Journal: JournalConfig{Enabled: true}}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{Journal: JournalConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Path == "" {
		c.Store.Path = "xdswitch.db"
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = 30
	}
	if len(c.Indicator.Sinks) == 0 {
		c.Indicator.Sinks = []SinkConfig{{Type: "term"}}
	}
	for i := range c.Indicator.Sinks {
		if c.Indicator.Sinks[i].Type == "webhook" && c.Indicator.Sinks[i].Retries <= 0 {
			c.Indicator.Sinks[i].Retries = 3
		}
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for i, s := range c.Indicator.Sinks {
		switch s.Type {
		case "stdout", "term":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: indicator.sinks[%d]: webhook requires url", i)
			}
		default:
			return fmt.Errorf("config: indicator.sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}
