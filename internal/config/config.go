// Package config loads StatsigOptions from a TOML file layered with
// environment variable overrides, following the same precedence rule the
// teacher's config loader used: environment variables > config file >
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config mirrors spec.md §6's enumerated StatsigOptions, plus the file/env
// plumbing fields (SDKKey, Log) needed to construct one outside code.
type Config struct {
	SDKKey  string        `toml:"sdk_key"`
	Network NetworkConfig `toml:"network"`
	Events  EventsConfig  `toml:"events"`
	Init    InitConfig    `toml:"init"`
	Log     LogConfig     `toml:"log"`

	Environment       string `toml:"environment"`
	DisableAllLogging bool   `toml:"disable_all_logging"`
	DisableNetwork    bool   `toml:"disable_network"`
}

// NetworkConfig holds the specs/events endpoint and sync cadence.
type NetworkConfig struct {
	SpecsURL           string `toml:"specs_url"`
	LogEventURL        string `toml:"log_event_url"`
	SpecsSyncIntervalMs int64 `toml:"specs_sync_interval_ms"`
}

// EventsConfig holds EventLogger tuning knobs.
type EventsConfig struct {
	MaxQueueSize           int   `toml:"max_queue_size"`
	FlushIntervalMs        int64 `toml:"flush_interval_ms"`
	DedupTTLSeconds        int64 `toml:"dedup_ttl_seconds"`
	TTLResetIntervalMs     int64 `toml:"ttl_reset_interval_ms"`
}

// InitConfig holds adapter start/shutdown timeouts.
type InitConfig struct {
	TimeoutMs int64 `toml:"timeout_ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load reads a Config by layering a TOML config file under environment
// variable overrides, following the same search order and precedence as
// the teacher's loader: explicit path, STATSIG_CONFIG env var,
// ./statsig.toml, ~/.config/statsig/statsig.toml, then defaults.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Network: NetworkConfig{
			SpecsURL:            "https://statsigapi.net/v1/download_config_specs",
			LogEventURL:         "https://statsigapi.net/v1/log_event",
			SpecsSyncIntervalMs: 10_000,
		},
		Events: EventsConfig{
			MaxQueueSize:       1000,
			FlushIntervalMs:    60_000,
			DedupTTLSeconds:    60,
			TTLResetIntervalMs: 60_000,
		},
		Init: InitConfig{TimeoutMs: 3000},
		Log:  LogConfig{Level: "info"},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("STATSIG_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("statsig.toml"); err == nil {
		return "statsig.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/statsig/statsig.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnv overlays environment variables on top of existing config
// values. An env var only takes effect if it is set and non-empty.
func (c *Config) applyEnv() {
	envOverride("STATSIG_SDK_KEY", &c.SDKKey)
	envOverride("STATSIG_ENVIRONMENT", &c.Environment)
	envOverride("STATSIG_SPECS_URL", &c.Network.SpecsURL)
	envOverride("STATSIG_LOG_EVENT_URL", &c.Network.LogEventURL)
	envOverride("STATSIG_LOG_LEVEL", &c.Log.Level)

	envOverrideInt64("STATSIG_SPECS_SYNC_INTERVAL_MS", &c.Network.SpecsSyncIntervalMs)
	envOverrideInt64("STATSIG_EVENT_FLUSH_INTERVAL_MS", &c.Events.FlushIntervalMs)
	envOverrideInt64("STATSIG_EVENT_DEDUP_TTL_SECONDS", &c.Events.DedupTTLSeconds)
	envOverrideInt64("STATSIG_INIT_TIMEOUT_MS", &c.Init.TimeoutMs)
	envOverrideInt("STATSIG_EVENT_MAX_QUEUE_SIZE", &c.Events.MaxQueueSize)

	if v := os.Getenv("STATSIG_DISABLE_ALL_LOGGING"); v != "" {
		c.DisableAllLogging = v == "true" || v == "1"
	}
	if v := os.Getenv("STATSIG_DISABLE_NETWORK"); v != "" {
		c.DisableNetwork = v == "true" || v == "1"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.SDKKey == "" && !c.DisableNetwork {
		return fmt.Errorf("sdk key is required unless disable_network is set: set sdk_key in config file, or STATSIG_SDK_KEY env var")
	}
	if c.Network.SpecsSyncIntervalMs <= 0 {
		return fmt.Errorf("network.specs_sync_interval_ms must be positive")
	}
	if c.Events.MaxQueueSize <= 0 {
		return fmt.Errorf("events.max_queue_size must be positive")
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envOverrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
