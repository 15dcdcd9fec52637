// Package config provides configuration loading, validation, and defaults for
// the effect engine. Tunables come from an optional YAML file; a zero-value
// load yields a fully usable default configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tunables applied when the config file omits a value.
const (
	DefaultTimeoutMs            = 30000
	DefaultRetryDelayMs         = 1000
	DefaultMaxRetries           = 3
	DefaultMaxConcurrentEffects = 10
	DefaultFailureThreshold     = 5
	DefaultRecoveryTimeoutSec   = 60
	DefaultListenAddr           = ":8090"
)

// Config represents the tunables for the effect engine.
type Config struct {
	// Engine holds execution policy defaults applied to requests that leave
	// the corresponding field unset.
	Engine EngineConfig `yaml:"engine"`
	// Journal holds the optional sqlite audit journal settings.
	Journal JournalConfig `yaml:"journal"`
	// ListenAddr is the bind address for the metrics/health HTTP server.
	ListenAddr string `yaml:"listen_addr"`
	// Debug enables debug logging for the listed domains (empty = all).
	Debug        bool     `yaml:"debug"`
	DebugDomains []string `yaml:"debug_domains"`
}

// EngineConfig holds execution policy defaults.
type EngineConfig struct {
	DefaultTimeoutMs     int `yaml:"default_timeout_ms"`
	DefaultRetryDelayMs  int `yaml:"default_retry_delay_ms"`
	DefaultMaxRetries    int `yaml:"default_max_retries"`
	MaxConcurrentEffects int `yaml:"max_concurrent_effects"`
	FailureThreshold     int `yaml:"failure_threshold"`
	RecoveryTimeoutSec   int `yaml:"recovery_timeout_sec"`
	// NodeID identifies this engine instance in error context and the
	// journal. Defaults to the hostname.
	NodeID string `yaml:"node_id"`
}

// JournalConfig holds audit journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultTimeout returns the per-request timeout as a duration.
func (e *EngineConfig) DefaultTimeout() time.Duration {
	return time.Duration(e.DefaultTimeoutMs) * time.Millisecond
}

// DefaultRetryDelay returns the base retry delay as a duration.
func (e *EngineConfig) DefaultRetryDelay() time.Duration {
	return time.Duration(e.DefaultRetryDelayMs) * time.Millisecond
}

// RecoveryTimeout returns the circuit breaker recovery timeout as a duration.
func (e *EngineConfig) RecoveryTimeout() time.Duration {
	return time.Duration(e.RecoveryTimeoutSec) * time.Second
}

// Default returns a configuration populated entirely from defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file, applies defaults for omitted values, and
// validates the result. An empty path returns the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// applyDefaults fills zero-valued fields with package defaults.
func (c *Config) applyDefaults() {
	if c.Engine.DefaultTimeoutMs <= 0 {
		c.Engine.DefaultTimeoutMs = DefaultTimeoutMs
	}
	if c.Engine.DefaultRetryDelayMs <= 0 {
		c.Engine.DefaultRetryDelayMs = DefaultRetryDelayMs
	}
	if c.Engine.DefaultMaxRetries <= 0 {
		c.Engine.DefaultMaxRetries = DefaultMaxRetries
	}
	if c.Engine.MaxConcurrentEffects <= 0 {
		c.Engine.MaxConcurrentEffects = DefaultMaxConcurrentEffects
	}
	if c.Engine.FailureThreshold <= 0 {
		c.Engine.FailureThreshold = DefaultFailureThreshold
	}
	if c.Engine.RecoveryTimeoutSec <= 0 {
		c.Engine.RecoveryTimeoutSec = DefaultRecoveryTimeoutSec
	}
	if c.Engine.NodeID == "" {
		if host, err := os.Hostname(); err == nil {
			c.Engine.NodeID = host
		} else {
			c.Engine.NodeID = "effect-engine"
		}
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
}

// Validate checks configuration invariants after defaults are applied.
func (c *Config) Validate() error {
	if c.Engine.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("default_timeout_ms must be positive, got %d", c.Engine.DefaultTimeoutMs)
	}
	if c.Engine.DefaultRetryDelayMs <= 0 {
		return fmt.Errorf("default_retry_delay_ms must be positive, got %d", c.Engine.DefaultRetryDelayMs)
	}
	if c.Engine.MaxConcurrentEffects <= 0 {
		return fmt.Errorf("max_concurrent_effects must be positive, got %d", c.Engine.MaxConcurrentEffects)
	}
	if c.Engine.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.Engine.FailureThreshold)
	}
	if c.Engine.RecoveryTimeoutSec <= 0 {
		return fmt.Errorf("recovery_timeout_sec must be positive, got %d", c.Engine.RecoveryTimeoutSec)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when journal is enabled")
	}
	return nil
}
