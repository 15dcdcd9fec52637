package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// ===== Defaults =====

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Engine.DefaultTimeoutMs != 30000 {
		t.Errorf("DefaultTimeoutMs = %d, want 30000", cfg.Engine.DefaultTimeoutMs)
	}
	if cfg.Engine.DefaultRetryDelayMs != 1000 {
		t.Errorf("DefaultRetryDelayMs = %d, want 1000", cfg.Engine.DefaultRetryDelayMs)
	}
	if cfg.Engine.DefaultMaxRetries != 3 {
		t.Errorf("DefaultMaxRetries = %d, want 3", cfg.Engine.DefaultMaxRetries)
	}
	if cfg.Engine.MaxConcurrentEffects != 10 {
		t.Errorf("MaxConcurrentEffects = %d, want 10", cfg.Engine.MaxConcurrentEffects)
	}
	if cfg.Engine.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cfg.Engine.FailureThreshold)
	}
	if cfg.Engine.RecoveryTimeoutSec != 60 {
		t.Errorf("RecoveryTimeoutSec = %d, want 60", cfg.Engine.RecoveryTimeoutSec)
	}
	if cfg.Engine.NodeID == "" {
		t.Error("NodeID should default to the hostname")
	}
	if cfg.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %q, want :8090", cfg.ListenAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()

	if got := cfg.Engine.DefaultTimeout(); got != 30*time.Second {
		t.Errorf("DefaultTimeout = %v, want 30s", got)
	}
	if got := cfg.Engine.DefaultRetryDelay(); got != time.Second {
		t.Errorf("DefaultRetryDelay = %v, want 1s", got)
	}
	if got := cfg.Engine.RecoveryTimeout(); got != time.Minute {
		t.Errorf("RecoveryTimeout = %v, want 1m", got)
	}
}

// ===== Load =====

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.DefaultTimeoutMs != DefaultTimeoutMs {
		t.Errorf("DefaultTimeoutMs = %d, want %d", cfg.Engine.DefaultTimeoutMs, DefaultTimeoutMs)
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  default_timeout_ms: 5000
  failure_threshold: 2
  node_id: test-node
listen_addr: ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.DefaultTimeoutMs != 5000 {
		t.Errorf("DefaultTimeoutMs = %d, want 5000", cfg.Engine.DefaultTimeoutMs)
	}
	if cfg.Engine.FailureThreshold != 2 {
		t.Errorf("FailureThreshold = %d, want 2", cfg.Engine.FailureThreshold)
	}
	if cfg.Engine.NodeID != "test-node" {
		t.Errorf("NodeID = %q, want test-node", cfg.Engine.NodeID)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	// Omitted values fall back to defaults.
	if cfg.Engine.DefaultMaxRetries != DefaultMaxRetries {
		t.Errorf("DefaultMaxRetries = %d, want %d", cfg.Engine.DefaultMaxRetries, DefaultMaxRetries)
	}
	if cfg.Engine.MaxConcurrentEffects != DefaultMaxConcurrentEffects {
		t.Errorf("MaxConcurrentEffects = %d, want %d", cfg.Engine.MaxConcurrentEffects, DefaultMaxConcurrentEffects)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "engine: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

// ===== Validate =====

func TestValidateJournalRequiresPath(t *testing.T) {
	cfg := Default()
	cfg.Journal.Enabled = true
	cfg.Journal.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when journal enabled without a path")
	}

	cfg.Journal.Path = "/tmp/journal.db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("journal with path should validate: %v", err)
	}
}
