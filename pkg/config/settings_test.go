package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackup-io/stackup/pkg/engine"
)

func TestNewSettings_DefaultsAreValid(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	settings, err := NewSettings(store)
	if err != nil {
		t.Fatalf("NewSettings failed on defaults: %v", err)
	}

	if settings.ProbeMaxAttempts < 1 {
		t.Errorf("Expected at least one probe attempt, got %d", settings.ProbeMaxAttempts)
	}
	if settings.ProbeInterval < 0 {
		t.Errorf("Expected non-negative probe interval, got %s", settings.ProbeInterval)
	}
	if settings.TimescaleDBAddr() == "" || settings.RedisAddr() == "" {
		t.Error("Expected probe addresses from defaults")
	}
}

func TestNewSettings_PortOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("redis_port: \"70000\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = NewSettings(store)
	if err == nil {
		t.Fatal("Expected validation error for out-of-range port")
	}
	if !engine.IsKind(err, engine.KindInvalidValue) {
		t.Errorf("Expected KindInvalidValue, got %s", engine.KindOf(err))
	}
}

func TestNewSettings_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("probe_interval: soon\n"), 0o644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = NewSettings(store)
	if !engine.IsKind(err, engine.KindInvalidValue) {
		t.Errorf("Expected KindInvalidValue, got %v", err)
	}
}

func TestNewSettings_OverrideChangesProbePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("probe_max_attempts: \"7\"\nprobe_interval: 500ms\n"), 0o644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	settings, err := NewSettings(store)
	if err != nil {
		t.Fatalf("NewSettings failed: %v", err)
	}
	if settings.ProbeMaxAttempts != 7 {
		t.Errorf("Expected 7 attempts, got %d", settings.ProbeMaxAttempts)
	}
	if settings.ProbeInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms interval, got %s", settings.ProbeInterval)
	}
}
