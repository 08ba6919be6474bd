package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.Window = "rectangular"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown window kind")
	}
}

func TestValidateRejectsZeroMaxSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero MaxSessions")
	}
}

func TestManagerLoadWritesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := filepath.Abs(m.GetPath()); err != nil {
		t.Fatalf("GetPath: %v", err)
	}
	if m.Get().MaxSessions != DefaultConfig().MaxSessions {
		t.Fatalf("expected defaults to be written, got %+v", m.Get())
	}
}

func TestManagerRoundTripsThroughSave(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	cfg.MaxSessions = 42
	if err := m.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	m2 := NewManager(dir)
	if err := m2.Load(); err != nil {
		t.Fatalf("reload Load: %v", err)
	}
	if m2.Get().MaxSessions != 42 {
		t.Fatalf("expected reloaded MaxSessions=42, got %d", m2.Get().MaxSessions)
	}
}
