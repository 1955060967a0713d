package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsTightInactivityThreshold(t *testing.T) {
	cfg := Default()
	cfg.HeartbeatInterval = 10 * time.Second
	cfg.InactivityThreshold = 11 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for threshold within heartbeat margin")
	}
}

func TestValidateRejectsTinySeatCount(t *testing.T) {
	cfg := Default()
	cfg.SeatCount = 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for seat_count 1")
	}
}

func TestLoadWritesDefaultAndAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("HUDDLE_ROOM", "game-night")
	t.Setenv("HUDDLE_GRACE_WINDOW", "90s")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected default config file to be written: %v", statErr)
	}
	if cfg.Room != "game-night" {
		t.Fatalf("expected env override for room, got %q", cfg.Room)
	}
	if cfg.GraceWindow != 90*time.Second {
		t.Fatalf("expected env override for grace window, got %s", cfg.GraceWindow)
	}
	if cfg.SeatCount != 12 {
		t.Fatalf("expected default seat count 12, got %d", cfg.SeatCount)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("seat_count: 8\nhost_prefix: \"Boss-\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SeatCount != 8 || cfg.HostPrefix != "Boss-" {
		t.Fatalf("unexpected config from file: seat_count=%d host_prefix=%q", cfg.SeatCount, cfg.HostPrefix)
	}
}
