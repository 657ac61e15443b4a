package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Mode != ModeUser || cfg.Leaderboard.Window != "week" || cfg.Leaderboard.Limit != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
api:
  base_url: http://trivia.internal/api
  mode: guest
leaderboard:
  window: day
  limit: 25
redis:
  addr: localhost:6379
  ttl: 1h
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRIVIA_PROFILE", "alice")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Mode != ModeGuest || cfg.API.BaseURL != "http://trivia.internal/api" {
		t.Fatalf("unexpected api section: %+v", cfg.API)
	}
	if cfg.Leaderboard.Window != "day" || cfg.Leaderboard.Limit != 25 {
		t.Fatalf("unexpected leaderboard section: %+v", cfg.Leaderboard)
	}
	if cfg.Profile != "alice" {
		t.Fatalf("expected env profile, got %q", cfg.Profile)
	}
	if got := TTLDuration(cfg.Redis.TTL, time.Minute); got != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", got)
	}
}

func TestTTLDurationFallsBackOnGarbage(t *testing.T) {
	if got := TTLDuration("soon", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}
