package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Catalog.Source != "static" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Quiz.BaseScore != 10 || cfg.Quiz.MaxSpeedBonus != 10 {
		t.Fatalf("expected default scoring, got %+v", cfg.Quiz)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9000"
  allowed_origins: ["http://localhost:3000"]
quiz:
  review_delay: 5s
catalog:
  source: file
  path: /tmp/catalog.yaml
redis:
  addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Fatalf("expected env port override, got %s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis section %+v", cfg.Redis)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("expected origins from file, got %v", cfg.Server.AllowedOrigins)
	}
	if got := TTLDuration(cfg.Quiz.ReviewDelay, 0); got != 5*time.Second {
		t.Fatalf("expected 5s review delay, got %s", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown source":    "catalog:\n  source: mongo\n",
		"file without path": "catalog:\n  source: file\n",
		"postgres no url":   "catalog:\n  source: postgres\n",
		"negative base":     "quiz:\n  base_score: -1\n",
		"zero base":         "quiz:\n  base_score: 0\n  max_speed_bonus: 0\n",
		"bad log level":     "log:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
