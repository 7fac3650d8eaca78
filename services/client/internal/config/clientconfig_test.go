package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL", "API_BASE_URL", "API_TIMEOUT", "SESSION_REFRESH_ON_EXPIRY",
		"SESSION_STORE", "REDIS_DSN", "DATABASE_URL", "SESSION_SQLITE_PATH",
		"SESSION_NAMESPACE", "ANALYTICS_ENABLED", "NATS_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:5000/api" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.APITimeout)
	}
	if cfg.RefreshOnExpiry || cfg.AnalyticsEnabled {
		t.Fatal("refresh and analytics default to off")
	}
	if want := filepath.Join(home, ".unisocial", "session.db"); cfg.Store.SQLitePath != want {
		t.Fatalf("expected sqlite path %q, got %q", want, cfg.Store.SQLitePath)
	}
	if cfg.Store.Namespace != "unisocial" {
		t.Fatalf("unexpected namespace %q", cfg.Store.Namespace)
	}
}

func TestLoadClient_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://forum.example.edu/api/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("SESSION_REFRESH_ON_EXPIRY", "true")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_DSN", "redis://localhost:6379/0")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://forum.example.edu/api" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second || !cfg.RefreshOnExpiry {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.RedisDSN == "" {
		t.Fatalf("unexpected store options %+v", cfg.Store)
	}
}

func TestLoadClient_RejectsRelativeBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "/api")
	_, err := LoadClient()
	if err == nil || !strings.Contains(err.Error(), "API_BASE_URL") {
		t.Fatalf("expected API_BASE_URL error, got %v", err)
	}
}
