package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGISTRY_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected server address: %s", cfg.Server.Address)
	}
	if cfg.Registry.RateLimit.MaxRequests != 600 || cfg.Registry.RateLimit.Window != 5*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.Registry.RateLimit)
	}
	if cfg.Registry.CacheTTL != 24*time.Hour {
		t.Fatalf("unexpected cache TTL: %s", cfg.Registry.CacheTTL)
	}
	if cfg.Cache.Backend != "memory" || cfg.Usage.Backend != "memory" {
		t.Fatalf("unexpected backend defaults: cache=%s usage=%s", cfg.Cache.Backend, cfg.Usage.Backend)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("REGISTRY_API_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("REGISTRY_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  address: ":9090"
registry:
  apiKey: "file-key"
  rateLimit:
    maxRequests: 100
    window: 1m
cache:
  backend: redis
  url: "redis://localhost:6379/0"
usage:
  backend: postgres
  dsn: "postgres://risk@localhost/risk"
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("file value not applied: %s", cfg.Server.Address)
	}
	if cfg.Registry.APIKey != "file-key" {
		t.Fatalf("api key not read from file: %q", cfg.Registry.APIKey)
	}
	if cfg.Registry.RateLimit.MaxRequests != 100 || cfg.Registry.RateLimit.Window != time.Minute {
		t.Fatalf("rate limit not read from file: %+v", cfg.Registry.RateLimit)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.URL != "redis://localhost:6379/0" {
		t.Fatalf("cache settings not read from file: %+v", cfg.Cache)
	}
	if cfg.Usage.Backend != "postgres" {
		t.Fatalf("usage backend not read from file: %+v", cfg.Usage)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging settings not read from file: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("REGISTRY_API_KEY", "env-key")
	t.Setenv("REGISTRY_RISK_SERVER_ADDRESS", ":7070")
	t.Setenv("REGISTRY_RISK_RATE_LIMIT_MAX", "50")
	t.Setenv("REGISTRY_RISK_CACHE_BACKEND", "NONE")
	t.Setenv("REGISTRY_RISK_LOG_FORMAT", "json")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  address: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env override lost: %s", cfg.Server.Address)
	}
	if cfg.Registry.APIKey != "env-key" {
		t.Fatalf("env api key lost: %q", cfg.Registry.APIKey)
	}
	if cfg.Registry.RateLimit.MaxRequests != 50 {
		t.Fatalf("env rate limit lost: %d", cfg.Registry.RateLimit.MaxRequests)
	}
	if cfg.Cache.Backend != "none" {
		t.Fatalf("cache backend override not lowercased: %s", cfg.Cache.Backend)
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format override lost")
	}
}
