package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if time.Duration(cfg.Search.TimeBudget) != 10*time.Second {
		t.Fatalf("time budget = %v", cfg.Search.TimeBudget)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
listenAddr: ":9090"
rateRps: 5
search:
  construction: cheapest-insertion
  timeBudget: 2s
webhooks:
  - url: https://example.com/hook
    secret: s3cret
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("env should override file, got %q", cfg.ListenAddr)
	}
	if cfg.RateRPS != 5 {
		t.Fatalf("rate rps = %v", cfg.RateRPS)
	}
	if cfg.Search.Construction != "cheapest-insertion" || time.Duration(cfg.Search.TimeBudget) != 2*time.Second {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].URL != "https://example.com/hook" {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("want error for missing file")
	}
}
