package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "ARCHIVE_RETENTION"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want 3001", cfg.Port)
	}
	if cfg.RateLimitMax != 100 {
		t.Errorf("RateLimitMax = %d, want 100", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != time.Hour {
		t.Errorf("RateLimitWindow = %v, want 1h", cfg.RateLimitWindow)
	}
	if cfg.ArchiveRetention != 30*24*time.Hour {
		t.Errorf("ArchiveRetention = %v, want 720h", cfg.ArchiveRetention)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "15m")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.RateLimitMax != 10 {
		t.Errorf("RateLimitMax = %d, want 10", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 15m", cfg.RateLimitWindow)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()
	if cfg.RateLimitMax != 100 {
		t.Errorf("invalid RATE_LIMIT_MAX should fall back to 100, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != time.Hour {
		t.Errorf("invalid RATE_LIMIT_WINDOW should fall back to 1h, got %v", cfg.RateLimitWindow)
	}
}

func TestLoadProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	content := `{
		"providers": [
			{"name": "local", "base_url": "http://localhost:8080/v1", "model": "small-model"},
			{"name": "hosted", "base_url": "https://api.example.com/v1", "api_key": "sk-x", "model": "big-model"}
		],
		"default": "hosted"
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write providers file: %v", err)
	}

	cfg, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders failed: %v", err)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}

	def := cfg.DefaultProvider()
	if def == nil || def.Name != "hosted" {
		t.Errorf("DefaultProvider = %+v, want hosted", def)
	}
}

func TestLoadProvidersMissingFile(t *testing.T) {
	if _, err := LoadProviders(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file should return an error")
	}
}
