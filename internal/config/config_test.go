package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Recommend.MinVisits != 3 || cfg.Recommend.MinClicks != 2 {
		t.Errorf("gating defaults = %d/%d, want 3/2", cfg.Recommend.MinVisits, cfg.Recommend.MinClicks)
	}
	if cfg.Recommend.SuppressFor != 24*time.Hour {
		t.Errorf("suppress_for = %v, want 24h", cfg.Recommend.SuppressFor)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEXTSONG_STORAGE_DRIVER", "sqlite")
	t.Setenv("NEXTSONG_STORAGE_PATH", "/tmp/test.db")
	t.Setenv("NEXTSONG_RECOMMEND_MIN_VISITS", "5")
	t.Setenv("NEXTSONG_LOGGING_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/test.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Recommend.MinVisits != 5 {
		t.Errorf("min_visits = %d, want 5", cfg.Recommend.MinVisits)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextsong.yaml")
	content := []byte(`
server:
  addr: ":9090"
recommend:
  suppress_for: 1h
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Recommend.SuppressFor != time.Hour {
		t.Errorf("suppress_for = %v, want 1h", cfg.Recommend.SuppressFor)
	}
	// Untouched settings keep their defaults.
	if cfg.Recommend.MinVisits != 3 {
		t.Errorf("min_visits = %d, want default 3", cfg.Recommend.MinVisits)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite"; c.Storage.Path = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"missing catalog path", func(c *Config) { c.Catalog.Path = "" }},
		{"analytics enabled without endpoint", func(c *Config) { c.Analytics.Enabled = true }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
