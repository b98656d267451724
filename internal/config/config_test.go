package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiwari-pos/terminal/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POS_CONFIG", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("port: got %q, want 8090", cfg.Port)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("cache backend: got %q, want memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("cache ttl: got %v, want 10m", cfg.CacheTTL)
	}
	if cfg.ReissueReceiptOnUpdate {
		t.Error("receipt reissue should be off by default")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terminal.yaml")
	content := `
port: "9000"
remote_url: http://pos.internal
cache_backend: redis
cache_ttl: 2m
allowed_origins:
  - http://kiosk.local
reissue_receipt_on_update: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("POS_CONFIG", path)
	t.Setenv("PORT", "9100")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should win over file: got port %q", cfg.Port)
	}
	if cfg.RemoteURL != "http://pos.internal" {
		t.Errorf("remote url: got %q", cfg.RemoteURL)
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("cache backend: got %q", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("cache ttl: got %v", cfg.CacheTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://kiosk.local" {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
	if !cfg.ReissueReceiptOnUpdate {
		t.Error("expected receipt reissue from file")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad ttl", "CACHE_TTL", "soon"},
		{"bad backend", "CACHE_BACKEND", "memcached"},
		{"bad printer", "PRINTER", "fax"},
		{"file printer without path", "PRINTER", "file"},
		{"bad bool", "REISSUE_RECEIPT_ON_UPDATE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POS_CONFIG", "")
			t.Setenv(tt.key, tt.val)
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
