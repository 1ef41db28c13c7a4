package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	if cfg.HistoryLimit != 50 || cfg.MaxChatLength != 2000 || cfg.MapSpawnX != 10 || cfg.MapSpawnY != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9090\"\nhistory_limit: 20\ngeometry_cache_ttl: 30s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GRIDVERSE_JWT_SECRET", "from-env")
	t.Setenv("GRIDVERSE_HISTORY_LIMIT", "10")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.GeometryCacheTTL != 30*time.Second {
		t.Fatalf("expected ttl from file, got %v", cfg.GeometryCacheTTL)
	}
	if cfg.JWTSecret != "from-env" || cfg.HistoryLimit != 10 {
		t.Fatalf("env must override file, got secret=%q history=%d", cfg.JWTSecret, cfg.HistoryLimit)
	}
	if cfg.MaxChatLength != 2000 {
		t.Fatalf("unset keys keep defaults, got %d", cfg.MaxChatLength)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", LogLevel: "debug"})
	if cfg.Addr != ":1" || cfg.LogLevel != "debug" || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected merge: %+v", cfg)
	}
}
