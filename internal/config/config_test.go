package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Darobeats/Chequi-sub000/internal/config"
)

// clearEnv blanks every CHEQUI_* variable the loader reads so tests are
// isolated from the caller's environment. t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CHEQUI_CONFIG", "CHEQUI_HTTP_ADDR", "CHEQUI_ENV", "CHEQUI_DB_PATH",
		"CHEQUI_SIGNING_SECRET", "CHEQUI_ALLOWED_HOLD_MS", "CHEQUI_DENIED_HOLD_MS",
		"CHEQUI_SYNC_INTERVAL_S", "CHEQUI_REPLAY_MAX_ATTEMPTS", "CHEQUI_REPLAY_BACKOFF_MS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected default env dev, got %q", cfg.Env)
	}
	if cfg.DBPath != "./data/chequi.db" {
		t.Errorf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.SyncIntervalSeconds != 60 {
		t.Errorf("expected default sync interval 60, got %d", cfg.SyncIntervalSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHEQUI_HTTP_ADDR", ":9999")
	t.Setenv("CHEQUI_ENV", "prod")
	t.Setenv("CHEQUI_ALLOWED_HOLD_MS", "2000")
	t.Setenv("CHEQUI_SYNC_INTERVAL_S", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("expected :9999, got %q", cfg.HTTPAddr)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected prod, got %q", cfg.Env)
	}
	if cfg.AllowedHoldMillis != 2000 {
		t.Errorf("expected 2000, got %d", cfg.AllowedHoldMillis)
	}
	if cfg.SyncIntervalSeconds != 0 {
		t.Errorf("expected scheduler disabled (0), got %d", cfg.SyncIntervalSeconds)
	}
}

func TestLoad_YAMLFileLayer(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chequi.yaml")
	body := []byte("http_addr: \":7070\"\ndb_path: /tmp/file.db\ndenied_hold_ms: 5000\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CHEQUI_CONFIG", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":7070" {
		t.Errorf("expected :7070 from file, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/file.db" {
		t.Errorf("expected file db path, got %q", cfg.DBPath)
	}
	if cfg.DeniedHoldMillis != 5000 {
		t.Errorf("expected 5000, got %d", cfg.DeniedHoldMillis)
	}
	// Values the file does not mention keep their defaults.
	if cfg.Env != "dev" {
		t.Errorf("expected default env, got %q", cfg.Env)
	}
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chequi.yaml")
	if err := os.WriteFile(path, []byte("http_addr: \":7070\"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CHEQUI_CONFIG", path)
	t.Setenv("CHEQUI_HTTP_ADDR", ":9999")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("env must win over file: expected :9999, got %q", cfg.HTTPAddr)
	}
}

func TestLoad_MissingConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHEQUI_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHEQUI_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("unknown env should fall back to dev, got %q", cfg.Env)
	}
}
