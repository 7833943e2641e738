package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// DB
	Env    string `yaml:"env"`     // "dev" | "prod"
	DBPath string `yaml:"db_path"` // e.g. "./data/chequi.db"

	// Optional server-side salt mixed into the offline signing key.
	// Empty keeps parity with client-derivable keys.
	SigningSecret string `yaml:"signing_secret"`

	// Result presentation holds, in milliseconds. 0 means default.
	AllowedHoldMillis int `yaml:"allowed_hold_ms"`
	DeniedHoldMillis  int `yaml:"denied_hold_ms"`

	// Offline replay
	SyncIntervalSeconds int `yaml:"sync_interval_s"`    // 0 disables the scheduler
	ReplayMaxAttempts   int `yaml:"replay_max_attempts"`
	ReplayBackoffMillis int `yaml:"replay_backoff_ms"`
}

// Load builds the configuration in three layers: defaults, then an
// optional YAML file named by CHEQUI_CONFIG, then CHEQUI_* environment
// variables. Env always wins over file values.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CHEQUI_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPAddr:            ":8080",
		Env:                 "dev",
		DBPath:              "./data/chequi.db",
		SyncIntervalSeconds: 60,
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "CHEQUI_HTTP_ADDR")
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CHEQUI_ENV"))); v != "" {
		cfg.Env = v
	}
	setString(&cfg.DBPath, "CHEQUI_DB_PATH")
	setString(&cfg.SigningSecret, "CHEQUI_SIGNING_SECRET")
	setInt(&cfg.AllowedHoldMillis, "CHEQUI_ALLOWED_HOLD_MS")
	setInt(&cfg.DeniedHoldMillis, "CHEQUI_DENIED_HOLD_MS")
	setInt(&cfg.SyncIntervalSeconds, "CHEQUI_SYNC_INTERVAL_S")
	setInt(&cfg.ReplayMaxAttempts, "CHEQUI_REPLAY_MAX_ATTEMPTS")
	setInt(&cfg.ReplayBackoffMillis, "CHEQUI_REPLAY_BACKOFF_MS")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return
	}
	*dst = n
}
