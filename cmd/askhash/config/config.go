// Package config loads askhash's runtime configuration: where to
// persist answers, and how verbosely to log. Grounded on
// oriys-nova/internal/config's DefaultConfig/LoadFromFile/LoadFromEnv
// layering, adapted from JSON to YAML (gopkg.in/yaml.v3, present across
// the pack's go.mod files) since askhash has no JSON surface elsewhere
// to match.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is askhash's whole configuration surface.
type Config struct {
	// DatabaseDSN selects the persistent store. Empty means use an
	// in-memory store (db/memstore) that does not survive the process.
	// A postgres:// DSN selects db/pgstore instead.
	DatabaseDSN string `yaml:"database_dsn"`

	// LogLevel is one of: disabled, error, warning, info, debug, trace.
	LogLevel string `yaml:"log_level"`

	// CycleGuard enables dispatch's opt-in synchronous cycle detector.
	CycleGuard bool `yaml:"cycle_guard"`
}

// Default returns askhash's baseline configuration: an in-memory store
// and info-level logging.
func Default() *Config {
	return &Config{
		DatabaseDSN: "",
		LogLevel:    "info",
		CycleGuard:  false,
	}
}

// LoadFromFile reads a YAML config file, starting from Default and
// letting the file override only the fields it sets.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies ASKHASH_-prefixed environment variable overrides
// to cfg in place, mirroring oriys-nova's env-override convention.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ASKHASH_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("ASKHASH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ASKHASH_CYCLE_GUARD"); v != "" {
		cfg.CycleGuard = v == "true" || v == "1" || v == "yes"
	}
}
