// Package config provides configuration loading and validation for the
// coordinator. Worker configuration is loaded by internal/worker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SampleDBName is the well-known store name that unlocks the destructive
// reset endpoints. Any other DB_NAME value keeps those endpoints 403'd.
const SampleDBName = "lucky-sample.db"

// Config holds coordinator configuration loaded from environment variables.
type Config struct {
	// Port is the TCP port the server listens on (e.g. "8080").
	Port string

	// Host is the network interface to bind to. Empty means all interfaces.
	Host string

	// DBName is the filesystem path (or ":memory:") to the SQLite store.
	DBName string

	// LogLevel controls application logging: debug, info, warn, error.
	LogLevel string

	// APIToken is the bearer token required on mutating endpoints. An empty
	// value means those endpoints are unreachable, not open: see the
	// fail-closed auth middleware in internal/server.
	APIToken string

	// ShutdownTimeout is the budget for graceful shutdown (e.g. "30s").
	ShutdownTimeout time.Duration

	// SweepInterval controls how often the lease sweeper reclaims stale
	// reservations.
	SweepInterval time.Duration

	// WalletDescriptorPath is the filesystem path to the JSON wallet
	// descriptor loaded once at boot.
	WalletDescriptorPath string
}

// IsSampleStore reports whether the configured DBName permits destructive
// reset operations. Compared by base name so a full path such as
// "/data/lucky-sample.db" still qualifies.
func (c *Config) IsSampleStore() bool {
	return filepath.Base(c.DBName) == SampleDBName
}

// Load reads configuration from environment variables, applies defaults and
// validates required values. It returns a configured Config or an error.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     strings.TrimSpace(os.Getenv("PORT")),
		Host:     strings.TrimSpace(os.Getenv("HOST")),
		DBName:   strings.TrimSpace(os.Getenv("DB_NAME")),
		LogLevel: strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	} else {
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	}

	if cfg.DBName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}

	// API token is intentionally allowed to be empty here: enforcement of
	// the fail-closed policy happens in the auth middleware, not at load
	// time, so a missing token surfaces consistently as 401s rather than a
	// boot-time error.
	cfg.APIToken = os.Getenv("API_TOKEN")

	if st := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); st == "" {
		cfg.ShutdownTimeout = 30 * time.Second
	} else {
		d, err := time.ParseDuration(st)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	if sw := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL")); sw == "" {
		cfg.SweepInterval = time.Hour
	} else {
		d, err := time.ParseDuration(sw)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}

	cfg.WalletDescriptorPath = strings.TrimSpace(os.Getenv("WALLET_DESCRIPTOR_PATH"))
	if cfg.WalletDescriptorPath == "" {
		return nil, fmt.Errorf("WALLET_DESCRIPTOR_PATH is required")
	}

	return cfg, nil
}
