// Package config reads the leave-ledger service configuration.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration. Environment variables win
// over command-line flags; flags win over defaults.
type Config struct {
	Addr         string `env:"LEAVE_ADDR"`
	DatabasePath string `env:"LEAVE_DB_PATH"`
	RecalcSpec   string `env:"LEAVE_RECALC_CRON"`
	CORSOrigins  string `env:"LEAVE_CORS_ORIGINS"`
}

// Parse reads the configuration from command-line flags and environment
// variables.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envAddr := cfg.Addr
	envDatabasePath := cfg.DatabasePath
	envRecalcSpec := cfg.RecalcSpec
	envCORSOrigins := cfg.CORSOrigins

	flag.StringVar(&cfg.Addr, "a", ":8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabasePath, "d", "./data/leave.db", "SQLite database path (:memory: for ephemeral)")
	flag.StringVar(&cfg.RecalcSpec, "recalc", "0 2 * * *", "cron spec for the nightly expiry sweep")
	flag.StringVar(&cfg.CORSOrigins, "cors", "*", "comma-separated allowed CORS origins")

	flag.Parse()

	if envAddr != "" {
		cfg.Addr = envAddr
	}
	if envDatabasePath != "" {
		cfg.DatabasePath = envDatabasePath
	}
	if envRecalcSpec != "" {
		cfg.RecalcSpec = envRecalcSpec
	}
	if envCORSOrigins != "" {
		cfg.CORSOrigins = envCORSOrigins
	}

	return cfg, nil
}
