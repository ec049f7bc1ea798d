package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds process settings loaded from MCPGATE_* environment
// variables. Gateway behavior lives in the YAML file.
type Settings struct {
	// LogLevel overrides logging.level from the config file.
	LogLevel string `env:"MCPGATE_LOG_LEVEL"`
	// LogFormat overrides logging.format ("json" or "text").
	LogFormat string `env:"MCPGATE_LOG_FORMAT"`
	// HTTPAddr enables the local admin listener (health, cache, audit, /metrics).
	HTTPAddr string `env:"MCPGATE_HTTP_ADDR"`
	// AuditDB is the sqlite audit log path. Empty disables auditing.
	AuditDB string `env:"MCPGATE_AUDIT_DB"`
	// AuditRetention is how long audit records are kept. Zero keeps them forever.
	AuditRetention time.Duration `env:"MCPGATE_AUDIT_RETENTION" envDefault:"720h"`
	// AgeIdentity is the age identity file used to open the secrets file.
	AgeIdentity string `env:"MCPGATE_AGE_IDENTITY"`
	// SecretsFile is an age-sealed dotenv file consulted before the environment.
	SecretsFile string `env:"MCPGATE_SECRETS_FILE"`
}

func loadSettings() (*Settings, error) {
	return parseSettings(nil)
}

// parseSettings decodes settings from environ, or the process
// environment when environ is nil.
func parseSettings(environ map[string]string) (*Settings, error) {
	var s Settings
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &s, nil
}

// defaultDataPath returns ~/.mcpgate/<filename>, falling back to
// a CWD-relative path if the home directory can't be resolved.
func defaultDataPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filename
	}
	return filepath.Join(home, ".mcpgate", filename)
}
