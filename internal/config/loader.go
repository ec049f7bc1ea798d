package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied to optional fields left empty in the file.
const (
	DefaultTransport    = "stdio"
	DefaultTimeoutMs    = 30000
	DefaultKeyName      = "X-API-Key"
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	DefaultCacheTTL     = 300
	DefaultMaxEntries   = 1000
	DefaultMimeType     = "application/json"
)

var requiredKeys = []string{"name", "description", "version", "server", "api", "tools"}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*MCPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data. Unknown keys are rejected.
func Parse(data []byte) (*MCPConfig, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := top[k]; !ok {
			missing = append(missing, fmt.Sprintf("%s is required", k))
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Errors: missing}
	}

	var cfg MCPConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *MCPConfig) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = DefaultTransport
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultTimeoutMs
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = AuthNone
	}
	if cfg.Auth.Type == AuthAPIKey {
		if cfg.Auth.KeyName == "" {
			cfg.Auth.KeyName = DefaultKeyName
		}
		if cfg.Auth.KeyLocation == "" {
			cfg.Auth.KeyLocation = KeyInHeader
		}
	}
	for i := range cfg.Tools {
		if cfg.Tools[i].Endpoint.Method == "" {
			cfg.Tools[i].Endpoint.Method = "GET"
		}
		if cfg.Tools[i].InputSchema.Type == "" {
			cfg.Tools[i].InputSchema.Type = "object"
		}
	}
	for i := range cfg.Resources {
		if cfg.Resources[i].MimeType == "" {
			cfg.Resources[i].MimeType = DefaultMimeType
		}
		if ep := cfg.Resources[i].Endpoint; ep != nil && ep.Method == "" {
			ep.Method = "GET"
		}
	}
	if cfg.ErrorHandling.MaxRetries == 0 {
		cfg.ErrorHandling.MaxRetries = DefaultMaxRetries
	}
	if cfg.ErrorHandling.RetryDelayMs == 0 {
		cfg.ErrorHandling.RetryDelayMs = DefaultRetryDelayMs
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultMaxEntries
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
