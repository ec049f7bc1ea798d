package cache

import (
	"time"

	"github.com/revittco/mcpgate/internal/config"
)

// Config holds the cache policy.
type Config struct {
	Enabled    bool
	DefaultTTL time.Duration
	MaxEntries int
	KeyPrefix  string
}

// ConfigFrom converts the file-level cache section.
func ConfigFrom(c config.CacheConfig) Config {
	return Config{
		Enabled:    c.Enabled,
		DefaultTTL: c.DefaultTTLDuration(),
		MaxEntries: c.MaxEntries,
		KeyPrefix:  c.KeyPrefix,
	}
}
