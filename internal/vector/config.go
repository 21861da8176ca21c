// File path: internal/vector/config.go
package vector

import (
	"strings"
	"time"
)

// Config carries the Qdrant connection settings. Values left at zero are
// filled by ApplyDefaults.
type Config struct {
	URL    string
	APIKey string

	Timeout     time.Duration
	ScrollLimit int

	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPIdleConnTimeout time.Duration
}

// Merge overlays non-zero fields from the override onto the receiver.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.URL) != "" {
		result.URL = strings.TrimSpace(override.URL)
	}
	if strings.TrimSpace(override.APIKey) != "" {
		result.APIKey = override.APIKey
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if override.ScrollLimit > 0 {
		result.ScrollLimit = override.ScrollLimit
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPMaxIdlePerHost > 0 {
		result.HTTPMaxIdlePerHost = override.HTTPMaxIdlePerHost
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	return result
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.URL) == "" {
		c.URL = "http://localhost:6333"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ScrollLimit <= 0 {
		c.ScrollLimit = 1000
	}
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = 32
	}
	if c.HTTPMaxIdlePerHost <= 0 {
		c.HTTPMaxIdlePerHost = 8
	}
	if c.HTTPIdleConnTimeout <= 0 {
		c.HTTPIdleConnTimeout = 90 * time.Second
	}
}
