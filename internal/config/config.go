// File path: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/embedding"
	"github.com/kampusdesk/kampusdesk/internal/kb"
	"github.com/kampusdesk/kampusdesk/internal/retriever"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

// Config is the assembled service configuration: YAML file values overlaid
// with environment variables, then component defaults for anything unset.
type Config struct {
	Addr        string
	CatalogPath string

	// ContextBudget caps the rendered source block, in characters.
	ContextBudget int

	// Tenants maps normalized university identifiers to display names
	// used in the advisor persona.
	Tenants map[string]string

	Qdrant    vector.Config
	Embedding embedding.Config
	Chat      chat.Config
	Chunker   kb.SplitterConfig
	Retrieval retriever.Config
}

// fileConfig is the YAML schema. Timeouts are integer seconds so the file
// stays plain YAML scalars.
type fileConfig struct {
	Addr          string            `yaml:"addr"`
	CatalogPath   string            `yaml:"catalog_path"`
	ContextBudget int               `yaml:"context_budget"`
	Tenants       map[string]string `yaml:"tenants"`

	Qdrant struct {
		URL         string `yaml:"url"`
		APIKey      string `yaml:"api_key"`
		TimeoutSecs int    `yaml:"timeout_secs"`
		ScrollLimit int    `yaml:"scroll_limit"`
	} `yaml:"qdrant"`

	Embedding struct {
		BaseURL     string `yaml:"base_url"`
		APIKeyEnv   string `yaml:"api_key_env"`
		Model       string `yaml:"model"`
		Dimension   int    `yaml:"dimension"`
		BatchSize   int    `yaml:"batch_size"`
		TimeoutSecs int    `yaml:"timeout_secs"`
	} `yaml:"embedding"`

	Chat struct {
		BaseURL              string `yaml:"base_url"`
		Model                string `yaml:"model"`
		FirstByteTimeoutSecs int    `yaml:"first_byte_timeout_secs"`
		StreamTimeoutSecs    int    `yaml:"stream_timeout_secs"`
	} `yaml:"chat"`

	Chunker   kb.SplitterConfig `yaml:"chunker"`
	Retrieval retriever.Config  `yaml:"retrieval"`
}

// Load reads the YAML file at path (when non-empty), overlays environment
// variables, and applies defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = file.toConfig()
	}
	cfg = cfg.mergeEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (f fileConfig) toConfig() Config {
	return Config{
		Addr:          f.Addr,
		CatalogPath:   f.CatalogPath,
		ContextBudget: f.ContextBudget,
		Tenants:       f.Tenants,
		Qdrant: vector.Config{
			URL:         f.Qdrant.URL,
			APIKey:      f.Qdrant.APIKey,
			Timeout:     time.Duration(f.Qdrant.TimeoutSecs) * time.Second,
			ScrollLimit: f.Qdrant.ScrollLimit,
		},
		Embedding: embedding.Config{
			BaseURL:   f.Embedding.BaseURL,
			APIKeyEnv: f.Embedding.APIKeyEnv,
			Model:     f.Embedding.Model,
			Dimension: f.Embedding.Dimension,
			BatchSize: f.Embedding.BatchSize,
			Timeout:   time.Duration(f.Embedding.TimeoutSecs) * time.Second,
		},
		Chat: chat.Config{
			BaseURL:          f.Chat.BaseURL,
			Model:            f.Chat.Model,
			FirstByteTimeout: time.Duration(f.Chat.FirstByteTimeoutSecs) * time.Second,
			StreamTimeout:    time.Duration(f.Chat.StreamTimeoutSecs) * time.Second,
		},
		Chunker:   f.Chunker,
		Retrieval: f.Retrieval,
	}
}

func (c Config) mergeEnv() Config {
	result := c
	if v := strings.TrimSpace(os.Getenv("ADDR")); v != "" {
		result.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_PATH")); v != "" {
		result.CatalogPath = v
	}
	if v := envInt("CONTEXT_BUDGET"); v > 0 {
		result.ContextBudget = v
	}
	result.Qdrant = result.Qdrant.Merge(vector.Config{
		URL:     os.Getenv("QDRANT_URL"),
		APIKey:  os.Getenv("QDRANT_API_KEY"),
		Timeout: envDuration("QDRANT_TIMEOUT"),
	})
	result.Embedding = result.Embedding.Merge(embedding.Config{
		BaseURL:   os.Getenv("EMBEDDING_BASE_URL"),
		APIKeyEnv: os.Getenv("EMBEDDING_API_KEY_ENV"),
		Model:     os.Getenv("EMBEDDING_MODEL"),
		Dimension: envInt("EMBEDDING_DIMENSION"),
		BatchSize: envInt("EMBEDDING_BATCH_SIZE"),
		Timeout:   envDuration("EMBEDDING_TIMEOUT"),
	})
	result.Chat = result.Chat.Merge(chat.Config{
		BaseURL:          os.Getenv("OLLAMA_URL"),
		Model:            os.Getenv("OLLAMA_MODEL"),
		FirstByteTimeout: envDuration("OLLAMA_FIRST_BYTE_TIMEOUT"),
		StreamTimeout:    envDuration("OLLAMA_STREAM_TIMEOUT"),
	})
	return result
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8080"
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		c.CatalogPath = "kampusdesk.db"
	}
	c.Qdrant.ApplyDefaults()
	c.Embedding.ApplyDefaults()
	c.Chat.ApplyDefaults()
	c.Retrieval.ApplyDefaults()
}

func envInt(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

func envDuration(key string) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return value
}
