// File path: internal/embedding/openai.go
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/kampusdesk/kampusdesk/internal/common"
)

// Embedder is the embedding capability: deterministic fixed-dimension
// vectors for text inputs. Implementations declare their output dimension
// up front so collections can be created with a matching size.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Dimension() int
}

// Config selects the OpenAI-compatible embeddings endpoint. BaseURL may
// point at any server that speaks the /embeddings API (a local multilingual
// model server in the typical deployment).
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.BaseURL) != "" {
		result.BaseURL = strings.TrimSpace(override.BaseURL)
	}
	if strings.TrimSpace(override.APIKeyEnv) != "" {
		result.APIKeyEnv = strings.TrimSpace(override.APIKeyEnv)
	}
	if strings.TrimSpace(override.Model) != "" {
		result.Model = strings.TrimSpace(override.Model)
	}
	if override.Dimension > 0 {
		result.Dimension = override.Dimension
	}
	if override.BatchSize > 0 {
		result.BatchSize = override.BatchSize
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	return result
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.APIKeyEnv) == "" {
		c.APIKeyEnv = "EMBEDDING_API_KEY"
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "paraphrase-multilingual-MiniLM-L12-v2"
	}
	if c.Dimension <= 0 {
		c.Dimension = 384
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Client wraps the OpenAI embeddings API. It is stateless apart from the
// pooled HTTP client inside the SDK and safe for concurrent use.
type Client struct {
	api       openai.Client
	model     string
	dimension int
	batchSize int
}

// NewClient validates the endpoint config before the defaults paper over
// it: a negative dimension and a base URL that is not absolute are caller
// mistakes, not values to coerce.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Dimension < 0 {
		return nil, fmt.Errorf("embedding dimension must not be negative, got %d", cfg.Dimension)
	}
	cfg.ApplyDefaults()
	opts := []option.RequestOption{option.WithRequestTimeout(cfg.Timeout)}
	if key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("embedding base url: %w", err)
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	common.Logger().Info("embedding: client initialized", "model", cfg.Model, "dimension", cfg.Dimension)
	return &Client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

var _ Embedder = (*Client)(nil)

// Dimension returns the configured output dimension. Every vector returned
// by Embed is checked against it.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns one vector per input, in input order. Inputs are sent in
// bounded batches so large documents do not overrun request limits.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := c.embedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embeddings response: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}
	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, errors.New("embeddings response: index out of range")
		}
		if len(item.Embedding) != c.dimension {
			return nil, fmt.Errorf("embeddings response: dimension %d does not match configured %d", len(item.Embedding), c.dimension)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[idx] = vec
	}
	return vectors, nil
}
