// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/embedding"
	"github.com/kampusdesk/kampusdesk/internal/kb"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

// ErrNoDocuments reports a query against a tenant that has no collection
// yet. It is a reportable condition, distinct from a pipeline failure.
var ErrNoDocuments = errors.New("no documents ingested for tenant")

const (
	DefaultTopK           = 8
	DefaultScoreThreshold = 0.5
)

// Config carries the retrieval defaults applied when a caller passes zero
// values.
type Config struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
}

// Retriever embeds a question and runs similarity search over the tenant's
// collection. It is read-only and safe for concurrent queries.
type Retriever struct {
	store    vector.Store
	embedder embedding.Embedder
	cfg      Config
}

func New(store vector.Store, embedder embedding.Embedder, cfg Config) *Retriever {
	cfg.ApplyDefaults()
	return &Retriever{store: store, embedder: embedder, cfg: cfg}
}

// Retrieve returns up to k sources ordered by descending similarity, all at
// or above the threshold. Zero k or threshold select the configured
// defaults. Scores are normalized into [0,1]; a non-numeric or out-of-range
// store score is replaced by a deterministic rank-based fallback instead of
// failing the query.
func (r *Retriever) Retrieve(ctx context.Context, tenant, query string, k int, threshold float64) ([]kb.RetrievedSource, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query required")
	}
	if k <= 0 {
		k = r.cfg.TopK
	}
	if threshold <= 0 {
		threshold = r.cfg.ScoreThreshold
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("embed query: no vector returned")
	}
	hits, err := r.store.Search(ctx, tenant, vectors[0], k, threshold)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return nil, ErrNoDocuments
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	sources := make([]kb.RetrievedSource, 0, len(hits))
	for rank, hit := range hits {
		score := normalizeScore(hit.Score, rank)
		if score < threshold {
			continue
		}
		sources = append(sources, kb.RetrievedSource{
			Content:    hit.Payload.Content,
			SourceFile: hit.Payload.Source,
			Pages:      kb.PageRange{From: hit.Payload.PageFrom, To: hit.Payload.PageTo},
			Score:      score,
		})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Score > sources[j].Score
	})
	common.Logger().Debug("retriever: query served", "tenant", tenant, "hits", len(sources), "k", k, "threshold", threshold)
	return sources, nil
}

// normalizeScore keeps the store's similarity when it is a sane [0,1]
// value. A non-numeric or out-of-range score is replaced by a monotonically
// decreasing rank-based fallback so ordering stays deterministic instead of
// failing the whole query.
func normalizeScore(score float64, rank int) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 1 {
		fallback := 0.8 - 0.05*float64(rank)
		if fallback < 0 {
			fallback = 0
		}
		return fallback
	}
	return score
}
