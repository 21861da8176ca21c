// File path: internal/vector/qdrant.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/common"
)

// CollectionPrefix namespaces every tenant collection. One collection per
// university keeps tenants physically isolated in the store.
const CollectionPrefix = "university_"

var (
	// ErrCollectionNotFound reports a query against a tenant whose
	// collection was never created.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrUnavailable reports that the store could not be reached or
	// rejected the request. Callers must never treat it as an empty
	// result.
	ErrUnavailable = errors.New("vector store unavailable")
)

// Payload is the versioned metadata schema attached to every stored point.
// The store boundary only speaks this shape; untyped maps never cross it.
type Payload struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Hash       string `json:"hash"`
	University string `json:"university"`
	UploadedAt string `json:"uploaded_at"`
	PageFrom   int    `json:"page_from,omitempty"`
	PageTo     int    `json:"page_to,omitempty"`
}

// Valid reports whether a payload read back from the store carries the
// fields retrieval depends on. Records that predate the schema are skipped,
// not guessed at.
func (p Payload) Valid() bool {
	return strings.TrimSpace(p.Source) != "" && strings.TrimSpace(p.Hash) != ""
}

// Point is one embedded chunk ready for upsert.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a similarity search hit.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload Payload
}

// Store is the vector capability consumed by ingestion and retrieval. All
// methods address collections by tenant identifier; implementations derive
// the collection name themselves so callers cannot cross tenants.
type Store interface {
	EnsureCollection(ctx context.Context, tenant string, dim int) error
	HasFingerprint(ctx context.Context, tenant, hash string) (bool, error)
	Upsert(ctx context.Context, tenant string, points []Point) error
	Search(ctx context.Context, tenant string, vector []float32, limit int, threshold float64) ([]ScoredPoint, error)
	ListSources(ctx context.Context, tenant string) ([]string, error)
}

// CollectionName derives the deterministic collection for a tenant.
func CollectionName(tenant string) string {
	return CollectionPrefix + strings.ToLower(strings.TrimSpace(tenant))
}

// Client is a Qdrant REST client. It holds a pooled transport and is safe
// for concurrent use by independent ingestion and retrieval calls.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	apiKey     string
	cfg        Config
}

func NewClient(cfg Config) *Client {
	cfg.ApplyDefaults()
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	common.Logger().Info("vector: qdrant client initialized", "url", cfg.URL, "timeout", cfg.Timeout)
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}
}

var _ Store = (*Client)(nil)

// EnsureCollection creates the tenant collection with the given vector
// dimension when it does not exist yet. The dimension is fixed at creation
// and never altered afterwards.
func (c *Client) EnsureCollection(ctx context.Context, tenant string, dim int) error {
	if dim <= 0 {
		return errors.New("invalid vector dimension")
	}
	name := CollectionName(tenant)
	err := c.doRequest(ctx, http.MethodGet, c.collectionURL(name), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := c.doRequest(ctx, http.MethodPut, c.collectionURL(name), body, nil); err != nil {
		// Lost a create race with a concurrent ingestion for another
		// tenant sharing the store; the collection exists either way.
		if errors.Is(err, errConflict) {
			return nil
		}
		return err
	}
	common.Logger().Info("vector: collection created", "collection", name, "dim", dim)
	return nil
}

// HasFingerprint performs the duplicate gate: a point lookup filtered on the
// stored content hash, limit 1. A missing collection means the tenant has no
// documents at all, which is a confirmed "not a duplicate". Any transport or
// server failure is surfaced, never folded into "not found".
func (c *Client) HasFingerprint(ctx context.Context, tenant, hash string) (bool, error) {
	name := CollectionName(tenant)
	body := map[string]any{
		"limit":        1,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "hash", "match": map[string]any{"value": hash}},
			},
		},
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	err := c.doRequest(ctx, http.MethodPost, c.collectionURL(name)+"/points/scroll", body, &resp)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(resp.Result.Points) > 0, nil
}

// Upsert writes a batch of points with wait=true so a successful return
// means the batch is durably applied; a failure leaves no accepted file.
func (c *Client) Upsert(ctx context.Context, tenant string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	name := CollectionName(tenant)
	body := map[string]any{"points": points}
	endpoint := c.collectionURL(name) + "/points?wait=true"
	if err := c.doRequest(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		return err
	}
	common.Logger().Debug("vector: points upserted", "collection", name, "count", len(points))
	return nil
}

// Search runs similarity search over the tenant collection. The score
// threshold is applied server-side; hits with incomplete payloads are
// dropped here rather than passed upstream.
func (c *Client) Search(ctx context.Context, tenant string, vector []float32, limit int, threshold float64) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 8
	}
	name := CollectionName(tenant)
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		body["score_threshold"] = threshold
	}
	var resp struct {
		Result []struct {
			ID      json.Number `json:"id"`
			Score   float64     `json:"score"`
			Payload Payload     `json:"payload"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodPost, c.collectionURL(name)+"/points/search", body, &resp); err != nil {
		return nil, err
	}
	logger := common.Logger()
	hits := make([]ScoredPoint, 0, len(resp.Result))
	for _, hit := range resp.Result {
		if !hit.Payload.Valid() {
			logger.Warn("vector: dropping hit with unknown payload shape", "collection", name, "id", hit.ID.String())
			continue
		}
		hits = append(hits, ScoredPoint{ID: hit.ID.String(), Score: hit.Score, Payload: hit.Payload})
	}
	return hits, nil
}

// ListSources scrolls the tenant collection and collects the distinct
// source filenames, preserving first-seen order.
func (c *Client) ListSources(ctx context.Context, tenant string) ([]string, error) {
	name := CollectionName(tenant)
	body := map[string]any{
		"limit":        c.cfg.ScrollLimit,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodPost, c.collectionURL(name)+"/points/scroll", body, &resp); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var sources []string
	for _, point := range resp.Result.Points {
		source := strings.TrimSpace(point.Payload.Source)
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources, nil
}

// Close releases pooled connections.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

var errConflict = errors.New("resource conflict")

func (c *Client) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", c.baseURL, url.PathEscape(name))
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrCollectionNotFound
	case resp.StatusCode == http.StatusConflict:
		return errConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: qdrant %s %s: %s", ErrUnavailable, method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
