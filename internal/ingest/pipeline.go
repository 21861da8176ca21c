// File path: internal/ingest/pipeline.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kampusdesk/kampusdesk/internal/catalog"
	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/embedding"
	"github.com/kampusdesk/kampusdesk/internal/kb"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

var (
	// ErrInvalidDocument marks bytes that are empty or do not carry a
	// recognized document signature.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrEmptyContent marks a document that parsed but yielded no
	// extractable text.
	ErrEmptyContent = errors.New("no extractable text")
)

// Extractor is the document text extraction capability.
type Extractor interface {
	Extract(data []byte) (kb.Extraction, error)
}

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Failure records why a single file was rejected.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report is the per-batch outcome. A duplicate is a reportable outcome,
// not an error; a failed file never hides the files that succeeded.
type Report struct {
	Accepted   []string  `json:"accepted"`
	Duplicates []string  `json:"duplicates"`
	Failed     []Failure `json:"failed"`
}

// Pipeline turns raw PDF bytes into embedded, deduplicated chunk records in
// the tenant's collection. All collaborators are injected once at
// construction; the pipeline itself holds no per-call state beyond the
// per-tenant locks.
type Pipeline struct {
	store     vector.Store
	embedder  embedding.Embedder
	extractor Extractor
	splitter  *kb.Splitter
	catalog   *catalog.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewPipeline(store vector.Store, embedder embedding.Embedder, extractor Extractor, splitter *kb.Splitter, cat *catalog.Store) *Pipeline {
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		splitter:  splitter,
		catalog:   cat,
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// tenantLock returns the mutex serializing ingestion for one tenant.
// Concurrent batches for the same tenant could each miss the other's
// in-flight fingerprint and double-store a document; batches for different
// tenants proceed in parallel.
func (p *Pipeline) tenantLock(tenant string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[tenant]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[tenant] = lock
	}
	return lock
}

// Ingest processes the batch strictly sequentially. A single file's failure
// is collected and never aborts the rest of the batch. Re-submitting
// byte-identical files is a no-op reported through Duplicates.
func (p *Pipeline) Ingest(ctx context.Context, tenant string, files []File) (Report, error) {
	tenant = strings.ToLower(strings.TrimSpace(tenant))
	if tenant == "" {
		return Report{}, errors.New("tenant required")
	}
	lock := p.tenantLock(tenant)
	lock.Lock()
	defer lock.Unlock()

	logger := common.Logger()
	logger.Info("ingest: batch started", "tenant", tenant, "files", len(files))
	var report Report
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := p.ingestFile(ctx, tenant, file)
		switch {
		case err != nil:
			logger.Warn("ingest: file rejected", "tenant", tenant, "file", file.Name, "error", err)
			report.Failed = append(report.Failed, Failure{Name: file.Name, Reason: err.Error()})
		case outcome.duplicate:
			logger.Info("ingest: duplicate skipped", "tenant", tenant, "file", file.Name, "hash", outcome.hash)
			report.Duplicates = append(report.Duplicates, file.Name)
		default:
			logger.Info("ingest: file accepted", "tenant", tenant, "file", file.Name, "chunks", outcome.chunks)
			report.Accepted = append(report.Accepted, file.Name)
		}
	}
	logger.Info("ingest: batch finished",
		"tenant", tenant,
		"accepted", len(report.Accepted),
		"duplicates", len(report.Duplicates),
		"failed", len(report.Failed))
	return report, nil
}

type fileOutcome struct {
	duplicate bool
	hash      string
	chunks    int
}

func (p *Pipeline) ingestFile(ctx context.Context, tenant string, file File) (fileOutcome, error) {
	if len(file.Data) == 0 {
		return fileOutcome{}, fmt.Errorf("%w: empty file", ErrInvalidDocument)
	}
	if !kb.LooksLikePDF(file.Data) {
		return fileOutcome{}, fmt.Errorf("%w: missing pdf signature", ErrInvalidDocument)
	}

	hash := kb.Fingerprint(file.Data)
	exists, err := p.store.HasFingerprint(ctx, tenant, hash)
	if err != nil {
		// A failed duplicate check is not "not a duplicate"; storing
		// anyway would grow the collection unboundedly on retries.
		return fileOutcome{}, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return fileOutcome{duplicate: true, hash: hash}, nil
	}

	extraction, err := p.extractor.Extract(file.Data)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	segments := p.splitter.Split(extraction.Text, extraction.PageCount)
	if len(segments) == 0 {
		return fileOutcome{}, ErrEmptyContent
	}

	uploadedAt := p.now().UTC()
	contents := make([]string, len(segments))
	for i, seg := range segments {
		contents[i] = seg.Content
	}
	vectors, err := p.embedder.Embed(ctx, contents)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(segments) {
		return fileOutcome{}, fmt.Errorf("embed chunks: got %d vectors for %d segments", len(vectors), len(segments))
	}

	if err := p.store.EnsureCollection(ctx, tenant, p.embedder.Dimension()); err != nil {
		return fileOutcome{}, fmt.Errorf("ensure collection: %w", err)
	}
	points := make([]vector.Point, len(segments))
	for i, seg := range segments {
		points[i] = vector.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: vector.Payload{
				Content:    seg.Content,
				Source:     file.Name,
				Hash:       hash,
				University: tenant,
				UploadedAt: uploadedAt.Format(time.RFC3339),
				PageFrom:   seg.Pages.From,
				PageTo:     seg.Pages.To,
			},
		}
	}
	// One batch per file: either every chunk lands or the file fails whole.
	if err := p.store.Upsert(ctx, tenant, points); err != nil {
		return fileOutcome{}, fmt.Errorf("upsert chunks: %w", err)
	}

	if p.catalog != nil {
		doc := catalog.Document{
			Tenant:     tenant,
			Filename:   file.Name,
			Hash:       hash,
			Pages:      extraction.PageCount,
			Chunks:     len(segments),
			UploadedAt: uploadedAt,
		}
		if err := p.catalog.RecordDocument(ctx, doc); err != nil {
			// The vector store already accepted the file; catalog rows
			// are audit data, so log and keep the accepted outcome.
			common.Logger().Warn("ingest: catalog record failed", "tenant", tenant, "file", file.Name, "error", err)
		}
	}
	return fileOutcome{hash: hash, chunks: len(segments)}, nil
}
