// File path: internal/catalog/store.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Document is one accepted upload. The catalog is an audit record of
// ingestion outcomes; the vector collections remain the source of truth for
// retrieval.
type Document struct {
	ID         int64     `db:"id" json:"id"`
	Tenant     string    `db:"tenant" json:"tenant"`
	Filename   string    `db:"filename" json:"filename"`
	Hash       string    `db:"hash" json:"hash"`
	Pages      int       `db:"pages" json:"pages"`
	Chunks     int       `db:"chunks" json:"chunks"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Store wraps a pooled sqlx connection to the SQLite catalog.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant      TEXT NOT NULL,
	filename    TEXT NOT NULL,
	hash        TEXT NOT NULL,
	pages       INTEGER NOT NULL DEFAULT 0,
	chunks      INTEGER NOT NULL DEFAULT 0,
	uploaded_at TIMESTAMP NOT NULL,
	UNIQUE (tenant, hash)
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents (tenant, uploaded_at);
`

// Open constructs a Store backed by the SQLite database at path, creating
// the schema on first use.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", abs)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordDocument inserts the audit row for an accepted upload. Re-recording
// the same tenant/hash pair is ignored so catalog writes stay idempotent
// alongside the dedup gate.
func (s *Store) RecordDocument(ctx context.Context, doc Document) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (tenant, filename, hash, pages, chunks, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant, hash) DO NOTHING`,
		doc.Tenant, doc.Filename, doc.Hash, doc.Pages, doc.Chunks, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// History returns the tenant's accepted uploads, newest first.
func (s *Store) History(ctx context.Context, tenant string) ([]Document, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	docs := []Document{}
	err := s.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents WHERE tenant = ? ORDER BY uploaded_at DESC, id DESC`, tenant)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	return docs, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
