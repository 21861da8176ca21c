// File path: internal/kb/types.go
package kb

import (
	"fmt"
)

// PageRange is a best-effort page span within the source document. A zero
// value means the location could not be determined.
type PageRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// Known reports whether the range carries usable page information.
func (p PageRange) Known() bool {
	return p.From > 0
}

// String renders the range for prompts and API responses.
func (p PageRange) String() string {
	if !p.Known() {
		return "Bilinmiyor"
	}
	if p.To > p.From {
		return fmt.Sprintf("%d-%d", p.From, p.To)
	}
	return fmt.Sprintf("%d", p.From)
}

// RetrievedSource is the query-time projection of a stored chunk. It is
// constructed fresh per query and never persisted.
type RetrievedSource struct {
	Content    string    `json:"content"`
	SourceFile string    `json:"source"`
	Pages      PageRange `json:"pages"`
	Score      float64   `json:"score"`
}

// Extraction is the result of pulling plain text out of a document.
type Extraction struct {
	Text      string
	PageCount int
}
