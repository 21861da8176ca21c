// File path: internal/kb/chunker.go
package kb

import (
	"errors"
	"strings"
)

// DefaultSeparators is the boundary preference order used when splitting
// extracted text. Sentence-ending punctuation includes the forms produced by
// Turkish prose, matching the corpora this service ingests.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// SplitterConfig controls segment sizing. A zero field takes its default;
// the default overlap applies only when it fits under the effective chunk
// size. Overlap must be strictly smaller than the chunk size or the
// splitter could stop making forward progress.
type SplitterConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
}

// Segment is one emitted chunk of text plus its best-effort page location.
// Segments are produced in document reading order; downstream citation
// depends on that ordering.
type Segment struct {
	Content string
	Pages   PageRange
}

// Splitter cuts extracted text into overlapping segments, preferring natural
// boundaries (paragraph break, newline, sentence end, space) and falling
// back to a hard cut at the size limit when no separator is in range.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

func NewSplitter(cfg SplitterConfig) (*Splitter, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		return nil, errors.New("chunk overlap must not be negative")
	}
	// An unset overlap gets the default whenever it fits under the chunk
	// size; for sizes at or below the default the overlap stays zero
	// rather than rejecting the config.
	if overlap == 0 && DefaultChunkOverlap < size {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, errors.New("chunk overlap must be smaller than chunk size")
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return &Splitter{size: size, overlap: overlap, separators: seps}, nil
}

// Split segments text in reading order. A document whose text is empty or
// whitespace-only yields no segments; the caller decides whether that is an
// error. pageCount positions each segment within the document; zero leaves
// every page range unknown.
func (s *Splitter) Split(text string, pageCount int) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	total := len(runes)
	var segments []Segment
	pos := 0
	for pos < total {
		end := pos + s.size
		if end >= total {
			end = total
		} else {
			end = s.boundary(runes, pos, end)
		}
		content := strings.TrimSpace(string(runes[pos:end]))
		if content != "" {
			segments = append(segments, Segment{
				Content: content,
				Pages:   pageSpan(pos, end, total, pageCount),
			})
		}
		if end == total {
			break
		}
		next := end - s.overlap
		if next <= pos {
			next = end
		}
		pos = next
	}
	return segments
}

// boundary walks the separator preference list and moves the cut back to
// just after the last occurrence within the window. Separators too close to
// the window start are rejected so overlap cannot swallow a whole segment.
func (s *Splitter) boundary(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	min := s.overlap
	for _, sep := range s.separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := len([]rune(window[:idx])) + len([]rune(sep))
		if cut <= min {
			continue
		}
		return start + cut
	}
	return limit
}

func pageSpan(start, end, total, pageCount int) PageRange {
	if pageCount <= 0 || total <= 0 {
		return PageRange{}
	}
	from := start*pageCount/total + 1
	to := (end-1)*pageCount/total + 1
	if from > pageCount {
		from = pageCount
	}
	if to > pageCount {
		to = pageCount
	}
	return PageRange{From: from, To: to}
}
