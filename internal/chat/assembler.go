// File path: internal/chat/assembler.go
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/common"
)

// ErrEmptyStream reports a stream that ended without a single parseable
// record. Callers must surface it instead of returning an empty answer as
// if the model had replied.
var ErrEmptyStream = errors.New("chat stream contained no records")

// streamRecord is one newline-delimited JSON record of the token stream.
type streamRecord struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Assembler reconstructs the full answer from raw byte chunks of a
// token stream. A chunk may hold zero, one, or many newline-delimited JSON
// records, and a record may be split across two chunks; the assembler keeps
// the trailing incomplete fragment buffered between Feed calls. It knows
// nothing about HTTP — it is a pure consumer of bytes.
type Assembler struct {
	buf     []byte
	text    strings.Builder
	records int
	skipped int
	done    bool
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed appends an incoming byte chunk and consumes every complete line in
// the buffer. The final fragment after the last newline stays buffered for
// the next call.
func (a *Assembler) Feed(p []byte) {
	a.buf = append(a.buf, p...)
	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return
		}
		line := a.buf[:idx]
		a.buf = a.buf[idx+1:]
		a.consume(line)
	}
}

// consume parses one complete line. Malformed lines are logged and skipped;
// they never poison the rest of the stream.
func (a *Assembler) consume(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	var rec streamRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		a.skipped++
		common.Logger().Warn("chat: skipping malformed stream record", "error", err, "bytes", len(trimmed))
		return
	}
	a.records++
	if rec.Done {
		a.done = true
	}
	if rec.Message.Content != "" {
		a.text.WriteString(rec.Message.Content)
	}
}

// Finish signals end of stream. A non-empty trailing fragment gets one last
// parse attempt before being discarded. The accumulated answer is returned
// in token arrival order.
func (a *Assembler) Finish() (string, error) {
	if len(bytes.TrimSpace(a.buf)) > 0 {
		a.consume(a.buf)
	}
	a.buf = nil
	if a.records == 0 {
		return "", ErrEmptyStream
	}
	return a.text.String(), nil
}

// Skipped returns how many malformed lines were dropped.
func (a *Assembler) Skipped() int {
	return a.skipped
}

// Done reports whether the stream delivered its terminal record.
func (a *Assembler) Done() bool {
	return a.done
}
