// File path: internal/api/types.go
package api

import (
	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/ingest"
)

type uploadResponse struct {
	Success    bool             `json:"success"`
	Accepted   []string         `json:"accepted"`
	Duplicates []string         `json:"duplicates"`
	Failed     []ingest.Failure `json:"failed"`
}

type askRequest struct {
	University string         `json:"university"`
	Question   string         `json:"question"`
	History    []chat.Message `json:"history,omitempty"`
}

type listResponse struct {
	University string   `json:"university"`
	Documents  []string `json:"documents"`
}
