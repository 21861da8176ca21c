// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/ingest"
	"github.com/kampusdesk/kampusdesk/internal/rag"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

// Ingester is the ingestion surface the server exposes over HTTP.
type Ingester interface {
	Ingest(ctx context.Context, tenant string, files []ingest.File) (ingest.Report, error)
}

// Server routes tenant document uploads and questions to the pipelines.
type Server struct {
	router   chi.Router
	pipeline Ingester
	service  *rag.Service
}

func NewServer(pipeline Ingester, service *rag.Service) *Server {
	srv := &Server{
		router:   chi.NewRouter(),
		pipeline: pipeline,
		service:  service,
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/api/documents/upload", s.handleUpload)
	s.router.Get("/api/documents/list", s.handleListDocuments)
	s.router.Get("/api/documents/history", s.handleHistory)
	s.router.Post("/api/ask", s.handleAsk)
	s.router.Get("/api/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": common.LogEntries()})
}

var tenantPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// tenantParam normalizes and validates the university identifier carried in
// the query string or form body.
func tenantParam(r *http.Request) (string, error) {
	tenant := strings.ToLower(strings.TrimSpace(r.FormValue("university")))
	if tenant == "" {
		tenant = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("university")))
	}
	if tenant == "" {
		return "", errors.New("university is required")
	}
	if !tenantPattern.MatchString(tenant) {
		return "", errors.New("invalid university identifier")
	}
	return tenant, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, chat.ErrUnavailable), errors.Is(err, vector.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, chat.ErrEmptyStream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
