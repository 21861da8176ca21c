// File path: internal/api/ingest_handler.go
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/ingest"
)

// maxUploadMemory bounds the in-memory portion of a multipart upload;
// larger parts spill to disk.
const maxUploadMemory = 64 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("api: upload form parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	tenant, err := tenantParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no files provided"))
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, header := range headers {
		name := sanitizeFilename(header.Filename)
		if name == "" {
			writeError(w, http.StatusBadRequest, errors.New("file name required"))
			return
		}
		part, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("open upload %s: %w", name, err))
			return
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read upload %s: %w", name, err))
			return
		}
		files = append(files, ingest.File{Name: name, Data: data})
	}

	logger.Info("api: upload received", "tenant", tenant, "files", len(files))
	report, err := s.pipeline.Ingest(ctx, tenant, files)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	failed := report.Failed
	if failed == nil {
		failed = []ingest.Failure{}
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		Accepted:   emptyIfNil(report.Accepted),
		Duplicates: emptyIfNil(report.Duplicates),
		Failed:     failed,
	})
}

// sanitizeFilename strips any client-supplied path components; only the
// base name is stored as the source identifier.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
