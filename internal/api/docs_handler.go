// File path: internal/api/docs_handler.go
package api

import (
	"net/http"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	docs, err := s.service.ListDocuments(r.Context(), tenant)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{University: tenant, Documents: docs})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	history, err := s.service.History(r.Context(), tenant)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"university": tenant, "documents": history})
}
