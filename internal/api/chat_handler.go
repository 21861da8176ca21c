// File path: internal/api/chat_handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/common"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	tenant := strings.ToLower(strings.TrimSpace(req.University))
	if tenant == "" {
		writeError(w, http.StatusBadRequest, errors.New("university is required"))
		return
	}
	if !tenantPattern.MatchString(tenant) {
		writeError(w, http.StatusBadRequest, errors.New("invalid university identifier"))
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	common.Logger().Info("api: question received", "tenant", tenant, "history", len(req.History))
	answer, err := s.service.Ask(r.Context(), tenant, question, req.History)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
