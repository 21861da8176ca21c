// File path: internal/rag/service.go
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kampusdesk/kampusdesk/internal/catalog"
	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/kb"
	"github.com/kampusdesk/kampusdesk/internal/prompt"
	"github.com/kampusdesk/kampusdesk/internal/retriever"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

// Completer is the streaming chat capability as the service consumes it.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// Answer is the result of one question: the reconstructed model reply plus
// the sources that grounded it.
type Answer struct {
	Text    string               `json:"answer"`
	Sources []kb.RetrievedSource `json:"sources"`
}

// Service answers tenant questions over ingested documents. It is read-only
// with respect to stored data and safe for concurrent questions.
type Service struct {
	retriever     *retriever.Retriever
	completer     Completer
	store         vector.Store
	catalog       *catalog.Store
	displayNames  map[string]string
	contextBudget int
}

func NewService(retr *retriever.Retriever, completer Completer, store vector.Store, cat *catalog.Store, displayNames map[string]string, contextBudget int) *Service {
	return &Service{
		retriever:     retr,
		completer:     completer,
		store:         store,
		catalog:       cat,
		displayNames:  displayNames,
		contextBudget: contextBudget,
	}
}

// Ask retrieves grounding context for the question and streams the model's
// reply. A tenant without any ingested documents is served with an empty
// source list — the instruction makes the model answer that it does not
// know — and is never an error. Retrieval or stream failures surface as
// typed errors with no partial answer.
func (s *Service) Ask(ctx context.Context, tenant, question string, history []chat.Message) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("question required")
	}
	sources, err := s.retriever.Retrieve(ctx, tenant, question, 0, 0)
	if err != nil {
		if errors.Is(err, retriever.ErrNoDocuments) {
			common.Logger().Info("rag: tenant has no documents", "tenant", tenant)
			sources = nil
		} else {
			return Answer{}, fmt.Errorf("retrieve context: %w", err)
		}
	}
	messages := prompt.Assemble(question, sources, history, s.DisplayName(tenant), s.contextBudget)
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return Answer{}, err
	}
	if sources == nil {
		sources = []kb.RetrievedSource{}
	}
	return Answer{Text: text, Sources: sources}, nil
}

// ListDocuments returns the distinct source filenames stored for a tenant.
// A tenant with no collection yet simply has no documents.
func (s *Service) ListDocuments(ctx context.Context, tenant string) ([]string, error) {
	sources, err := s.store.ListSources(ctx, tenant)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	if sources == nil {
		sources = []string{}
	}
	return sources, nil
}

// History returns the catalog's upload audit rows for a tenant.
func (s *Service) History(ctx context.Context, tenant string) ([]catalog.Document, error) {
	if s.catalog == nil {
		return []catalog.Document{}, nil
	}
	return s.catalog.History(ctx, tenant)
}

// DisplayName resolves the human-facing university name used in the system
// instruction, falling back to a capitalized tenant identifier.
func (s *Service) DisplayName(tenant string) string {
	tenant = strings.ToLower(strings.TrimSpace(tenant))
	if name, ok := s.displayNames[tenant]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	runes := []rune(tenant)
	if len(runes) == 0 {
		return tenant
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
