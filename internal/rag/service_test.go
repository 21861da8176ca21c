// File path: internal/rag/service_test.go
package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/retriever"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

type fakeStore struct {
	hits    []vector.ScoredPoint
	sources []string
	err     error
}

func (f *fakeStore) EnsureCollection(ctx context.Context, tenant string, dim int) error { return nil }

func (f *fakeStore) HasFingerprint(ctx context.Context, tenant, hash string) (bool, error) {
	return false, nil
}

func (f *fakeStore) Upsert(ctx context.Context, tenant string, points []vector.Point) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, tenant string, vec []float32, limit int, threshold float64) ([]vector.ScoredPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeStore) ListSources(ctx context.Context, tenant string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sources, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vectors := make([][]float32, len(inputs))
	for i := range inputs {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (fakeEmbedder) Dimension() int { return 3 }

type fakeCompleter struct {
	reply    string
	err      error
	messages []chat.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(store *fakeStore, completer *fakeCompleter) *Service {
	retr := retriever.New(store, fakeEmbedder{}, retriever.Config{})
	return NewService(retr, completer, store, nil, map[string]string{"itu": "İTÜ"}, 0)
}

func TestAskGroundsAnswerInSources(t *testing.T) {
	store := &fakeStore{hits: []vector.ScoredPoint{
		{Score: 0.9, Payload: vector.Payload{Content: "Kayıt 15 Eylül'de biter.", Source: "kayit.pdf", Hash: "h1"}},
	}}
	completer := &fakeCompleter{reply: "Kayıt yenileme 15 Eylül'de bitiyor."}
	service := newTestService(store, completer)

	answer, err := service.Ask(context.Background(), "itu", "Kayıt ne zaman biter?", nil)
	require.NoError(t, err)
	require.Equal(t, "Kayıt yenileme 15 Eylül'de bitiyor.", answer.Text)
	require.Len(t, answer.Sources, 1)
	require.Equal(t, "kayit.pdf", answer.Sources[0].SourceFile)

	require.NotEmpty(t, completer.messages)
	require.Equal(t, "system", completer.messages[0].Role)
	require.Contains(t, completer.messages[0].Content, "İTÜ")
	require.Contains(t, completer.messages[len(completer.messages)-1].Content, "Kayıt 15 Eylül'de biter.")
}

func TestAskPassesHistoryVerbatim(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{reply: "cevap"}
	service := newTestService(store, completer)
	history := []chat.Message{
		{Role: "user", Content: "önceki soru"},
		{Role: "assistant", Content: "önceki cevap"},
	}

	_, err := service.Ask(context.Background(), "itu", "yeni soru", history)
	require.NoError(t, err)
	require.Len(t, completer.messages, 4)
	require.Equal(t, history[0], completer.messages[1])
	require.Equal(t, history[1], completer.messages[2])
}

func TestAskTenantWithoutDocuments(t *testing.T) {
	store := &fakeStore{err: vector.ErrCollectionNotFound}
	completer := &fakeCompleter{reply: "Bu konuda bilgim yok."}
	service := newTestService(store, completer)

	answer, err := service.Ask(context.Background(), "yeni", "Burs var mı?", nil)
	require.NoError(t, err)
	require.Equal(t, "Bu konuda bilgim yok.", answer.Text)
	require.NotNil(t, answer.Sources)
	require.Empty(t, answer.Sources)
	require.Contains(t, completer.messages[len(completer.messages)-1].Content, "(Kaynak bulunamadı)")
}

func TestAskRetrievalFailureSurfaces(t *testing.T) {
	store := &fakeStore{err: vector.ErrUnavailable}
	service := newTestService(store, &fakeCompleter{reply: "ignored"})

	_, err := service.Ask(context.Background(), "itu", "soru", nil)
	require.ErrorIs(t, err, vector.ErrUnavailable)
}

func TestAskCompleterFailureSurfaces(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeCompleter{err: chat.ErrTimeout})

	_, err := service.Ask(context.Background(), "itu", "soru", nil)
	require.ErrorIs(t, err, chat.ErrTimeout)
}

func TestAskRequiresQuestion(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeCompleter{})
	_, err := service.Ask(context.Background(), "itu", "   ", nil)
	require.Error(t, err)
}

func TestListDocuments(t *testing.T) {
	store := &fakeStore{sources: []string{"kayit.pdf", "burs.pdf"}}
	service := newTestService(store, &fakeCompleter{})

	docs, err := service.ListDocuments(context.Background(), "itu")
	require.NoError(t, err)
	require.Equal(t, []string{"kayit.pdf", "burs.pdf"}, docs)
}

func TestListDocumentsMissingCollection(t *testing.T) {
	store := &fakeStore{err: vector.ErrCollectionNotFound}
	service := newTestService(store, &fakeCompleter{})

	docs, err := service.ListDocuments(context.Background(), "yok")
	require.NoError(t, err)
	require.NotNil(t, docs)
	require.Empty(t, docs)
}

func TestDisplayNameFallback(t *testing.T) {
	service := newTestService(&fakeStore{}, &fakeCompleter{})
	require.Equal(t, "İTÜ", service.DisplayName("itu"))
	require.Equal(t, "Marmara", service.DisplayName(" MARMARA "))
}
