// File path: internal/prompt/assemble_test.go
package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/kb"
)

func source(content, file string, score float64, pages kb.PageRange) kb.RetrievedSource {
	return kb.RetrievedSource{Content: content, SourceFile: file, Score: score, Pages: pages}
}

func TestAssembleMessageOrder(t *testing.T) {
	history := []chat.Message{
		{Role: "user", Content: "İlk soru"},
		{Role: "assistant", Content: "İlk cevap"},
	}
	messages := Assemble("Kayıt ne zaman?", nil, history, "Boğaziçi", 0)

	require.Len(t, messages, 4)
	require.Equal(t, "system", messages[0].Role)
	require.Contains(t, messages[0].Content, `Boğaziçi üniversitesinin "Öğrenci İşleri" danışmanısın`)
	require.Contains(t, messages[0].Content, `"Bu konuda bilgim yok."`)
	require.Equal(t, history[0], messages[1])
	require.Equal(t, history[1], messages[2])
	require.Equal(t, "user", messages[3].Role)
}

func TestAssembleUserTurnLayout(t *testing.T) {
	sources := []kb.RetrievedSource{
		source("Kayıt yenileme 15 Eylül'de biter.", "kayit.pdf", 0.87, kb.PageRange{From: 2, To: 3}),
		source("Geç kayıt için dilekçe gerekir.", "kayit.pdf", 0.61, kb.PageRange{}),
	}
	messages := Assemble("Kayıt ne zaman biter?", sources, nil, "İTÜ", 0)

	user := messages[len(messages)-1].Content
	require.Contains(t, user, "KULLANILACAK BAĞLAM")
	require.Contains(t, user, "SORU")
	require.Contains(t, user, "CEVAP (anlaşılabilir ve net):")
	require.Contains(t, user, "Kayıt ne zaman biter?")

	require.Contains(t, user, "### Kaynak 1 (Benzerlik: 87.0%)")
	require.Contains(t, user, "Dosya: kayit.pdf")
	require.Contains(t, user, "Sayfa: 2-3")
	require.Contains(t, user, "### Kaynak 2 (Benzerlik: 61.0%)")
	require.Contains(t, user, "Sayfa: Bilinmiyor")

	// Sources render before the question.
	require.Less(t, strings.Index(user, "### Kaynak 1"), strings.Index(user, "Kayıt ne zaman biter?"))
}

func TestAssembleNoSourcesNotice(t *testing.T) {
	messages := Assemble("Burs var mı?", nil, nil, "Ege", 0)
	user := messages[len(messages)-1].Content
	require.Contains(t, user, NoSourcesNotice)
	require.NotContains(t, user, "### Kaynak")
}

func TestAssembleBudgetDropsWholeSources(t *testing.T) {
	big := strings.Repeat("madde ", 200)
	sources := []kb.RetrievedSource{
		source(big, "a.pdf", 0.9, kb.PageRange{From: 1, To: 1}),
		source(big, "b.pdf", 0.8, kb.PageRange{From: 2, To: 2}),
	}
	messages := Assemble("Soru?", sources, nil, "İTÜ", 1300)
	user := messages[len(messages)-1].Content

	require.Contains(t, user, "### Kaynak 1")
	require.NotContains(t, user, "### Kaynak 2")
	// The question itself is never truncated.
	require.Contains(t, user, "Soru?")
}

func TestAssembleAlwaysKeepsFirstSource(t *testing.T) {
	big := strings.Repeat("yönetmelik ", 500)
	messages := Assemble("Soru?", []kb.RetrievedSource{source(big, "a.pdf", 0.9, kb.PageRange{})}, nil, "İTÜ", 100)
	user := messages[len(messages)-1].Content
	require.Contains(t, user, "### Kaynak 1")
}
