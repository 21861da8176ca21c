// File path: internal/prompt/assemble.go
package prompt

import (
	"fmt"
	"strings"

	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/kb"
)

// DefaultContextBudget caps the rendered source block in characters. The
// question and the system instruction are never truncated, only the sources.
const DefaultContextBudget = 12000

// NoSourcesNotice is rendered in place of the source block when retrieval
// found nothing relevant; the system instruction then obliges the model to
// answer that it does not know.
const NoSourcesNotice = "(Kaynak bulunamadı)"

const systemTemplate = `Sen %s üniversitesinin "Öğrenci İşleri" danışmanısın. ` +
	`Yanıtların TÜRKÇE olacak. Sadece verdiğim bağlamdaki bilgilere dayan. ` +
	`Kaynak yoksa "Bu konuda bilgim yok." de.`

const userTemplate = `KULLANILACAK BAĞLAM
-------------------
%s

SORU
----
%s

CEVAP (anlaşılabilir ve net):`

// Assemble renders the ordered message list for the chat backend: the fixed
// system instruction grounding the assistant to the tenant, the prior turns
// verbatim and in original order, then one user turn embedding the labeled
// sources and the literal question.
func Assemble(question string, sources []kb.RetrievedSource, history []chat.Message, tenantDisplayName string, contextBudget int) []chat.Message {
	if contextBudget <= 0 {
		contextBudget = DefaultContextBudget
	}
	messages := make([]chat.Message, 0, len(history)+2)
	messages = append(messages, chat.Message{
		Role:    "system",
		Content: fmt.Sprintf(systemTemplate, tenantDisplayName),
	})
	messages = append(messages, history...)
	messages = append(messages, chat.Message{
		Role:    "user",
		Content: fmt.Sprintf(userTemplate, renderSources(sources, contextBudget), question),
	})
	return messages
}

// renderSources labels each source with its rank, similarity, file and page
// so the model can cite them. Sources past the character budget are dropped
// whole; a partially rendered source would produce a misleading citation.
func renderSources(sources []kb.RetrievedSource, budget int) string {
	if len(sources) == 0 {
		return NoSourcesNotice
	}
	var blocks []string
	used := 0
	for i, src := range sources {
		block := fmt.Sprintf("### Kaynak %d (Benzerlik: %.1f%%)\nDosya: %s\nSayfa: %s\nİçerik:\n%s",
			i+1, src.Score*100, src.SourceFile, src.Pages.String(), strings.TrimSpace(src.Content))
		if used+len(block) > budget && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		used += len(block)
	}
	return strings.Join(blocks, "\n\n")
}
