package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/webrag/internal/models"
)

// ContextHeader opens every assembled context, even when no excerpt fits.
const ContextHeader = "You can use the following retrieved documentation excerpts. " +
	"Cite the SOURCE URLs when referencing details.\n\n"

// DefaultMaxContextChars bounds the excerpt blocks of a context when no limit is configured.
const DefaultMaxContextChars = 6000

// AssembleContext renders results, in the order given, as SOURCE/RELEVANCE_DISTANCE/CONTENT
// blocks. Results with blank text are skipped. Assembly stops at the first block that would
// push the blocks' total length (in characters, header excluded) past maxChars. The returned
// sources are the URLs of the included blocks, deduplicated in first-seen order.
func AssembleContext(results []models.RetrievalResult, maxChars int) (string, []string) {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	var b strings.Builder
	b.WriteString(ContextHeader)
	sources := []string{}
	seen := make(map[string]bool)
	total := 0
	for _, r := range results {
		snippet := strings.TrimSpace(r.Text)
		if snippet == "" {
			continue
		}
		block := fmt.Sprintf("SOURCE: %s\nRELEVANCE_DISTANCE: %.4f\nCONTENT:\n%s\n---\n", r.URL, r.Distance, snippet)
		n := utf8.RuneCountInString(block)
		if total+n > maxChars {
			break
		}
		b.WriteString(block)
		total += n
		if r.URL != "" && !seen[r.URL] {
			seen[r.URL] = true
			sources = append(sources, r.URL)
		}
	}
	return b.String(), sources
}
