package service

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/repository"
)

// EmbeddingSource holds the textual fields of a content document in the
// fixed order they are concatenated for embedding.
type EmbeddingSource struct {
	Title    string
	Summary  string
	Headline string
	Body     string
	Customer string
	Account  string
	Tags     []string
}

// SourceFromDocument builds an EmbeddingSource from a webhook document snapshot.
func SourceFromDocument(doc models.ContentDocument) EmbeddingSource {
	return EmbeddingSource{
		Title:    doc.Title,
		Summary:  doc.Summary,
		Headline: doc.Headline,
		Body:     doc.Body,
		Customer: doc.Customer,
		Account:  doc.Account,
		Tags:     doc.Tags,
	}
}

// SourceFromEntry builds an EmbeddingSource from an entry projection row.
func SourceFromEntry(e models.Entry) EmbeddingSource {
	return EmbeddingSource{
		Title:    e.Title,
		Summary:  e.Summary,
		Headline: e.Headline,
		Body:     e.Body,
		Customer: e.Customer,
		Account:  e.Account,
		Tags:     e.Tags,
	}
}

// SourceFromState builds an EmbeddingSource from a backfill state row.
func SourceFromState(s repository.EntryEmbeddingState) EmbeddingSource {
	return EmbeddingSource{
		Title:    s.Title,
		Summary:  s.Summary,
		Headline: s.Headline,
		Body:     s.Body,
		Customer: s.Customer,
		Account:  s.Account,
		Tags:     s.Tags,
	}
}

// BuildEmbeddingText concatenates the source's textual fields in fixed order
// with blank-line separators, omitting empty fields. The field order is part
// of the fingerprint contract: changing it invalidates every stored hash.
func BuildEmbeddingText(src EmbeddingSource) string {
	parts := make([]string, 0, 7)

	for _, field := range []string{
		src.Title, src.Summary, src.Headline, src.Body, src.Customer, src.Account,
		strings.Join(src.Tags, ", "),
	} {
		if field = strings.TrimSpace(field); field != "" {
			parts = append(parts, field)
		}
	}

	return strings.Join(parts, "\n\n")
}

// ContentHash returns a deterministic FNV-1a fingerprint of the embedding
// text. Change detection only, not security-sensitive.
func ContentHash(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	return fmt.Sprintf("%016x", h.Sum64())
}
