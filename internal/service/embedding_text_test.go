package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enablehub/hub/internal/models"
)

func TestBuildEmbeddingText(t *testing.T) {
	t.Run("concatenates fields in fixed order with blank lines", func(t *testing.T) {
		src := EmbeddingSource{
			Title:    "Sierra win story",
			Summary:  "How Sierra closed in 6 weeks",
			Headline: "6 weeks to close",
			Body:     "Full narrative.",
			Customer: "Sierra",
			Account:  "sierra-inc",
			Tags:     []string{"retail", "expansion"},
		}

		got := BuildEmbeddingText(src)

		want := "Sierra win story\n\nHow Sierra closed in 6 weeks\n\n6 weeks to close\n\n" +
			"Full narrative.\n\nSierra\n\nsierra-inc\n\nretail, expansion"
		assert.Equal(t, want, got)
	})

	t.Run("omits empty fields without extra separators", func(t *testing.T) {
		src := EmbeddingSource{Title: "Title only", Body: "Body."}

		assert.Equal(t, "Title only\n\nBody.", BuildEmbeddingText(src))
	})

	t.Run("whitespace-only fields are treated as empty", func(t *testing.T) {
		src := EmbeddingSource{Title: "  ", Summary: "\n"}

		assert.Empty(t, BuildEmbeddingText(src))
	})
}

func TestContentHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	})

	t.Run("differs for different input", func(t *testing.T) {
		assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	})

	t.Run("fixed width hex", func(t *testing.T) {
		assert.Len(t, ContentHash(""), 16)
		assert.Len(t, ContentHash("some much longer input text"), 16)
	})
}

func TestSourceConstructors(t *testing.T) {
	t.Run("document and entry snapshots of the same content hash equal", func(t *testing.T) {
		doc := models.ContentDocument{
			Title: "T", Summary: "S", Body: "B", Customer: "C", Tags: []string{"a", "b"},
		}
		entry := models.Entry{
			Title: "T", Summary: "S", Body: "B", Customer: "C", Tags: []string{"a", "b"},
		}

		docText := BuildEmbeddingText(SourceFromDocument(doc))
		entryText := BuildEmbeddingText(SourceFromEntry(entry))

		assert.Equal(t, docText, entryText)
		assert.Equal(t, ContentHash(docText), ContentHash(entryText))
	})
}
