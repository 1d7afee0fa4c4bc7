package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/enablehub/hub/internal/models"
)

const answerSystemPrompt = `You are an enablement assistant for a marketing content hub.
Answer the user's question using only the numbered source documents provided.
Cite sources by their number. If the sources do not contain an answer, say so.

Respond with a single JSON object, no other text:
{
  "answer": "the answer, citing sources like [1] and [3]",
  "sources": [{"number": 1, "relevance": 85}]
}
"relevance" is an integer 0-100 for how relevant that source is to the question.
Only include sources you actually used.`

const maxSourceBodyChars = 1500

// AnswerSynthesizer turns a question plus retrieved entries into a grounded,
// cited answer via a chat model.
type AnswerSynthesizer struct {
	chat   ChatClient
	logger *slog.Logger
}

// NewAnswerSynthesizer creates an AnswerSynthesizer.
func NewAnswerSynthesizer(chat ChatClient, logger *slog.Logger) *AnswerSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &AnswerSynthesizer{chat: chat, logger: logger}
}

// rawAnswer is the model's JSON response shape.
type rawAnswer struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Number    int `json:"number"`
		Relevance int `json:"relevance"`
	} `json:"sources"`
}

// Synthesize produces an answer to question grounded in the given entries.
// Entries are numbered 1..n in the prompt; the model cites by number and the
// citations are mapped back to entry identities here.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context, question string, entries []models.Entry,
) (*models.AIAnswer, error) {
	if len(entries) == 0 {
		return &models.AIAnswer{
			Answer:     "I could not find any relevant content for that question.",
			Sources:    []models.CitedSource{},
			Confidence: models.ConfidenceLow,
		}, nil
	}

	userPrompt := buildAnswerPrompt(question, entries)

	completion, err := s.chat.CreateCompletion(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("answer completion: %w", err)
	}

	var raw rawAnswer
	if err := json.Unmarshal([]byte(stripCodeFences(completion)), &raw); err != nil {
		return nil, fmt.Errorf("parse answer response: %w", err)
	}

	if strings.TrimSpace(raw.Answer) == "" {
		return nil, fmt.Errorf("answer response missing answer text")
	}

	sources := make([]models.CitedSource, 0, len(raw.Sources))

	for _, src := range raw.Sources {
		if src.Number < 1 || src.Number > len(entries) {
			s.logger.Warn("answer cited unknown source number", "number", src.Number)

			continue
		}

		entry := entries[src.Number-1]
		sources = append(sources, models.CitedSource{
			ID:        entry.ID.String(),
			Title:     entry.Title,
			Slug:      entry.Slug,
			Type:      string(entry.Type),
			Relevance: clampRelevance(src.Relevance),
		})
	}

	return &models.AIAnswer{
		Answer:     raw.Answer,
		Sources:    sources,
		Confidence: confidenceTier(sources),
	}, nil
}

func buildAnswerPrompt(question string, entries []models.Entry) string {
	var b strings.Builder

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSources:\n")

	for i, entry := range entries {
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n", i+1, entry.Title, entry.Type)

		if entry.Summary != "" {
			b.WriteString(entry.Summary)
			b.WriteString("\n")
		}

		if body := truncate(entry.Body, maxSourceBodyChars); body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// stripCodeFences removes a leading/trailing markdown code fence, which some
// models wrap around JSON despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}

		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}

	return s[:max]
}

func clampRelevance(r int) int {
	if r < 0 {
		return 0
	}

	if r > 100 {
		return 100
	}

	return r
}

// confidenceTier derives the answer confidence from its citations. Monotonic:
// more sources or higher mean relevance never lowers the tier.
func confidenceTier(sources []models.CitedSource) string {
	if len(sources) == 0 {
		return models.ConfidenceLow
	}

	total := 0
	for _, src := range sources {
		total += src.Relevance
	}

	mean := total / len(sources)

	switch {
	case len(sources) >= 3 && mean >= 70:
		return models.ConfidenceHigh
	case mean >= 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
