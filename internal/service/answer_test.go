package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enablehub/hub/internal/models"
)

type mockChatClient struct {
	completionFunc func(ctx context.Context, system, user string) (string, error)
	calls          int
}

func (m *mockChatClient) CreateCompletion(ctx context.Context, system, user string) (string, error) {
	m.calls++
	if m.completionFunc != nil {
		return m.completionFunc(ctx, system, user)
	}

	return "", nil
}

func answerEntries() []models.Entry {
	return []models.Entry{
		{ID: uuid.MustParse("018e1234-5678-9abc-def0-111111111111"), Title: "Pricing objections", Slug: "pricing-objections", Type: models.EntryTypeBestPractice, Summary: "Responses to pricing pushback"},
		{ID: uuid.MustParse("018e1234-5678-9abc-def0-222222222222"), Title: "Sierra win story", Slug: "sierra-win", Type: models.EntryTypeProofPoint},
		{ID: uuid.MustParse("018e1234-5678-9abc-def0-333333333333"), Title: "Discovery checklist", Slug: "discovery", Type: models.EntryTypeTool},
	}
}

func TestAnswerSynthesizer_Synthesize(t *testing.T) {
	t.Run("parses answer and maps citations back to entries", func(t *testing.T) {
		chat := &mockChatClient{
			completionFunc: func(_ context.Context, _, user string) (string, error) {
				assert.Contains(t, user, "[1] Pricing objections (best-practice)")
				assert.Contains(t, user, "[2] Sierra win story (proof-point)")

				return `{"answer":"Lead with value [1], then proof [2].","sources":[{"number":1,"relevance":90},{"number":2,"relevance":75}]}`, nil
			},
		}

		answer, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "handle pricing objections", answerEntries())

		require.NoError(t, err)
		assert.Equal(t, "Lead with value [1], then proof [2].", answer.Answer)
		require.Len(t, answer.Sources, 2)
		assert.Equal(t, "018e1234-5678-9abc-def0-111111111111", answer.Sources[0].ID)
		assert.Equal(t, "pricing-objections", answer.Sources[0].Slug)
		assert.Equal(t, "best-practice", answer.Sources[0].Type)
		assert.Equal(t, 90, answer.Sources[0].Relevance)
	})

	t.Run("strips code fences around JSON", func(t *testing.T) {
		chat := &mockChatClient{
			completionFunc: func(_ context.Context, _, _ string) (string, error) {
				return "```json\n{\"answer\":\"Use the checklist.\",\"sources\":[{\"number\":3,\"relevance\":60}]}\n```", nil
			},
		}

		answer, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "discovery", answerEntries())

		require.NoError(t, err)
		assert.Equal(t, "Use the checklist.", answer.Answer)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "Discovery checklist", answer.Sources[0].Title)
	})

	t.Run("out-of-range citations are dropped, relevance clamped", func(t *testing.T) {
		chat := &mockChatClient{
			completionFunc: func(_ context.Context, _, _ string) (string, error) {
				return `{"answer":"A.","sources":[{"number":0,"relevance":50},{"number":9,"relevance":50},{"number":1,"relevance":150}]}`, nil
			},
		}

		answer, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "q", answerEntries())

		require.NoError(t, err)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, 100, answer.Sources[0].Relevance)
	})

	t.Run("no entries returns low-confidence answer without calling the model", func(t *testing.T) {
		chat := &mockChatClient{}

		answer, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "q", nil)

		require.NoError(t, err)
		assert.Equal(t, models.ConfidenceLow, answer.Confidence)
		assert.Empty(t, answer.Sources)
		assert.Zero(t, chat.calls)
	})

	t.Run("model error propagates", func(t *testing.T) {
		chatErr := errors.New("overloaded")
		chat := &mockChatClient{
			completionFunc: func(_ context.Context, _, _ string) (string, error) {
				return "", chatErr
			},
		}

		_, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "q", answerEntries())

		require.Error(t, err)
		assert.ErrorIs(t, err, chatErr)
	})

	t.Run("non-JSON response is an error", func(t *testing.T) {
		chat := &mockChatClient{
			completionFunc: func(_ context.Context, _, _ string) (string, error) {
				return "I could not produce JSON, sorry.", nil
			},
		}

		_, err := NewAnswerSynthesizer(chat, nil).Synthesize(context.Background(), "q", answerEntries())

		require.Error(t, err)
	})
}

func TestConfidenceTier(t *testing.T) {
	src := func(relevance int) models.CitedSource {
		return models.CitedSource{Relevance: relevance}
	}

	tests := []struct {
		name    string
		sources []models.CitedSource
		want    string
	}{
		{"no sources is low", nil, models.ConfidenceLow},
		{"one weak source is low", []models.CitedSource{src(20)}, models.ConfidenceLow},
		{"one decent source is medium", []models.CitedSource{src(55)}, models.ConfidenceMedium},
		{"three strong sources is high", []models.CitedSource{src(80), src(75), src(70)}, models.ConfidenceHigh},
		{"two strong sources caps at medium", []models.CitedSource{src(90), src(90)}, models.ConfidenceMedium},
		{"three mixed sources below mean threshold is medium", []models.CitedSource{src(90), src(60), src(50)}, models.ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confidenceTier(tt.sources))
		})
	}
}

func TestConfidenceTier_Monotonic(t *testing.T) {
	// Adding a source of equal relevance never lowers the tier.
	base := []models.CitedSource{{Relevance: 80}, {Relevance: 80}}
	more := append(append([]models.CitedSource{}, base...), models.CitedSource{Relevance: 80})

	assert.Equal(t, models.ConfidenceMedium, confidenceTier(base))
	assert.Equal(t, models.ConfidenceHigh, confidenceTier(more))
}
