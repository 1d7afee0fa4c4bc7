package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enablehub/hub/internal/models"
)

func TestQueryAnalyzer_Analyze_Intent(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	tests := []struct {
		name       string
		query      string
		wantIntent models.QueryIntent
		wantIsQ    bool
	}{
		{
			name:       "keyword query routes to search",
			query:      "battle card sierra",
			wantIntent: models.IntentSearch,
		},
		{
			name:       "question mark routes to assistant",
			query:      "pricing objections?",
			wantIntent: models.IntentAssistant,
			wantIsQ:    true,
		},
		{
			name:       "leading question word routes to assistant",
			query:      "How do I handle an objection",
			wantIntent: models.IntentAssistant,
			wantIsQ:    true,
		},
		{
			name:       "show me routes to assistant",
			query:      "show me case studies for retail",
			wantIntent: models.IntentAssistant,
			wantIsQ:    true,
		},
		{
			name:       "declarative sentence stays search",
			query:      "retail customer stories",
			wantIntent: models.IntentSearch,
		},
		{
			name:       "question word mid-query stays search",
			query:      "playbook for what-if planning",
			wantIntent: models.IntentSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := analyzer.Analyze(tt.query)

			assert.Equal(t, tt.wantIntent, analysis.Intent)
			assert.Equal(t, tt.wantIsQ, analysis.IsQuestion)
		})
	}
}

func TestQueryAnalyzer_Analyze_Reformulation(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	t.Run("strips interrogative scaffolding", func(t *testing.T) {
		analysis := analyzer.Analyze("How do I handle an objection?")

		assert.Equal(t, models.IntentAssistant, analysis.Intent)
		assert.Equal(t, "handle an objection", analysis.Reformulated)
	})

	t.Run("question of only trigger words keeps full text", func(t *testing.T) {
		analysis := analyzer.Analyze("what is that?")

		assert.Equal(t, models.IntentAssistant, analysis.Intent)
		assert.Equal(t, "what is that", analysis.Reformulated)
	})

	t.Run("search query passes through trimmed", func(t *testing.T) {
		analysis := analyzer.Analyze("  roi benchmark  ")

		assert.Equal(t, "roi benchmark", analysis.Reformulated)
	})

	t.Run("empty query yields empty reformulation", func(t *testing.T) {
		analysis := analyzer.Analyze("   ")

		assert.Equal(t, models.IntentSearch, analysis.Intent)
		assert.Empty(t, analysis.Reformulated)
		assert.Empty(t, analysis.Keywords)
	})
}

func TestQueryAnalyzer_Analyze_Keywords(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	t.Run("drops stopwords and triggers, keeps order, dedupes", func(t *testing.T) {
		analysis := analyzer.Analyze("How do I pitch pricing to a pricing team")

		assert.Equal(t, []string{"pitch", "pricing", "team"}, analysis.Keywords)
	})

	t.Run("drops single-character tokens", func(t *testing.T) {
		analysis := analyzer.Analyze("plan b for q4 launch")

		assert.Equal(t, []string{"plan", "q4", "launch"}, analysis.Keywords)
	})
}

func TestQueryAnalyzer_Analyze_Entities(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	t.Run("matches vocabulary terms by dimension", func(t *testing.T) {
		analysis := analyzer.Analyze("case study for retail email campaigns")

		require.NotNil(t, analysis.Entities)
		assert.Equal(t, []string{"retail"}, analysis.Entities[models.DimensionIndustry])
		assert.Equal(t, []string{"email"}, analysis.Entities[models.DimensionChannel])
		assert.Equal(t, []string{"case study"}, analysis.Entities[models.DimensionProofType])
	})

	t.Run("no match yields nil map", func(t *testing.T) {
		analysis := analyzer.Analyze("quarterly launch checklist")

		assert.Nil(t, analysis.Entities)
	})

	t.Run("custom vocabulary", func(t *testing.T) {
		custom := NewQueryAnalyzerWithVocabulary(map[models.TaxonomyDimension][]string{
			models.DimensionProduct: {"atlas"},
		})

		analysis := custom.Analyze("atlas onboarding deck")

		require.NotNil(t, analysis.Entities)
		assert.Equal(t, []string{"atlas"}, analysis.Entities[models.DimensionProduct])
	})
}
