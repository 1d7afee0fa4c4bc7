package service

import (
	"strings"

	"github.com/enablehub/hub/internal/models"
)

// questionWords are the interrogative/request triggers that route a query to
// assistant mode when they start the query. Plain declarative or keyword
// input stays in search mode.
var questionWords = map[string]struct{}{
	"how": {}, "what": {}, "why": {}, "when": {}, "where": {}, "which": {},
	"can": {}, "do": {}, "does": {}, "is": {}, "are": {}, "should": {},
	"could": {}, "would": {}, "find": {}, "show": {}, "give": {}, "get": {}, "help": {},
}

// stopwords are dropped during keyword extraction.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "at": {}, "by": {}, "from": {},
	"my": {}, "our": {}, "your": {}, "me": {}, "i": {}, "we": {}, "you": {},
	"about": {}, "into": {}, "some": {}, "any": {}, "that": {}, "this": {},
}

// defaultEntityVocabulary maps taxonomy dimensions to terms the analyzer
// recognizes in raw queries. Best effort: the store's taxonomy names are the
// real source of truth; this covers the common vocabulary.
var defaultEntityVocabulary = map[models.TaxonomyDimension][]string{
	models.DimensionIndustry: {
		"retail", "healthcare", "finance", "financial services", "manufacturing",
		"technology", "insurance", "telecom", "education", "government",
	},
	models.DimensionChannel: {"email", "social", "webinar", "event", "blog", "paid media"},
	models.DimensionAudience: {
		"sales", "marketing", "customer success", "executive", "partner", "se", "ae",
	},
	models.DimensionProofType: {"case study", "testimonial", "roi", "benchmark"},
}

// QueryAnalyzer classifies raw query strings and extracts retrieval structure.
// It has no side effects; empty input yields a degenerate search-mode
// analysis that callers must reject before invoking search.
type QueryAnalyzer struct {
	vocabulary map[models.TaxonomyDimension][]string
}

// NewQueryAnalyzer creates an analyzer with the default entity vocabulary.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{vocabulary: defaultEntityVocabulary}
}

// NewQueryAnalyzerWithVocabulary creates an analyzer with a custom vocabulary
// (e.g. loaded from the taxonomy table).
func NewQueryAnalyzerWithVocabulary(vocab map[models.TaxonomyDimension][]string) *QueryAnalyzer {
	return &QueryAnalyzer{vocabulary: vocab}
}

// Analyze classifies the query and extracts keywords and taxonomy entities.
func (a *QueryAnalyzer) Analyze(raw string) models.QueryAnalysis {
	analysis := models.QueryAnalysis{
		Intent:       models.IntentSearch,
		Reformulated: strings.TrimSpace(raw),
	}

	if analysis.Reformulated == "" {
		return analysis
	}

	tokens := tokenize(analysis.Reformulated)

	if strings.Contains(raw, "?") || (len(tokens) > 0 && isQuestionWord(tokens[0])) {
		analysis.Intent = models.IntentAssistant
		analysis.IsQuestion = true
		analysis.Reformulated = reformulateQuestion(tokens)
	}

	analysis.Keywords = extractKeywords(tokens)
	analysis.Entities = a.extractEntities(analysis.Reformulated)

	return analysis
}

func isQuestionWord(token string) bool {
	_, ok := questionWords[token]
	return ok
}

// tokenize lowercases and splits on non-alphanumeric runs.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		isDigit := r >= '0' && r <= '9'
		isLower := r >= 'a' && r <= 'z'

		return !isDigit && !isLower
	})
}

// reformulateQuestion strips leading interrogative scaffolding ("how do i",
// "what is the") so the remainder works as a retrieval query. Falls back to
// the full token list when stripping would leave nothing.
func reformulateQuestion(tokens []string) string {
	content := tokens

	for len(content) > 0 {
		token := content[0]
		_, isTrigger := questionWords[token]
		_, isStop := stopwords[token]

		if !isTrigger && !isStop {
			break
		}

		content = content[1:]
	}

	if len(content) == 0 {
		content = tokens
	}

	return strings.Join(content, " ")
}

// extractKeywords drops stopwords and question triggers, keeping order and
// dropping duplicates.
func extractKeywords(tokens []string) []string {
	var keywords []string

	seen := map[string]struct{}{}

	for _, token := range tokens {
		if len(token) < 2 {
			continue
		}

		if _, ok := stopwords[token]; ok {
			continue
		}

		if _, ok := questionWords[token]; ok {
			continue
		}

		if _, ok := seen[token]; ok {
			continue
		}

		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	return keywords
}

// extractEntities matches vocabulary terms as substrings of the query,
// grouped by taxonomy dimension. Empty groups are omitted.
func (a *QueryAnalyzer) extractEntities(query string) map[models.TaxonomyDimension][]string {
	lowered := " " + strings.ToLower(query) + " "
	entities := map[models.TaxonomyDimension][]string{}

	for _, dim := range models.TaxonomyDimensions {
		for _, term := range a.vocabulary[dim] {
			if strings.Contains(lowered, " "+term+" ") {
				entities[dim] = append(entities[dim], term)
			}
		}
	}

	if len(entities) == 0 {
		return nil
	}

	return entities
}
