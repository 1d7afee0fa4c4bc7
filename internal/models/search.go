package models

// FacetValue is one taxonomy value with its count over the unfiltered corpus
// for the selected entry type. Counts deliberately ignore the active filter
// set so the UI can show what each filter would add, not just what is
// already selected.
type FacetValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Count int    `json:"count"`
}

// FacetSet maps each facet dimension (taxonomy dimensions plus "type") to
// its value counts, ordered by count descending.
type FacetSet map[string][]FacetValue

// FacetDimensionType is the pseudo-dimension for entry type facets.
const FacetDimensionType = "type"

// QueryIntent is the analyzer's routing decision for a raw query.
type QueryIntent string

// Query intents. Plain declarative or keyword input defaults to search;
// assistant is chosen only when a question trigger matches.
const (
	IntentSearch    QueryIntent = "search"
	IntentAssistant QueryIntent = "assistant"
)

// QueryAnalysis is the derived, per-request view of a raw query string.
// Never persisted or cached.
type QueryAnalysis struct {
	Intent       QueryIntent                    `json:"intent"`
	IsQuestion   bool                           `json:"isQuestion"`
	Reformulated string                         `json:"reformulated"`
	Keywords     []string                       `json:"keywords,omitempty"`
	Entities     map[TaxonomyDimension][]string `json:"entities,omitempty"`
}

// CitedSource is one source document backing a synthesized answer.
// Relevance is a 0-100 score assigned by the synthesis step.
type CitedSource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Type      string `json:"type"`
	Relevance int    `json:"relevance"`
}

// Confidence tiers for a synthesized answer. Derived monotonically from the
// number and relevance of supporting sources.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// AIAnswer is the ephemeral synthesized answer returned in assistant mode.
type AIAnswer struct {
	Answer     string        `json:"answer"`
	Sources    []CitedSource `json:"sources"`
	Confidence string        `json:"confidence"`
}
