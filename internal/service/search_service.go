package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/observability"
	"github.com/enablehub/hub/pkg/cache"
	"github.com/enablehub/hub/pkg/embeddings"
)

// ErrEmptyQuery is returned when the request query is blank after trimming.
var ErrEmptyQuery = errors.New("query must not be empty")

const (
	defaultLimit = 20
	maxLimit     = 100

	// Assistant-mode candidate sizing. Keyword and vector candidate lists
	// are fused by reciprocal rank; the top fused entries feed synthesis.
	vectorCandidateLimit = 10
	synthesisCandidates  = 8
	rrfK                 = 60
)

// EntriesStore is the keyword search surface of the entries repository.
type EntriesStore interface {
	Search(ctx context.Context, query string, filters models.SearchFilters, sortMode models.SortMode, limit, offset int) (models.EntryPage, error)
	Facets(ctx context.Context, filters models.SearchFilters) (models.FacetSet, error)
}

// VectorSearcher retrieves nearest published entries for a query embedding.
type VectorSearcher interface {
	NearestEntries(ctx context.Context, model string, queryEmbedding []float32, filters models.SearchFilters, limit int, minScore float64) ([]models.EntryWithScore, error)
}

// Synthesizer produces a cited answer from retrieved entries.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, entries []models.Entry) (*models.AIAnswer, error)
}

// SearchRequest is one search invocation. Mode overrides the analyzer's
// intent when set; empty means route by analysis.
type SearchRequest struct {
	Query   string
	Mode    string
	Filters models.SearchFilters
	Sort    models.SortMode
	Limit   int
	Offset  int
}

// SearchResult is the orchestrator's response. Answer is nil in search mode
// and whenever synthesis was skipped or failed.
type SearchResult struct {
	Results  []models.Entry
	Total    int
	Facets   models.FacetSet
	Analysis models.QueryAnalysis
	Answer   *models.AIAnswer
}

// SearchService orchestrates query analysis, keyword and vector retrieval,
// facet computation, and answer synthesis.
type SearchService struct {
	store           EntriesStore
	vectors         VectorSearcher
	analyzer        *QueryAnalyzer
	embeddingClient EmbeddingClient
	synthesizer     Synthesizer
	tracker         Tracker
	embeddingCache  *cache.LoaderCache[string, []float32]
	model           string
	minScore        float64
	metrics         observability.SearchMetrics
	cacheMetrics    observability.CacheMetrics
	logger          *slog.Logger
}

// SearchServiceParams configures SearchService. Vectors, EmbeddingClient,
// Synthesizer, EmbeddingCache, Tracker, and Metrics may be nil; assistant
// mode degrades to keyword-only when the vector path is unavailable.
type SearchServiceParams struct {
	Store           EntriesStore
	Vectors         VectorSearcher
	Analyzer        *QueryAnalyzer
	EmbeddingClient EmbeddingClient
	Synthesizer     Synthesizer
	Tracker         Tracker
	EmbeddingCache  *cache.LoaderCache[string, []float32]
	Model           string
	MinScore        float64
	Metrics         observability.SearchMetrics
	CacheMetrics    observability.CacheMetrics
	Logger          *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(p SearchServiceParams) *SearchService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	analyzer := p.Analyzer
	if analyzer == nil {
		analyzer = NewQueryAnalyzer()
	}

	tracker := p.Tracker
	if tracker == nil {
		tracker = NoopTracker{}
	}

	return &SearchService{
		store:           p.Store,
		vectors:         p.Vectors,
		analyzer:        analyzer,
		embeddingClient: p.EmbeddingClient,
		synthesizer:     p.Synthesizer,
		tracker:         tracker,
		embeddingCache:  p.EmbeddingCache,
		model:           p.Model,
		minScore:        p.MinScore,
		metrics:         p.Metrics,
		cacheMetrics:    p.CacheMetrics,
		logger:          logger,
	}
}

// Search executes one search request. Keyword retrieval and facets always
// run; the vector and synthesis steps run only in assistant mode, and their
// failures degrade the response rather than fail it.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()

	analysis := s.analyzer.Analyze(req.Query)
	if analysis.Reformulated == "" {
		return nil, ErrEmptyQuery
	}

	intent := analysis.Intent

	switch req.Mode {
	case string(models.IntentSearch):
		intent = models.IntentSearch
	case string(models.IntentAssistant):
		intent = models.IntentAssistant
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	page, err := s.store.Search(ctx, analysis.Reformulated, req.Filters, req.Sort, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	facets, err := s.store.Facets(ctx, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("compute facets: %w", err)
	}

	result := &SearchResult{
		Results:  page.Results,
		Total:    page.Total,
		Facets:   facets,
		Analysis: analysis,
	}
	result.Analysis.Intent = intent

	if intent == models.IntentAssistant {
		result.Answer = s.synthesize(ctx, analysis.Reformulated, req.Filters, page.Results)
	}

	if s.metrics != nil {
		s.metrics.RecordSearch(ctx, string(intent), len(result.Results), time.Since(start))
	}

	s.track(ctx, req, intent, result)

	return result, nil
}

// synthesize runs the assistant path: query embedding, vector retrieval,
// rank fusion, and answer synthesis. Any failure logs and returns nil so the
// keyword results still go out.
func (s *SearchService) synthesize(
	ctx context.Context, query string, filters models.SearchFilters, keywordResults []models.Entry,
) *models.AIAnswer {
	if s.synthesizer == nil {
		return nil
	}

	candidates := s.fusedCandidates(ctx, query, filters, keywordResults)
	if len(candidates) > synthesisCandidates {
		candidates = candidates[:synthesisCandidates]
	}

	answer, err := s.synthesizer.Synthesize(ctx, query, candidates)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSynthesis(ctx, "failed")
		}

		s.logger.Warn("answer synthesis failed, returning results without answer", "error", err)

		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordSynthesis(ctx, "ok")
	}

	return answer
}

// fusedCandidates merges keyword and vector candidate lists by reciprocal
// rank. Vector retrieval failures fall back to the keyword list alone.
func (s *SearchService) fusedCandidates(
	ctx context.Context, query string, filters models.SearchFilters, keywordResults []models.Entry,
) []models.Entry {
	if s.vectors == nil || s.embeddingClient == nil {
		return keywordResults
	}

	queryEmbedding, err := s.queryEmbedding(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, keyword candidates only", "error", err)

		return keywordResults
	}

	nearest, err := s.vectors.NearestEntries(ctx, s.model, queryEmbedding, filters, vectorCandidateLimit, s.minScore)
	if err != nil {
		s.logger.Warn("vector retrieval failed, keyword candidates only", "error", err)

		return keywordResults
	}

	vectorResults := make([]models.Entry, len(nearest))
	for i, hit := range nearest {
		vectorResults[i] = hit.Entry
	}

	return fuseByReciprocalRank(rrfK, keywordResults, vectorResults)
}

// queryEmbedding returns the normalized embedding for query, via the LRU
// cache when configured. Concurrent identical queries share one provider call.
func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	load := func(ctx context.Context, q string) ([]float32, error) {
		vec, err := s.embeddingClient.CreateEmbedding(ctx, q)
		if err != nil {
			return nil, err
		}

		embeddings.NormalizeL2(vec)

		return vec, nil
	}

	if s.embeddingCache == nil {
		return load(ctx, query)
	}

	vec, hit, err := s.embeddingCache.GetWithStats(ctx, query, load)
	if err == nil && s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, observability.CacheNameQueryEmbedding)
		} else {
			s.cacheMetrics.RecordMiss(ctx, observability.CacheNameQueryEmbedding)
		}
	}

	return vec, err
}

// track records the search event without blocking the response. A detached
// context keeps the write alive past the request; tracker failures are the
// tracker's problem.
func (s *SearchService) track(ctx context.Context, req SearchRequest, intent models.QueryIntent, result *SearchResult) {
	event := SearchEvent{
		Query:       req.Query,
		Intent:      intent,
		Filters:     req.Filters.Clone(),
		ResultCount: len(result.Results),
		Synthesized: result.Answer != nil,
	}

	go s.tracker.TrackSearch(context.WithoutCancel(ctx), event)
}

// fuseByReciprocalRank merges ranked lists with reciprocal rank fusion:
// each entry scores sum(1/(k+rank)) across the lists it appears in. Ties
// break by first appearance so fusion stays deterministic.
func fuseByReciprocalRank(k int, lists ...[]models.Entry) []models.Entry {
	type fused struct {
		entry models.Entry
		score float64
		order int
	}

	byID := map[string]*fused{}

	var ordered []*fused

	for _, list := range lists {
		for rank, entry := range list {
			id := entry.ID.String()

			f, ok := byID[id]
			if !ok {
				f = &fused{entry: entry, order: len(ordered)}
				byID[id] = f
				ordered = append(ordered, f)
			}

			f.score += 1.0 / float64(k+rank+1)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}

		return ordered[i].order < ordered[j].order
	})

	merged := make([]models.Entry, len(ordered))
	for i, f := range ordered {
		merged[i] = f.entry
	}

	return merged
}
