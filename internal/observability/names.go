// Package observability provides OpenTelemetry metrics and tracing for the
// enablement hub search API, plus the slog trace-context handler.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameSearchRequests        = "hub_search_requests_total"
	MetricNameSearchDuration        = "hub_search_duration_seconds"
	MetricNameSearchResults         = "hub_search_results"
	MetricNameAnswerSynthesis       = "hub_answer_synthesis_total"
	MetricNameEmbeddingSync         = "hub_embedding_sync_total"
	MetricNameEmbeddingJobsEnqueued = "hub_embedding_jobs_enqueued_total"
	MetricNameEmbeddingWorkerErrors = "hub_embedding_worker_errors_total"
	MetricNameEmbeddingDuration     = "hub_embedding_duration_seconds"
	MetricNameCacheHits             = "hub_cache_hits_total"
	MetricNameCacheMisses           = "hub_cache_misses_total"
	MetricNameRequestBodyTooLarge   = "hub_request_body_too_large_total"
)

// Attribute keys.
const (
	AttrIntent  = "intent"
	AttrOutcome = "outcome"
	AttrReason  = "reason"
	AttrStatus  = "status"
)

// AllowedSearchIntents for hub_search_requests_total.
var AllowedSearchIntents = map[string]bool{
	"search":    true,
	"assistant": true,
}

// AllowedSynthesisOutcomes for hub_answer_synthesis_total.
var AllowedSynthesisOutcomes = map[string]bool{
	"ok":     true,
	"failed": true,
}

// AllowedSyncOutcomes for hub_embedding_sync_total.
var AllowedSyncOutcomes = map[string]bool{
	"synced":          true,
	"skipped":         true,
	"unchanged":       true,
	"provider_failed": true,
	"upsert_failed":   true,
}

// AllowedWorkerReasons for hub_embedding_worker_errors_total.
var AllowedWorkerReasons = map[string]bool{
	"entry_missing":   true,
	"provider_failed": true,
	"upsert_failed":   true,
}

// CacheNameQueryEmbedding labels the query-embedding LRU cache.
const CacheNameQueryEmbedding = "query_embedding"

// AllowedCacheNames for cache hit/miss counters (bounded cardinality).
var AllowedCacheNames = map[string]bool{
	CacheNameQueryEmbedding: true,
}

// NormalizeLabel returns value if in allowed, otherwise "other".
func NormalizeLabel(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}
