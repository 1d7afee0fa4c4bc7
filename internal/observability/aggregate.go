package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all hub metric collectors. When metrics are disabled, all fields are nil.
// Components that accept an interface (SearchMetrics, EmbeddingMetrics, CacheMetrics,
// APIMetrics) can receive the corresponding field; they already handle nil.
type Metrics struct {
	Search     SearchMetrics
	Embeddings EmbeddingMetrics
	Cache      CacheMetrics
	API        APIMetrics
	HTTP       HTTPMetrics
}

// NewMetrics creates all metric collectors from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	search, err := NewSearchMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("search metrics: %w", err)
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	return &Metrics{
		Search:     search,
		Embeddings: embeddings,
		Cache:      cache,
		API:        api,
		HTTP:       httpMetrics,
	}, nil
}
