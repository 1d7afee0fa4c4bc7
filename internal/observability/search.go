package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SearchMetrics records search request and answer synthesis metrics.
type SearchMetrics interface {
	RecordSearch(ctx context.Context, intent string, resultCount int, duration time.Duration)
	RecordSynthesis(ctx context.Context, outcome string)
}

// searchMetrics implements SearchMetrics.
type searchMetrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	results   metric.Int64Histogram
	synthesis metric.Int64Counter
}

// NewSearchMetrics creates SearchMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewSearchMetrics(meter metric.Meter) (SearchMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameSearchRequests,
		metric.WithDescription("Total search requests by intent"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameSearchDuration,
		metric.WithDescription("Search request duration (seconds) by intent"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search duration histogram: %w", err)
	}

	results, err := meter.Int64Histogram(
		MetricNameSearchResults,
		metric.WithDescription("Result count per search request by intent"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search results histogram: %w", err)
	}

	synthesis, err := meter.Int64Counter(
		MetricNameAnswerSynthesis,
		metric.WithDescription("Answer synthesis outcomes (ok, failed)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create answer synthesis counter: %w", err)
	}

	return &searchMetrics{requests: requests, duration: duration, results: results, synthesis: synthesis}, nil
}

func (s *searchMetrics) RecordSearch(ctx context.Context, intent string, resultCount int, duration time.Duration) {
	intent = NormalizeLabel(intent, AllowedSearchIntents)
	attrs := metric.WithAttributes(attribute.String(AttrIntent, intent))

	s.requests.Add(ctx, 1, attrs)
	s.duration.Record(ctx, duration.Seconds(), attrs)
	s.results.Record(ctx, int64(resultCount), attrs)
}

func (s *searchMetrics) RecordSynthesis(ctx context.Context, outcome string) {
	outcome = NormalizeLabel(outcome, AllowedSynthesisOutcomes)
	s.synthesis.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}
