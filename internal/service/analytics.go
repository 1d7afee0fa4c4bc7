package service

import (
	"context"

	"github.com/enablehub/hub/internal/models"
)

// SearchEvent captures one executed search for analytics.
type SearchEvent struct {
	Query       string
	Intent      models.QueryIntent
	Filters     models.SearchFilters
	ResultCount int
	Synthesized bool
}

// Tracker records search events. Implementations must be safe for concurrent
// use; tracking is fire and forget and must never affect the search response.
type Tracker interface {
	TrackSearch(ctx context.Context, event SearchEvent)
}

// NoopTracker discards all events. Used when analytics is disabled.
type NoopTracker struct{}

// TrackSearch implements Tracker.
func (NoopTracker) TrackSearch(context.Context, SearchEvent) {}
