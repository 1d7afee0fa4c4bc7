// Package hubclient provides a stateful search client for hub UIs: it owns
// the current query, filter set, and results, keeps them in sync with URL
// query parameters, and guarantees that out-of-order responses never
// overwrite newer state.
package hubclient

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/service"
)

// Searcher executes search requests. Satisfied by *service.SearchService and
// by HTTP-backed implementations.
type Searcher interface {
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
}

// State is a snapshot of the controller's visible state. Results and Answer
// always describe the same request; a failed search clears both.
type State struct {
	Query    string
	Filters  models.SearchFilters
	Sort     models.SortMode
	Results  []models.Entry
	Total    int
	Facets   models.FacetSet
	Analysis models.QueryAnalysis
	Answer   *models.AIAnswer
	Loading  bool
	Err      error
}

// Controller coordinates searches issued from a UI. Concurrent calls are
// safe; when searches overlap, the last issued one wins and earlier in-flight
// requests are cancelled.
type Controller struct {
	searcher Searcher

	mu      sync.Mutex
	state   State
	seq     uint64
	cancel  context.CancelFunc
	limit   int
}

// NewController creates a controller with an empty state.
func NewController(searcher Searcher, limit int) *Controller {
	if limit <= 0 {
		limit = 20
	}

	return &Controller{
		searcher: searcher,
		state: State{
			Filters: models.SearchFilters{},
			Sort:    models.SortPriority,
		},
		limit: limit,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	out := c.state
	out.Filters = c.state.Filters.Clone()
	out.Results = append([]models.Entry(nil), c.state.Results...)

	return out
}

// Search runs a search for query in the given mode ("search", "assistant",
// or "" to route by analysis). A blank query is a no-op that leaves current
// state untouched. Issuing a new search cancels any in-flight one; a
// superseded response is discarded even if it arrives later.
func (c *Controller) Search(ctx context.Context, query, mode string) State {
	query = strings.TrimSpace(query)

	c.mu.Lock()

	if query == "" {
		out := c.snapshotLocked()
		c.mu.Unlock()

		return out
	}

	seq := c.beginLocked()
	c.state.Query = query
	c.state.Loading = true

	// Explicit search mode never shows a stale assistant answer.
	if mode == string(models.IntentSearch) {
		c.state.Answer = nil
	}

	req := service.SearchRequest{
		Query:   query,
		Mode:    mode,
		Filters: c.state.Filters.Clone(),
		Sort:    c.state.Sort,
		Limit:   c.limit,
	}

	searchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	result, err := c.searcher.Search(searchCtx, req)
	cancel()

	return c.apply(seq, result, err)
}

// Refresh re-runs the current query with the current filters, if any.
func (c *Controller) Refresh(ctx context.Context) State {
	c.mu.Lock()
	query := c.state.Query
	c.mu.Unlock()

	if query == "" {
		return c.State()
	}

	return c.Search(ctx, query, "")
}

// SetFilter sets one filter value and re-runs the active query. An empty
// value removes the filter; unknown keys are ignored.
func (c *Controller) SetFilter(ctx context.Context, key models.FilterKey, value string) State {
	if !key.Valid() {
		return c.State()
	}

	c.mu.Lock()

	if value == "" {
		delete(c.state.Filters, key)
	} else {
		c.state.Filters[key] = value
	}

	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetSort changes the sort mode and re-runs the active query.
func (c *Controller) SetSort(ctx context.Context, sort models.SortMode) State {
	c.mu.Lock()
	c.state.Sort = sort
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// ClearFilters removes all filters and re-runs the active query.
func (c *Controller) ClearFilters(ctx context.Context) State {
	c.mu.Lock()
	c.state.Filters = models.SearchFilters{}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Clear cancels any in-flight search and resets to the empty state.
func (c *Controller) Clear() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beginLocked()
	c.state = State{
		Filters: models.SearchFilters{},
		Sort:    c.state.Sort,
	}

	return c.snapshotLocked()
}

// beginLocked bumps the sequence counter and cancels the previous in-flight
// request. Callers must hold the mutex. The returned sequence identifies the
// request that is now the latest.
func (c *Controller) beginLocked() uint64 {
	c.seq++

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	return c.seq
}

// apply installs a response only when it belongs to the latest request.
// Stale responses return the current state unchanged.
func (c *Controller) apply(seq uint64, result *service.SearchResult, err error) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return c.snapshotLocked()
	}

	c.state.Loading = false
	c.cancel = nil

	if err != nil {
		c.state.Results = nil
		c.state.Total = 0
		c.state.Answer = nil
		c.state.Err = err

		return c.snapshotLocked()
	}

	c.state.Err = nil
	c.state.Results = result.Results
	c.state.Total = result.Total
	c.state.Facets = result.Facets
	c.state.Analysis = result.Analysis
	c.state.Answer = result.Answer

	return c.snapshotLocked()
}

// EncodeQuery serializes the query, filters, and sort to URL parameters so
// search state survives page reloads and shared links.
func (c *Controller) EncodeQuery() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := c.state.Filters.Values()

	if c.state.Query != "" {
		values.Set("q", c.state.Query)
	}

	if c.state.Sort != "" && c.state.Sort != models.SortPriority {
		values.Set("sort", string(c.state.Sort))
	}

	return values
}

// ApplyQuery restores state from URL parameters (inverse of EncodeQuery) and
// runs the restored query when present.
func (c *Controller) ApplyQuery(ctx context.Context, values url.Values) State {
	c.mu.Lock()
	c.state.Filters = models.FiltersFromValues(values)
	c.state.Sort = models.ParseSortMode(values.Get("sort"))
	query := values.Get("q")
	c.state.Query = query
	c.mu.Unlock()

	if query == "" {
		return c.State()
	}

	return c.Search(ctx, query, "")
}
