// Package handlers provides HTTP handlers for the search API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/enablehub/hub/internal/api/response"
	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/service"
)

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
}

// SearchHandler handles HTTP requests for hub content search.
type SearchHandler struct {
	service Searcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service Searcher) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchRequestBody is the body for POST /v1/search.
// API contract uses camelCase; unknown filter keys are ignored.
type SearchRequestBody struct {
	Query   string            `json:"query"`
	Mode    string            `json:"mode"`
	Filters map[string]string `json:"filters"`
	Sort    string            `json:"sort"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// SearchResponseBody is the response for POST /v1/search.
type SearchResponseBody struct {
	Results       []models.Entry       `json:"results"`
	Total         int                  `json:"total"`
	Facets        models.FacetSet      `json:"facets"`
	QueryAnalysis models.QueryAnalysis `json:"queryAnalysis"` //nolint:tagliatelle // API contract
	AIResponse    *models.AIAnswer     `json:"aiResponse,omitempty"`
}

// PaginatedSearchResponse is the response for GET /v1/coe/search.
type PaginatedSearchResponse struct {
	Results    []models.Entry  `json:"results"`
	Total      int             `json:"total"`
	Facets     models.FacetSet `json:"facets"`
	Pagination Pagination      `json:"pagination"`
}

// Pagination echoes the applied window and whether more rows exist past it.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// maxSearchOffset caps how far OFFSET-based paging can go; the database still
// computes and discards all rows before the offset, so deep paging is slow.
const maxSearchOffset = 1000

// Search handles POST /v1/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequestBody

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&body); err != nil {
		respondSearchError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	req := service.SearchRequest{
		Query:   body.Query,
		Mode:    body.Mode,
		Filters: filtersFromMap(body.Filters),
		Sort:    models.ParseSortMode(body.Sort),
		Limit:   body.Limit,
		Offset:  min(max(body.Offset, 0), maxSearchOffset),
	}

	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			respondSearchError(w, http.StatusBadRequest, "query is required and must be non-empty")

			return
		}

		respondSearchError(w, http.StatusInternalServerError, "search failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, toSearchResponse(result))
}

// CoESearch handles GET /v1/coe/search: the same retrieval surface with
// query-parameter input and offset pagination, for server-rendered consumers.
func (h *SearchHandler) CoESearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit := parsePositive(params.Get("limit"), 20)

	const maxLimit = 100
	limit = min(limit, maxLimit)

	offset := min(parseOffset(params.Get("offset")), maxSearchOffset)

	req := service.SearchRequest{
		Query:   params.Get("q"),
		Mode:    string(models.IntentSearch),
		Filters: models.FiltersFromValues(params),
		Sort:    models.ParseSortMode(params.Get("sort")),
		Limit:   limit,
		Offset:  offset,
	}

	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			response.RespondBadRequest(w, "q is required and must be non-empty")

			return
		}

		response.RespondInternalServerError(w, "Search failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, PaginatedSearchResponse{
		Results: emptyIfNil(result.Results),
		Total:   result.Total,
		Facets:  result.Facets,
		Pagination: Pagination{
			Offset:  offset,
			Limit:   limit,
			HasMore: offset+len(result.Results) < result.Total,
		},
	})
}

// respondSearchError writes the search API's error shape.
func respondSearchError(w http.ResponseWriter, statusCode int, msg string) {
	response.RespondJSON(w, statusCode, map[string]string{"error": msg})
}

func toSearchResponse(result *service.SearchResult) SearchResponseBody {
	return SearchResponseBody{
		Results:       emptyIfNil(result.Results),
		Total:         result.Total,
		Facets:        result.Facets,
		QueryAnalysis: result.Analysis,
		AIResponse:    result.Answer,
	}
}

// filtersFromMap keeps known filter keys with non-empty values.
func filtersFromMap(raw map[string]string) models.SearchFilters {
	values := url.Values{}
	for k, v := range raw {
		values.Set(k, v)
	}

	return models.FiltersFromValues(values)
}

// emptyIfNil keeps the results field as [] instead of null in JSON.
func emptyIfNil(entries []models.Entry) []models.Entry {
	if entries == nil {
		return []models.Entry{}
	}

	return entries
}

// parseOffset returns the query param "offset" as a non-negative int; default 0.
func parseOffset(s string) int {
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// parsePositive returns s as a positive int, or def when missing or invalid.
func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}

	return n
}
