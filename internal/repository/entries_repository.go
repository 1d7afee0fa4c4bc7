// Package repository provides pgx-based data access for entries and embeddings.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/enablehub/hub/internal/errors"
	"github.com/enablehub/hub/internal/models"
)

// EntriesRepository handles data access for the entries read store: the
// denormalized projection of CMS content documents.
type EntriesRepository struct {
	db *pgxpool.Pool
}

// NewEntriesRepository creates a new entries repository.
func NewEntriesRepository(db *pgxpool.Pool) *EntriesRepository {
	return &EntriesRepository{db: db}
}

const entryColumns = `e.id, e.source_id, e.hub, e.entry_type, e.title, e.slug,
	COALESCE(e.summary, ''), COALESCE(e.headline, ''), COALESCE(e.body, ''),
	COALESCE(e.customer, ''), COALESCE(e.account, ''), e.tags, e.status,
	e.priority, e.featured, e.created_at, e.updated_at`

// escapeLike escapes LIKE wildcards so user input is matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)

	return s
}

// buildSearchConditions builds the WHERE conditions and arguments for a
// search predicate: publication status, optional free-text match, and the
// closed filter set. Matching is substring (ILIKE) over the text columns OR
// a case-insensitive tag membership test; this is deliberately not fuzzy.
func buildSearchConditions(query string, filters models.SearchFilters) (string, []any) {
	conditions := []string{"e.status = $1"}
	args := []any{models.StatusPublished}

	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		args = append(args, pattern)
		patternIdx := len(args)
		args = append(args, query)
		tagIdx := len(args)
		conditions = append(conditions, fmt.Sprintf(`(
			e.title ILIKE $%[1]d OR e.summary ILIKE $%[1]d OR e.headline ILIKE $%[1]d
			OR e.customer ILIKE $%[1]d OR e.account ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(e.tags) tag WHERE lower(tag) = lower($%[2]d))
		)`, patternIdx, tagIdx))
	}

	for _, key := range models.FilterKeys {
		value, ok := filters[key]
		if !ok || value == "" {
			continue
		}

		switch key {
		case models.FilterHub:
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("e.hub = $%d", len(args)))
		case models.FilterType:
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("e.entry_type = $%d", len(args)))
		default:
			dim := key.TaxonomyDimension()
			if dim == "" {
				continue
			}

			args = append(args, string(dim), value)
			conditions = append(conditions, fmt.Sprintf(`EXISTS (
				SELECT 1 FROM entry_taxonomies et
				JOIN taxonomies t ON t.id = et.taxonomy_id
				WHERE et.entry_id = e.id AND t.dimension = $%d AND t.id = $%d
			)`, len(args)-1, len(args)))
		}
	}

	return strings.Join(conditions, " AND "), args
}

// orderClause maps a sort mode to its ORDER BY clause. Priority sorts by
// priority descending with most-recently-updated as tiebreak; the other
// modes are single-key as named.
func orderClause(sort models.SortMode) string {
	switch sort {
	case models.SortUpdated:
		return "e.updated_at DESC"
	case models.SortCreated:
		return "e.created_at DESC"
	case models.SortTitle:
		return "e.title ASC"
	case models.SortCustomer:
		return "e.customer ASC NULLS LAST"
	case models.SortPriority:
		return "e.priority DESC, e.updated_at DESC"
	default:
		return "e.priority DESC, e.updated_at DESC"
	}
}

// Search runs one search against the read store and returns the result page
// plus the total count matching the same predicate (independent of
// limit/offset). Taxonomy references on returned entries are always resolved.
func (r *EntriesRepository) Search(
	ctx context.Context, query string, filters models.SearchFilters, sort models.SortMode, limit, offset int,
) (models.EntryPage, error) {
	page := models.EntryPage{Results: []models.Entry{}}

	where, args := buildSearchConditions(query, filters)

	countSQL := "SELECT COUNT(*) FROM entries e WHERE " + where
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count entries: %w", err)
	}

	args = append(args, limit, offset)
	listSQL := fmt.Sprintf(
		"SELECT %s FROM entries e WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		entryColumns, where, orderClause(sort), len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return page, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return page, err
	}

	if err := r.attachTaxonomy(ctx, entries); err != nil {
		return page, err
	}

	page.Results = entries

	return page, nil
}

// GetBySourceID returns the entry projected from the given CMS document.
func (r *EntriesRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Entry, error) {
	sql := fmt.Sprintf("SELECT %s FROM entries e WHERE e.source_id = $1", entryColumns)

	rows, err := r.db.Query(ctx, sql, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get entry by source id: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, apperrors.NewNotFoundError("entry", "entry not found for source "+sourceID)
	}

	if err := r.attachTaxonomy(ctx, entries); err != nil {
		return nil, err
	}

	return &entries[0], nil
}

// Facets returns per-dimension value counts over the unfiltered published
// corpus, constrained only by the hub/type selection. The active taxonomy
// filters and query are deliberately ignored so counts never shrink when a
// filter is applied.
func (r *EntriesRepository) Facets(ctx context.Context, filters models.SearchFilters) (models.FacetSet, error) {
	conditions := []string{"e.status = $1"}
	args := []any{models.StatusPublished}

	if hub := filters[models.FilterHub]; hub != "" {
		args = append(args, hub)
		conditions = append(conditions, fmt.Sprintf("e.hub = $%d", len(args)))
	}

	if entryType := filters[models.FilterType]; entryType != "" {
		args = append(args, entryType)
		conditions = append(conditions, fmt.Sprintf("e.entry_type = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")
	facets := models.FacetSet{}

	taxSQL := fmt.Sprintf(`
		SELECT t.dimension, t.id, t.name, COALESCE(t.icon, ''), COUNT(et.entry_id)
		FROM taxonomies t
		JOIN entry_taxonomies et ON et.taxonomy_id = t.id
		JOIN entries e ON e.id = et.entry_id
		WHERE %s
		GROUP BY t.dimension, t.id, t.name, t.icon
		ORDER BY t.dimension, COUNT(et.entry_id) DESC, t.name`, where)

	rows, err := r.db.Query(ctx, taxSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("facet counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dimension string
			value     models.FacetValue
		)

		if err := rows.Scan(&dimension, &value.ID, &value.Name, &value.Icon, &value.Count); err != nil {
			return nil, fmt.Errorf("scan facet value: %w", err)
		}

		facets[dimension] = append(facets[dimension], value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating facets: %w", err)
	}

	typeSQL := fmt.Sprintf(`
		SELECT e.entry_type, COUNT(*) FROM entries e
		WHERE %s
		GROUP BY e.entry_type
		ORDER BY COUNT(*) DESC, e.entry_type`, where)

	typeRows, err := r.db.Query(ctx, typeSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("type facet counts: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var value models.FacetValue

		if err := typeRows.Scan(&value.ID, &value.Count); err != nil {
			return nil, fmt.Errorf("scan type facet: %w", err)
		}

		value.Name = value.ID
		facets[models.FacetDimensionType] = append(facets[models.FacetDimensionType], value)
	}

	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating type facets: %w", err)
	}

	return facets, nil
}

// EntryEmbeddingState is one published entry's text fields plus the stored
// content hash of its embedding (empty when no embedding exists yet).
// Used by the backfill command to find missing or stale embeddings.
type EntryEmbeddingState struct {
	SourceID     string
	Title        string
	Summary      string
	Headline     string
	Body         string
	Customer     string
	Account      string
	Tags         []string
	StoredHash   string
	HasEmbedding bool
}

// ListEmbeddingStates returns every published entry joined with its stored
// embedding hash for the given model.
func (r *EntriesRepository) ListEmbeddingStates(ctx context.Context, model string) ([]EntryEmbeddingState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.source_id, e.title, COALESCE(e.summary, ''), COALESCE(e.headline, ''),
			COALESCE(e.body, ''), COALESCE(e.customer, ''), COALESCE(e.account, ''), e.tags,
			COALESCE(emb.content_hash, ''), emb.source_id IS NOT NULL
		FROM entries e
		LEFT JOIN embeddings emb ON emb.source_id = e.source_id AND emb.model = $1
		WHERE e.status = $2`, model, models.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("list embedding states: %w", err)
	}
	defer rows.Close()

	var states []EntryEmbeddingState

	for rows.Next() {
		var s EntryEmbeddingState

		err := rows.Scan(&s.SourceID, &s.Title, &s.Summary, &s.Headline, &s.Body,
			&s.Customer, &s.Account, &s.Tags, &s.StoredHash, &s.HasEmbedding)
		if err != nil {
			return nil, fmt.Errorf("scan embedding state: %w", err)
		}

		states = append(states, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embedding states: %w", err)
	}

	return states, nil
}

// scanEntries reads entry rows (entryColumns order) without taxonomy refs.
func scanEntries(rows pgx.Rows) ([]models.Entry, error) {
	var entries []models.Entry

	for rows.Next() {
		var e models.Entry

		err := rows.Scan(
			&e.ID, &e.SourceID, &e.Hub, &e.Type, &e.Title, &e.Slug,
			&e.Summary, &e.Headline, &e.Body, &e.Customer, &e.Account, &e.Tags,
			&e.Status, &e.Priority, &e.Featured, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

// attachTaxonomy resolves taxonomy references for the given entries in one
// query and groups them by dimension. Entries never leave the repository
// with bare taxonomy IDs.
func (r *EntriesRepository) attachTaxonomy(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]any, 0, len(entries))
	byID := make(map[string]*models.Entry, len(entries))

	for i := range entries {
		ids = append(ids, entries[i].ID)
		byID[entries[i].ID.String()] = &entries[i]
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf(`
		SELECT et.entry_id, t.dimension, t.id, t.name, COALESCE(t.icon, '')
		FROM entry_taxonomies et
		JOIN taxonomies t ON t.id = et.taxonomy_id
		WHERE et.entry_id IN (%s)
		ORDER BY t.dimension, t.name`, strings.Join(placeholders, ", "))

	rows, err := r.db.Query(ctx, sql, ids...)
	if err != nil {
		return fmt.Errorf("resolve taxonomy refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID   string
			dimension models.TaxonomyDimension
			ref       models.TaxonomyRef
		)

		if err := rows.Scan(&entryID, &dimension, &ref.ID, &ref.Name, &ref.Icon); err != nil {
			return fmt.Errorf("scan taxonomy ref: %w", err)
		}

		entry, ok := byID[entryID]
		if !ok {
			continue
		}

		if entry.Taxonomy == nil {
			entry.Taxonomy = map[models.TaxonomyDimension][]models.TaxonomyRef{}
		}

		entry.Taxonomy[dimension] = append(entry.Taxonomy[dimension], ref)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating taxonomy refs: %w", err)
	}

	return nil
}
