package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/pkg/database"
)

// startPostgres runs a throwaway Postgres with pgvector and the project schema
// applied, and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithInitScripts(filepath.Join("..", "..", "scripts", "schema.sql")),
		postgres.WithDatabase("hub"),
		postgres.WithUsername("hub"),
		postgres.WithPassword("hub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(ctr))
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPostgresPool(ctx, dsn)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(pool.Close)

	return pool
}

func seedTaxonomy(t *testing.T, pool *pgxpool.Pool, id string, dimension models.TaxonomyDimension, name string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO taxonomies (id, dimension, name) VALUES ($1, $2, $3)`,
		id, string(dimension), name)
	require.NoError(t, err)
}

func seedEntry(t *testing.T, pool *pgxpool.Pool, sourceID, hub, entryType, title, status string, taxonomyIDs ...string) {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO entries (id, source_id, hub, entry_type, title, slug, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, sourceID, hub, entryType, title, sourceID, status)
	require.NoError(t, err)

	for _, taxID := range taxonomyIDs {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO entry_taxonomies (entry_id, taxonomy_id) VALUES ($1, $2)`, id, taxID)
		require.NoError(t, err)
	}
}

func facetCount(values []models.FacetValue, id string) int {
	for _, v := range values {
		if v.ID == id {
			return v.Count
		}
	}

	return 0
}

func TestEntriesRepositoryPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}

	ctx := context.Background()
	pool := startPostgres(t)
	repo := NewEntriesRepository(pool)

	seedTaxonomy(t, pool, "retail", models.DimensionIndustry, "Retail")
	seedTaxonomy(t, pool, "finance", models.DimensionIndustry, "Finance")
	seedTaxonomy(t, pool, "email", models.DimensionChannel, "Email")

	seedEntry(t, pool, "doc-1", "sales", "battle-card", "Sierra battle card", "published", "retail", "email")
	seedEntry(t, pool, "doc-2", "sales", "battle-card", "Atlas battle card", "published", "retail")
	seedEntry(t, pool, "doc-3", "sales", "case-study", "Acme rollout", "published", "finance")
	seedEntry(t, pool, "doc-4", "marketing", "one-pager", "Pricing one-pager", "published")
	seedEntry(t, pool, "doc-5", "sales", "battle-card", "Draft card", "draft", "retail")

	t.Run("total is independent of limit and offset", func(t *testing.T) {
		first, err := repo.Search(ctx, "", nil, models.SortPriority, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, first.Total)
		assert.Len(t, first.Results, 2)

		last, err := repo.Search(ctx, "", nil, models.SortPriority, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, last.Total)
		assert.Len(t, last.Results, 1)

		all, err := repo.Search(ctx, "", nil, models.SortPriority, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, all.Total)
		assert.Len(t, all.Results, 4)
	})

	t.Run("draft entries are invisible", func(t *testing.T) {
		page, err := repo.Search(ctx, "card", nil, models.SortPriority, 50, 0)
		require.NoError(t, err)

		assert.Equal(t, 2, page.Total)
		for _, entry := range page.Results {
			assert.Equal(t, models.StatusPublished, entry.Status)
		}
	})

	t.Run("taxonomy filters never shrink facet counts", func(t *testing.T) {
		unfiltered, err := repo.Facets(ctx, nil)
		require.NoError(t, err)

		industry := unfiltered[string(models.DimensionIndustry)]
		assert.Equal(t, 2, facetCount(industry, "retail"))
		assert.Equal(t, 1, facetCount(industry, "finance"))

		filtered, err := repo.Facets(ctx, models.SearchFilters{models.FilterIndustry: "retail"})
		require.NoError(t, err)
		assert.Equal(t, unfiltered, filtered)

		// The same filter does narrow the result page.
		page, err := repo.Search(ctx, "", models.SearchFilters{models.FilterIndustry: "retail"}, models.SortPriority, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("hub and type selections do constrain facets", func(t *testing.T) {
		facets, err := repo.Facets(ctx, models.SearchFilters{models.FilterHub: "sales"})
		require.NoError(t, err)

		types := facets[models.FacetDimensionType]
		assert.Equal(t, 2, facetCount(types, "battle-card"))
		assert.Equal(t, 1, facetCount(types, "case-study"))
		assert.Zero(t, facetCount(types, "one-pager"))
	})

	t.Run("taxonomy refs are resolved on results", func(t *testing.T) {
		page, err := repo.Search(ctx, "Sierra", nil, models.SortPriority, 50, 0)
		require.NoError(t, err)
		require.Len(t, page.Results, 1)

		refs := page.Results[0].Taxonomy[models.DimensionIndustry]
		require.Len(t, refs, 1)
		assert.Equal(t, "retail", refs[0].ID)
		assert.Equal(t, "Retail", refs[0].Name)
	})
}
