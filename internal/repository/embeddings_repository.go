package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/enablehub/hub/internal/models"
)

// ErrEmbeddingNotFound is returned when no embedding row exists for the given
// source document and model.
var ErrEmbeddingNotFound = errors.New("embedding not found for source document and model")

// EmbeddingsRepository handles data access for the embeddings table.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// Upsert inserts or updates the embedding for (source_id, model). On conflict
// updates embedding, content hash, and updated_at; never creates a duplicate
// row for the same source reference. Uses halfvec storage (2 bytes per
// dimension); pgvector-go converts float32 to float16 when encoding.
func (r *EmbeddingsRepository) Upsert(
	ctx context.Context, sourceID, model string, embedding []float32, contentHash string,
) error {
	vec := pgvector.NewHalfVector(embedding)
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO embeddings (source_id, embedding, model, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding, content_hash = EXCLUDED.content_hash, updated_at = $6`,
		sourceID, vec, model, contentHash, now, now,
	)
	if err != nil {
		return fmt.Errorf("embeddings upsert: %w", err)
	}

	return nil
}

// GetBySource returns the stored vector and content hash for the given
// source document and model. Returns ErrEmbeddingNotFound when no row exists.
func (r *EmbeddingsRepository) GetBySource(
	ctx context.Context, sourceID, model string,
) ([]float32, string, error) {
	var (
		vec  pgvector.HalfVector
		hash string
	)

	err := r.db.QueryRow(ctx,
		`SELECT embedding, content_hash FROM embeddings WHERE source_id = $1 AND model = $2`,
		sourceID, model,
	).Scan(&vec, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrEmbeddingNotFound
		}

		return nil, "", fmt.Errorf("get embedding: %w", err)
	}

	return vec.Slice(), hash, nil
}

// DeleteBySource removes the embedding row for the given source document and model.
func (r *EmbeddingsRepository) DeleteBySource(ctx context.Context, sourceID, model string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM embeddings WHERE source_id = $1 AND model = $2`,
		sourceID, model,
	)
	if err != nil {
		return fmt.Errorf("embeddings delete: %w", err)
	}

	return nil
}

// DeleteOrphaned removes embedding rows whose source entry no longer exists.
// The source reference is weak, so deleting an entry leaves its embedding
// behind until this runs (e.g. from the backfill command).
func (r *EmbeddingsRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM embeddings emb
		WHERE NOT EXISTS (SELECT 1 FROM entries e WHERE e.source_id = emb.source_id)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned embeddings: %w", err)
	}

	return tag.RowsAffected(), nil
}

// NearestEntries returns published entries and similarity scores (0..1) for
// the nearest neighbors to queryEmbedding, filtered by model and the
// hub/type selection. Only rows with score >= minScore are returned.
// Uses cosine distance (<=>); score = 1 - distance.
func (r *EmbeddingsRepository) NearestEntries(
	ctx context.Context, model string, queryEmbedding []float32, filters models.SearchFilters, limit int, minScore float64,
) ([]models.EntryWithScore, error) {
	queryVec := pgvector.NewHalfVector(queryEmbedding)

	conditions := "emb.model = $2 AND e.status = $3 AND (1 - (emb.embedding <=> $1)) >= $4"
	args := []any{queryVec, model, models.StatusPublished, minScore}

	if hub := filters[models.FilterHub]; hub != "" {
		args = append(args, hub)
		conditions += fmt.Sprintf(" AND e.hub = $%d", len(args))
	}

	if entryType := filters[models.FilterType]; entryType != "" {
		args = append(args, entryType)
		conditions += fmt.Sprintf(" AND e.entry_type = $%d", len(args))
	}

	args = append(args, limit)
	sql := fmt.Sprintf(`
		SELECT %s, (1 - (emb.embedding <=> $1)) AS score
		FROM embeddings emb
		INNER JOIN entries e ON e.source_id = emb.source_id
		WHERE %s
		ORDER BY emb.embedding <=> $1
		LIMIT $%d`, entryColumns, conditions, len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("nearest entries: %w", err)
	}
	defer rows.Close()

	var results []models.EntryWithScore

	for rows.Next() {
		var row models.EntryWithScore

		err := rows.Scan(
			&row.Entry.ID, &row.Entry.SourceID, &row.Entry.Hub, &row.Entry.Type,
			&row.Entry.Title, &row.Entry.Slug, &row.Entry.Summary, &row.Entry.Headline,
			&row.Entry.Body, &row.Entry.Customer, &row.Entry.Account, &row.Entry.Tags,
			&row.Entry.Status, &row.Entry.Priority, &row.Entry.Featured,
			&row.Entry.CreatedAt, &row.Entry.UpdatedAt, &row.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry with score: %w", err)
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return results, nil
}
