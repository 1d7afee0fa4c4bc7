package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/enablehub/hub/internal/errors"
	"github.com/enablehub/hub/internal/models"
)

type mockEntryFetcher struct {
	getFunc func(ctx context.Context, sourceID string) (*models.Entry, error)
}

func (m *mockEntryFetcher) GetBySourceID(ctx context.Context, sourceID string) (*models.Entry, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, sourceID)
	}

	return nil, apperrors.NewNotFoundError("entry", "not found")
}

type mockEmbeddingStore struct {
	getFunc     func(ctx context.Context, sourceID, model string) ([]float32, string, error)
	upsertFunc  func(ctx context.Context, sourceID, model string, embedding []float32, contentHash string) error
	upsertCalls int
}

func (m *mockEmbeddingStore) GetBySource(ctx context.Context, sourceID, model string) ([]float32, string, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, sourceID, model)
	}

	return nil, "", errors.New("no embedding")
}

func (m *mockEmbeddingStore) Upsert(ctx context.Context, sourceID, model string, embedding []float32, contentHash string) error {
	m.upsertCalls++
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, sourceID, model, embedding, contentHash)
	}

	return nil
}

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
	calls      int
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.calls++
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return []float32{3, 4}, nil
}

func embeddingJob(sourceID string) *river.Job[EntryEmbeddingArgs] {
	return &river.Job[EntryEmbeddingArgs]{
		JobRow: &rivertype.JobRow{ID: 1},
		Args:   EntryEmbeddingArgs{SourceID: sourceID},
	}
}

func publishedEntry(sourceID string) *models.Entry {
	return &models.Entry{
		SourceID: sourceID,
		Status:   models.StatusPublished,
		Title:    "Objection handling playbook",
		Summary:  "Common pricing objections",
	}
}

func TestEmbeddingWorker_Work(t *testing.T) {
	t.Run("embeds and stores a published entry", func(t *testing.T) {
		client := &mockEmbeddingClient{}
		store := &mockEmbeddingStore{
			upsertFunc: func(_ context.Context, sourceID, model string, embedding []float32, contentHash string) error {
				assert.Equal(t, "doc-1", sourceID)
				assert.Equal(t, "text-embedding-3-small", model)
				assert.NotEmpty(t, contentHash)
				assert.InDelta(t, 0.6, float64(embedding[0]), 1e-6)
				assert.InDelta(t, 0.8, float64(embedding[1]), 1e-6)

				return nil
			},
		}
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries: &mockEntryFetcher{
				getFunc: func(_ context.Context, sourceID string) (*models.Entry, error) {
					return publishedEntry(sourceID), nil
				},
			},
			Embeddings:      store,
			EmbeddingClient: client,
			Model:           "text-embedding-3-small",
		})

		err := worker.Work(context.Background(), embeddingJob("doc-1"))

		require.NoError(t, err)
		assert.Equal(t, 1, store.upsertCalls)
	})

	t.Run("deleted entry completes without retry", func(t *testing.T) {
		client := &mockEmbeddingClient{}
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries:         &mockEntryFetcher{},
			Embeddings:      &mockEmbeddingStore{},
			EmbeddingClient: client,
		})

		err := worker.Work(context.Background(), embeddingJob("gone"))

		require.NoError(t, err)
		assert.Zero(t, client.calls)
	})

	t.Run("other fetch errors are retried", func(t *testing.T) {
		fetchErr := errors.New("connection refused")
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries: &mockEntryFetcher{
				getFunc: func(_ context.Context, _ string) (*models.Entry, error) {
					return nil, fetchErr
				},
			},
			Embeddings:      &mockEmbeddingStore{},
			EmbeddingClient: &mockEmbeddingClient{},
		})

		err := worker.Work(context.Background(), embeddingJob("doc-1"))

		assert.ErrorIs(t, err, fetchErr)
	})

	t.Run("unpublished entry is skipped", func(t *testing.T) {
		client := &mockEmbeddingClient{}
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries: &mockEntryFetcher{
				getFunc: func(_ context.Context, sourceID string) (*models.Entry, error) {
					entry := publishedEntry(sourceID)
					entry.Status = "draft"

					return entry, nil
				},
			},
			Embeddings:      &mockEmbeddingStore{},
			EmbeddingClient: client,
		})

		err := worker.Work(context.Background(), embeddingJob("doc-1"))

		require.NoError(t, err)
		assert.Zero(t, client.calls)
	})

	t.Run("matching stored hash skips the provider", func(t *testing.T) {
		client := &mockEmbeddingClient{}

		var hash string

		fetcher := &mockEntryFetcher{
			getFunc: func(_ context.Context, sourceID string) (*models.Entry, error) {
				return publishedEntry(sourceID), nil
			},
		}

		// First run stores the hash; second run sees it and skips.
		store := &mockEmbeddingStore{
			upsertFunc: func(_ context.Context, _, _ string, _ []float32, contentHash string) error {
				hash = contentHash

				return nil
			},
		}
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries:         fetcher,
			Embeddings:      store,
			EmbeddingClient: client,
			Model:           "m",
		})

		require.NoError(t, worker.Work(context.Background(), embeddingJob("doc-1")))
		require.Equal(t, 1, client.calls)

		store.getFunc = func(_ context.Context, _, _ string) ([]float32, string, error) {
			return []float32{0.6, 0.8}, hash, nil
		}

		require.NoError(t, worker.Work(context.Background(), embeddingJob("doc-1")))
		assert.Equal(t, 1, client.calls)
		assert.Equal(t, 1, store.upsertCalls)
	})

	t.Run("provider failure is retried", func(t *testing.T) {
		providerErr := errors.New("rate limited")
		store := &mockEmbeddingStore{}
		worker := NewEmbeddingWorker(EmbeddingWorkerDeps{
			Entries: &mockEntryFetcher{
				getFunc: func(_ context.Context, sourceID string) (*models.Entry, error) {
					return publishedEntry(sourceID), nil
				},
			},
			Embeddings: store,
			EmbeddingClient: &mockEmbeddingClient{
				createFunc: func(_ context.Context, _ string) ([]float32, error) {
					return nil, providerErr
				},
			},
		})

		err := worker.Work(context.Background(), embeddingJob("doc-1"))

		assert.ErrorIs(t, err, providerErr)
		assert.Zero(t, store.upsertCalls)
	})
}
