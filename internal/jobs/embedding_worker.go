package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	apperrors "github.com/enablehub/hub/internal/errors"
	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/observability"
	"github.com/enablehub/hub/internal/service"
	"github.com/enablehub/hub/pkg/embeddings"
)

// EntryFetcher loads the entry projection for a source document.
type EntryFetcher interface {
	GetBySourceID(ctx context.Context, sourceID string) (*models.Entry, error)
}

// EmbeddingStore reads and writes stored embeddings. GetBySource returns the
// stored vector and content hash; the worker only needs the hash.
type EmbeddingStore interface {
	GetBySource(ctx context.Context, sourceID, model string) ([]float32, string, error)
	Upsert(ctx context.Context, sourceID, model string, embedding []float32, contentHash string) error
}

// EmbeddingWorkerDeps holds the dependencies for the embedding worker.
// RateLimiter and Metrics may be nil.
type EmbeddingWorkerDeps struct {
	Entries         EntryFetcher
	Embeddings      EmbeddingStore
	EmbeddingClient service.EmbeddingClient
	Model           string
	RateLimiter     *rate.Limiter
	Metrics         observability.EmbeddingMetrics
	Logger          *slog.Logger
}

// EmbeddingWorker processes entry embedding jobs enqueued by the backfill
// command. It skips entries whose stored hash already matches the current
// text, so re-running a backfill is cheap.
type EmbeddingWorker struct {
	river.WorkerDefaults[EntryEmbeddingArgs]
	deps EmbeddingWorkerDeps
}

// NewEmbeddingWorker creates an embedding worker with the given dependencies.
func NewEmbeddingWorker(deps EmbeddingWorkerDeps) *EmbeddingWorker {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &EmbeddingWorker{deps: deps}
}

// Work processes one embedding job.
func (w *EmbeddingWorker) Work(ctx context.Context, job *river.Job[EntryEmbeddingArgs]) error {
	start := time.Now()
	args := job.Args
	logger := w.deps.Logger.With("job_id", job.ID, "source_id", args.SourceID)

	logger.Debug("processing embedding job")

	entry, err := w.deps.Entries.GetBySourceID(ctx, args.SourceID)
	if err != nil {
		var notFoundErr *apperrors.NotFoundError
		if errors.As(err, &notFoundErr) {
			// Entry deleted before the job ran. Complete, not retry; the
			// orphaned embedding row is the gc pass's problem.
			logger.Info("entry deleted before embedding job completed")

			return nil
		}

		w.recordError(ctx, "entry_missing")
		logger.Error("failed to load entry", "error", err)

		return err
	}

	if entry.Status != models.StatusPublished {
		logger.Debug("entry not published, skipping")
		w.recordOutcome(ctx, start, "skipped")

		return nil
	}

	text := service.BuildEmbeddingText(service.SourceFromEntry(*entry))
	if text == "" {
		logger.Debug("entry has no embeddable text, skipping")
		w.recordOutcome(ctx, start, "skipped")

		return nil
	}

	hash := service.ContentHash(text)

	_, storedHash, err := w.deps.Embeddings.GetBySource(ctx, args.SourceID, w.deps.Model)
	if err == nil && storedHash == hash {
		logger.Debug("embedding up to date", "content_hash", hash)
		w.recordOutcome(ctx, start, "unchanged")

		return nil
	}

	if w.deps.RateLimiter != nil {
		if err := w.deps.RateLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	vector, err := w.deps.EmbeddingClient.CreateEmbedding(ctx, text)
	if err != nil {
		w.recordError(ctx, "provider_failed")
		logger.Error("failed to generate embedding", "error", err)

		return err // River retries based on configuration.
	}

	embeddings.NormalizeL2(vector)

	if err := w.deps.Embeddings.Upsert(ctx, args.SourceID, w.deps.Model, vector, hash); err != nil {
		w.recordError(ctx, "upsert_failed")
		logger.Error("failed to store embedding", "error", err)

		return err
	}

	logger.Info("embedding generated", "content_hash", hash)
	w.recordOutcome(ctx, start, "synced")

	return nil
}

func (w *EmbeddingWorker) recordOutcome(ctx context.Context, start time.Time, status string) {
	if w.deps.Metrics == nil {
		return
	}

	w.deps.Metrics.RecordSyncOutcome(ctx, status)
	w.deps.Metrics.RecordEmbeddingDuration(ctx, time.Since(start), status)
}

func (w *EmbeddingWorker) recordError(ctx context.Context, reason string) {
	if w.deps.Metrics == nil {
		return
	}

	w.deps.Metrics.RecordWorkerError(ctx, reason)
}
