package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enablehub/hub/internal/observability"
	"github.com/enablehub/hub/internal/repository"
	"github.com/enablehub/hub/internal/service"
)

// StateLister lists published entries joined with their stored embedding hash.
type StateLister interface {
	ListEmbeddingStates(ctx context.Context, model string) ([]repository.EntryEmbeddingState, error)
}

// BackfillEmbeddings enqueues one embedding job per published entry whose
// embedding is missing or whose stored content hash no longer matches the
// current text. Returns the number of jobs enqueued. Unique insert options
// make it safe to run while the webhook sync is live.
func BackfillEmbeddings(
	ctx context.Context,
	lister StateLister,
	inserter JobInserter,
	model string,
	metrics observability.EmbeddingMetrics,
	logger *slog.Logger,
) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	states, err := lister.ListEmbeddingStates(ctx, model)
	if err != nil {
		return 0, fmt.Errorf("list embedding states: %w", err)
	}

	enqueued := 0

	for _, state := range states {
		text := service.BuildEmbeddingText(service.SourceFromState(state))
		if text == "" {
			continue
		}

		if state.HasEmbedding && state.StoredHash == service.ContentHash(text) {
			continue
		}

		if err := inserter.InsertEmbeddingJob(ctx, EntryEmbeddingArgs{SourceID: state.SourceID}); err != nil {
			return enqueued, fmt.Errorf("enqueue embedding job for %s: %w", state.SourceID, err)
		}

		logger.Debug("embedding job enqueued", "source_id", state.SourceID, "had_embedding", state.HasEmbedding)

		enqueued++
	}

	if metrics != nil && enqueued > 0 {
		metrics.RecordJobsEnqueued(ctx, int64(enqueued))
	}

	return enqueued, nil
}
