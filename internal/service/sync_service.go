package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/observability"
	"github.com/enablehub/hub/pkg/embeddings"
)

// SyncOutcome describes what the synchronizer did with a document event.
type SyncOutcome string

// Sync outcomes. Skips are expected traffic (non-tracked types, drafts),
// not errors, and must not produce log noise or retries.
const (
	SyncOutcomeSynced  SyncOutcome = "synced"
	SyncOutcomeSkipped SyncOutcome = "skipped"
)

// EmbeddingUpserter persists one embedding per (source document, model).
type EmbeddingUpserter interface {
	Upsert(ctx context.Context, sourceID, model string, embedding []float32, contentHash string) error
}

// SyncService keeps one up-to-date semantic vector per published source
// document, idempotently: the upsert is keyed on the source reference, so
// replaying the same event is safe.
type SyncService struct {
	embeddingClient EmbeddingClient
	upserter        EmbeddingUpserter
	model           string
	trackedType     string
	limiter         *rate.Limiter
	metrics         observability.EmbeddingMetrics
	logger          *slog.Logger
}

// SyncServiceParams configures SyncService. Limiter and Metrics may be nil.
type SyncServiceParams struct {
	EmbeddingClient EmbeddingClient
	Upserter        EmbeddingUpserter
	Model           string
	TrackedType     string
	Limiter         *rate.Limiter
	Metrics         observability.EmbeddingMetrics
	Logger          *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(p SyncServiceParams) *SyncService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		embeddingClient: p.EmbeddingClient,
		upserter:        p.Upserter,
		model:           p.Model,
		trackedType:     p.TrackedType,
		limiter:         p.Limiter,
		metrics:         p.Metrics,
		logger:          logger,
	}
}

// Sync processes one document change event. Documents of other types or not
// yet published are skipped without error. On provider failure the whole
// operation fails and nothing is written; the stored content hash is saved
// but not consulted, so every published-change event re-embeds.
func (s *SyncService) Sync(ctx context.Context, doc models.ContentDocument) (SyncOutcome, error) {
	if doc.Type != s.trackedType || doc.Status != models.StatusPublished {
		return SyncOutcomeSkipped, nil
	}

	text := BuildEmbeddingText(SourceFromDocument(doc))
	if text == "" {
		s.logger.Debug("embedding sync: empty document text", "source_id", doc.SourceID)

		return SyncOutcomeSkipped, nil
	}

	hash := ContentHash(text)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return SyncOutcomeSkipped, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	vector, err := s.embeddingClient.CreateEmbedding(ctx, text)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSyncOutcome(ctx, "provider_failed")
		}

		s.logger.Error("embedding sync: provider failed", "source_id", doc.SourceID, "error", err)

		return SyncOutcomeSkipped, fmt.Errorf("create embedding: %w", err)
	}

	embeddings.NormalizeL2(vector)

	if err := s.upserter.Upsert(ctx, doc.SourceID, s.model, vector, hash); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSyncOutcome(ctx, "upsert_failed")
		}

		s.logger.Error("embedding sync: upsert failed", "source_id", doc.SourceID, "error", err)

		return SyncOutcomeSkipped, fmt.Errorf("upsert embedding: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSyncOutcome(ctx, "synced")
	}

	s.logger.Info("embedding sync: stored", "source_id", doc.SourceID, "content_hash", hash)

	return SyncOutcomeSynced, nil
}
