package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// RiverJobInserter implements JobInserter using the River client.
type RiverJobInserter struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// NewRiverJobInserter creates a River-based job inserter.
func NewRiverJobInserter(client *river.Client[pgx.Tx], maxAttempts int) *RiverJobInserter {
	return &RiverJobInserter{client: client, maxAttempts: maxAttempts}
}

// InsertEmbeddingJob enqueues an embedding job with uniqueness constraints.
func (r *RiverJobInserter) InsertEmbeddingJob(ctx context.Context, args EntryEmbeddingArgs) error {
	_, err := r.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       EmbeddingsQueueName,
		MaxAttempts: r.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			// Only one pending job per entry (by args).
			ByArgs: true,
			// Note: JobStatePending is required by River when using ByState.
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("insert embedding job: %w", err)
	}

	return nil
}
