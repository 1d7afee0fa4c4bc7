package jobs

import (
	"context"
)

// JobInserter enqueues embedding jobs. Services use this interface so they
// do not depend on River directly.
type JobInserter interface {
	InsertEmbeddingJob(ctx context.Context, args EntryEmbeddingArgs) error
}
