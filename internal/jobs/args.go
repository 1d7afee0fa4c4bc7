// Package jobs provides River job workers for async embedding generation.
package jobs

import (
	"github.com/riverqueue/river"
)

const entryEmbeddingKind = "entry_embedding"

// EmbeddingsQueueName is the River queue used for entry embedding jobs.
const EmbeddingsQueueName = "embeddings"

// EntryEmbeddingArgs is the job payload for generating and storing the
// embedding of one entry. Uniqueness is by SourceID so duplicate webhook
// deliveries or backfill runs for the same entry do not create duplicate jobs.
type EntryEmbeddingArgs struct {
	SourceID string `json:"source_id" river:"unique"`
}

// Kind returns the River job kind.
func (EntryEmbeddingArgs) Kind() string { return entryEmbeddingKind }

var _ river.JobArgs = EntryEmbeddingArgs{}
