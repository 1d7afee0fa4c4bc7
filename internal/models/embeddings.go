package models

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingRecord is one embedding row: at most one per (source document,
// model). The source reference is weak; if the entry is deleted the record
// becomes orphaned and is garbage-collected separately.
type EmbeddingRecord struct {
	ID          uuid.UUID `json:"id"`
	SourceID    string    `json:"source_id"`
	Model       string    `json:"model"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
