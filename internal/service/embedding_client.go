package service

import "context"

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (e.g. OpenAI, Google Gemini).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ChatClient produces a completion for a system/user prompt pair.
// Implemented by the OpenAI client; used for answer synthesis.
type ChatClient interface {
	CreateCompletion(ctx context.Context, system, user string) (string, error)
}
