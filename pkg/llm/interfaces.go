// Package llm provides the OpenAI embedding client used by the vectorization
// pipeline and by query-time search.
package llm

import "context"

// EmbeddingClient generates embedding vectors for text.
// Use this interface for dependency injection to enable mocking in tests.
//
// Storage and search must go through the same client so both sides of a
// similarity comparison live in the same embedding space; mixing models
// silently breaks cosine similarity.
type EmbeddingClient interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)

	// Model returns the configured embedding model name.
	Model() string
}

// Ensure Client implements EmbeddingClient at compile time.
var _ EmbeddingClient = (*Client)(nil)
