package interfaces

import (
	"context"
)

// EmbeddingService converts text into dense vectors via an
// OpenAI-compatible embeddings endpoint.
type EmbeddingService interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order. Entries that are empty after trimming are skipped and
	// the output only contains vectors for the texts actually sent, in
	// their original relative order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EstimateTokens estimates the token count of a text. Heuristic,
	// used only to stay under the provider's request limit.
	EstimateTokens(text string) int

	// IsWithinTokenLimit reports whether a text fits one request
	IsWithinTokenLimit(text string) bool

	// ModelName returns the configured embedding model identifier
	ModelName() string

	// Dimension returns the vector dimensionality the model produces
	Dimension() int

	// IsAvailable checks connectivity by embedding a probe text and
	// verifying the returned dimension.
	IsAvailable(ctx context.Context) bool
}
