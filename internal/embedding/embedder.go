// Package embedding turns chunk and query text into vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed embeds a retrieval query.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds documents for indexing; the result is aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
