// Package vector stores embedded chapter chunks and answers nearest-neighbour queries.
package vector

import (
	"context"

	"github.com/hyperjump/benkyo/internal/models"
)

// VectorIndex defines vector storage and similarity search over chapter chunks.
type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single search hit carrying the chunk it matched.
type VectorResult struct {
	ID      string
	Content string
	Score   float64 // inner product; cosine similarity for normalized vectors
}
