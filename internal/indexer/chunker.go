// Package indexer splits chapter materials into chunks and maintains one vector index per chapter.
package indexer

import (
	"github.com/google/uuid"
	"github.com/hyperjump/benkyo/internal/models"
)

const (
	DefaultChunkSize    = 8000
	DefaultChunkOverlap = 2000
)

// Chunker splits text into fixed-size, overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap, both in characters.
// Non-positive sizes fall back to the defaults; an overlap that would stop the window
// from advancing is reduced to chunkSize-1.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split returns the windows of text. Every window but the last holds exactly
// chunkSize characters, and consecutive windows share chunkOverlap characters.
// Empty text yields no windows.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	var out []string
	for start := 0; ; start += step {
		end := min(start+c.chunkSize, len(runes))
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// Chunk splits text and assigns each window an ID and position.
func (c *Chunker) Chunk(text string) []models.Chunk {
	parts := c.Split(text)
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{ID: uuid.NewString(), Index: i, Content: p}
	}
	return chunks
}
