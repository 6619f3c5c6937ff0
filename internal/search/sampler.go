// Package search assembles retrieval context for chat and generation prompts.
package search

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/hyperjump/benkyo/internal/embedding"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/vector"
	"go.uber.org/zap"
)

const (
	DefaultTopK        = 20
	DefaultContextSize = 15
	DefaultChatK       = 4
)

// Sampler retrieves chapter passages for a task. Each call picks one of several
// paraphrased intent queries at random so repeated generations see different context.
type Sampler struct {
	embedder    embedding.Embedder
	topK        int
	contextSize int
	logger      *zap.Logger // optional

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithLogger sets a logger for the chosen query and hit counts.
func WithLogger(l *zap.Logger) SamplerOption {
	return func(s *Sampler) { s.logger = l }
}

// WithLimits overrides how many passages are fetched and how many are kept.
func WithLimits(topK, contextSize int) SamplerOption {
	return func(s *Sampler) {
		if topK > 0 {
			s.topK = topK
		}
		if contextSize > 0 {
			s.contextSize = contextSize
		}
	}
}

// NewSampler creates a sampler. rng drives query choice and down-sampling; pass a
// seeded source for reproducible results.
func NewSampler(embedder embedding.Embedder, rng *rand.Rand, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		embedder:    embedder,
		topK:        DefaultTopK,
		contextSize: DefaultContextSize,
		rng:         rng,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns the generation context for task: a random intent query, the top-K
// hits, a uniform sample of at most contextSize of them, joined with single spaces.
// A nil index yields an empty context.
func (s *Sampler) Context(ctx context.Context, index vector.VectorIndex, task models.Task) (string, error) {
	if index == nil {
		return "", nil
	}
	queries := Queries(task)
	if len(queries) == 0 {
		return "", fmt.Errorf("no retrieval queries for task %q", task)
	}
	s.mu.Lock()
	query := queries[s.rng.IntN(len(queries))]
	s.mu.Unlock()

	results, err := s.search(ctx, index, query, s.topK)
	if err != nil {
		return "", err
	}
	kept := s.sample(results)
	if s.logger != nil {
		s.logger.Debug("retrieval context",
			zap.String("task", string(task)),
			zap.String("query", query),
			zap.Int("hits", len(results)),
			zap.Int("kept", len(kept)))
	}
	return Join(kept), nil
}

// Relevant returns the k passages most similar to question. A nil index yields no passages.
func (s *Sampler) Relevant(ctx context.Context, index vector.VectorIndex, question string, k int) ([]*vector.VectorResult, error) {
	if index == nil {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultChatK
	}
	return s.search(ctx, index, question, k)
}

func (s *Sampler) search(ctx context.Context, index vector.VectorIndex, query string, k int) ([]*vector.VectorResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}

// sample keeps every result when there are at most contextSize of them, otherwise a
// uniform random subset of contextSize drawn without replacement.
func (s *Sampler) sample(results []*vector.VectorResult) []*vector.VectorResult {
	if len(results) <= s.contextSize {
		return results
	}
	s.mu.Lock()
	perm := s.rng.Perm(len(results))
	s.mu.Unlock()
	kept := make([]*vector.VectorResult, s.contextSize)
	for i := range kept {
		kept[i] = results[perm[i]]
	}
	return kept
}

// Join concatenates passage text with single spaces.
func Join(results []*vector.VectorResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, " ")
}
