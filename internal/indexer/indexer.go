package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/benkyo/internal/embedding"
	"github.com/hyperjump/benkyo/internal/extract"
	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/vector"
	"go.uber.org/zap"
)

// IndexFileName is the artifact written into a chapter's data directory.
const IndexFileName = "index.vec"

var (
	// ErrNoMaterials is returned when a rebuild finds no extractable text for the chapter.
	ErrNoMaterials = errors.New("no materials to index")
	// ErrIndexAbsent is returned by Load when the chapter has never been indexed.
	// It marks a degraded state rather than a failure.
	ErrIndexAbsent = errors.New("chapter index not built")
)

// BuildResult summarizes a rebuild.
type BuildResult struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// Indexer builds and loads per-chapter vector indexes.
type Indexer struct {
	files     *materials.Store
	embedder  embedding.Embedder
	extractor *extract.Extractor
	chunker   *Chunker
	locks     keyedMutex
	logger    *zap.Logger // optional
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build and removal events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithChunker overrides the default 8000/2000 character chunker.
func WithChunker(c *Chunker) IndexerOption {
	return func(idx *Indexer) { idx.chunker = c }
}

// NewIndexer creates an indexer over the given material store.
func NewIndexer(files *materials.Store, embedder embedding.Embedder, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		files:     files,
		embedder:  embedder,
		extractor: extractor,
		chunker:   NewChunker(DefaultChunkSize, DefaultChunkOverlap),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexPath returns where the chapter's index artifact lives.
func (idx *Indexer) IndexPath(key models.OwnerKey) string {
	return filepath.Join(idx.files.DataDir(key), IndexFileName)
}

// Exists reports whether the chapter has a persisted index.
func (idx *Indexer) Exists(key models.OwnerKey) bool {
	_, err := os.Stat(idx.IndexPath(key))
	return err == nil
}

// Rebuild ingests every material of the chapter and replaces its index. When there
// is nothing to index it returns ErrNoMaterials and leaves any existing index alone.
func (idx *Indexer) Rebuild(ctx context.Context, key models.OwnerKey) (*BuildResult, error) {
	unlock := idx.locks.Lock(key.String())
	defer unlock()
	return idx.rebuild(ctx, key)
}

func (idx *Indexer) rebuild(ctx context.Context, key models.OwnerKey) (*BuildResult, error) {
	text, files, err := idx.extractor.ExtractDirectory(idx.files.MaterialsDir(key))
	if err != nil {
		return nil, err
	}
	text = Preprocess(text)
	if files == 0 || strings.TrimSpace(text) == "" {
		return nil, ErrNoMaterials
	}
	chunks := idx.chunker.Chunk(text)
	if err := idx.build(ctx, key, chunks); err != nil {
		return nil, err
	}
	if idx.logger != nil {
		idx.logger.Info("chapter indexed",
			zap.String("subject", key.Subject),
			zap.String("chapter", key.Chapter),
			zap.Int("files", files),
			zap.Int("chunks", len(chunks)))
	}
	return &BuildResult{Files: files, Chunks: len(chunks)}, nil
}

// Build embeds chunks and replaces the chapter's index with them.
func (idx *Indexer) Build(ctx context.Context, key models.OwnerKey, chunks []models.Chunk) error {
	unlock := idx.locks.Lock(key.String())
	defer unlock()
	return idx.build(ctx, key, chunks)
}

func (idx *Indexer) build(ctx context.Context, key models.OwnerKey, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return ErrNoMaterials
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	vi, err := vector.NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := vi.Add(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := vi.Save(idx.IndexPath(key)); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// Load returns the chapter's index, or ErrIndexAbsent when none has been built.
func (idx *Indexer) Load(ctx context.Context, key models.OwnerKey) (vector.VectorIndex, error) {
	vi, err := vector.NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := vi.Load(idx.IndexPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrIndexAbsent
		}
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return vi, nil
}

// Remove deletes the chapter's index artifacts.
func (idx *Indexer) Remove(ctx context.Context, key models.OwnerKey) error {
	unlock := idx.locks.Lock(key.String())
	defer unlock()
	return idx.remove(key)
}

func (idx *Indexer) remove(key models.OwnerKey) error {
	if err := os.RemoveAll(idx.files.DataDir(key)); err != nil {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Info("chapter index removed", zap.String("subject", key.Subject), zap.String("chapter", key.Chapter))
	}
	return nil
}

// Refresh brings the index in line with the chapter's current materials: it rebuilds
// when materials remain and removes the index when the last one is gone.
func (idx *Indexer) Refresh(ctx context.Context, key models.OwnerKey) (*BuildResult, error) {
	unlock := idx.locks.Lock(key.String())
	defer unlock()
	res, err := idx.rebuild(ctx, key)
	if errors.Is(err, ErrNoMaterials) {
		return &BuildResult{}, idx.remove(key)
	}
	return res, err
}
