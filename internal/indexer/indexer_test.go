package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/benkyo/internal/embedding"
	"github.com/hyperjump/benkyo/internal/extract"
	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/models"
	"go.uber.org/zap"
)

func testIndexer(t *testing.T) (*Indexer, *materials.Store) {
	t.Helper()
	files := materials.NewStore(t.TempDir())
	idx := NewIndexer(files, embedding.NewMockEmbedder(16), extract.NewExtractor(),
		WithChunker(NewChunker(40, 10)), WithLogger(zap.NewNop()))
	return idx, files
}

var cells = models.OwnerKey{UserHash: "u1", Subject: "Bio", Chapter: "Cells"}

func TestIndexer_RebuildFromPDF(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()

	f, err := os.Open(filepath.Join("..", "extract", "testdata", "notes.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := files.Save(cells, "notes.pdf", f); err != nil {
		t.Fatal(err)
	}
	res, err := idx.Rebuild(ctx, cells)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if res.Files != 1 || res.Chunks < 1 {
		t.Errorf("unexpected result %+v", res)
	}
	vi, err := idx.Load(ctx, cells)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer vi.Close()
	if vi.Size() != res.Chunks {
		t.Errorf("loaded %d chunks, built %d", vi.Size(), res.Chunks)
	}
}

func TestIndexer_RebuildAndLoad(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()

	if _, err := idx.Load(ctx, cells); !errors.Is(err, ErrIndexAbsent) {
		t.Fatalf("want ErrIndexAbsent before build, got %v", err)
	}
	if idx.Exists(cells) {
		t.Fatal("index should not exist yet")
	}

	text := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 5)
	if err := files.Save(cells, "notes.txt", strings.NewReader(text)); err != nil {
		t.Fatal(err)
	}
	res, err := idx.Rebuild(ctx, cells)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if res.Files != 1 || res.Chunks < 2 {
		t.Errorf("unexpected result %+v", res)
	}

	vi, err := idx.Load(ctx, cells)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if vi.Size() != res.Chunks {
		t.Errorf("loaded %d chunks, built %d", vi.Size(), res.Chunks)
	}
	q, _ := embedding.NewMockEmbedder(16).Embed(ctx, "mitochondria powerhouse")
	hits, err := vi.Search(ctx, q, 1)
	if err != nil || len(hits) != 1 || !strings.Contains(hits[0].Content, "mitochondria") {
		t.Errorf("search hits = %+v, %v", hits, err)
	}
}

func TestIndexer_RebuildNoMaterialsKeepsIndex(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()

	if _, err := idx.Rebuild(ctx, cells); !errors.Is(err, ErrNoMaterials) {
		t.Fatalf("want ErrNoMaterials, got %v", err)
	}

	if err := files.Save(cells, "a.txt", strings.NewReader("ribosomes build proteins")); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Rebuild(ctx, cells); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(idx.IndexPath(cells))
	if err != nil {
		t.Fatal(err)
	}

	// Only an unsupported file remains: nothing extractable.
	if err := files.Delete(cells, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(files.MaterialsDir(cells)+"/scan.png", []byte{0x89}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Rebuild(ctx, cells); !errors.Is(err, ErrNoMaterials) {
		t.Fatalf("want ErrNoMaterials, got %v", err)
	}
	after, err := os.ReadFile(idx.IndexPath(cells))
	if err != nil {
		t.Fatalf("prior index should survive: %v", err)
	}
	if string(before) != string(after) {
		t.Error("prior index must be left untouched")
	}
}

func TestIndexer_RebuildReplaces(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()
	_ = files.Save(cells, "a.txt", strings.NewReader(strings.Repeat("alpha ", 40)))
	first, err := idx.Rebuild(ctx, cells)
	if err != nil {
		t.Fatal(err)
	}
	_ = files.Delete(cells, "a.txt")
	_ = files.Save(cells, "b.txt", strings.NewReader("beta"))
	second, err := idx.Rebuild(ctx, cells)
	if err != nil {
		t.Fatal(err)
	}
	vi, _ := idx.Load(ctx, cells)
	if vi.Size() != second.Chunks || second.Chunks == first.Chunks {
		t.Errorf("rebuild should replace, sizes first=%d second=%d loaded=%d", first.Chunks, second.Chunks, vi.Size())
	}
}

func TestIndexer_Refresh(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()
	_ = files.Save(cells, "a.txt", strings.NewReader("golgi apparatus"))
	if _, err := idx.Refresh(ctx, cells); err != nil {
		t.Fatal(err)
	}
	if !idx.Exists(cells) {
		t.Fatal("refresh with materials should build")
	}
	_ = files.Delete(cells, "a.txt")
	res, err := idx.Refresh(ctx, cells)
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 0 || idx.Exists(cells) {
		t.Error("refresh without materials should remove the index")
	}
}

func TestIndexer_BuildEmpty(t *testing.T) {
	idx, _ := testIndexer(t)
	if err := idx.Build(context.Background(), cells, nil); !errors.Is(err, ErrNoMaterials) {
		t.Errorf("want ErrNoMaterials, got %v", err)
	}
}

func TestIndexer_ConcurrentRebuilds(t *testing.T) {
	idx, files := testIndexer(t)
	ctx := context.Background()
	_ = files.Save(cells, "a.txt", strings.NewReader(strings.Repeat("nucleus membrane ", 30)))
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := idx.Rebuild(ctx, cells); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent rebuild failed: %v", err)
	}
	if _, err := idx.Load(ctx, cells); err != nil {
		t.Errorf("index unreadable after concurrent rebuilds: %v", err)
	}
	if len(idx.locks.locks) != 0 {
		t.Errorf("lock table should be empty, has %d entries", len(idx.locks.locks))
	}
}
