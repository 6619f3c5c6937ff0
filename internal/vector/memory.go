package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/benkyo/internal/models"
)

// fileMagic prefixes every saved index so stale or foreign files are rejected on load.
var fileMagic = [4]byte{'B', 'K', 'V', '1'}

// ErrCorruptIndex is returned when a saved index cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt vector index file")

// MemoryIndex is an in-memory vector index using brute-force inner product search.
// Chapter indexes hold at most a few thousand chunks, so exhaustive search is fine.
type MemoryIndex struct {
	dimensions int
	ids        []string
	texts      []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Dimensions returns the vector width the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add appends chunks with their vectors.
func (m *MemoryIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range chunks {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, ch.ID)
		m.texts = append(m.texts, ch.Content)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k chunks by inner product. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	order := make([]int, len(m.ids))
	scores := make([]float64, len(m.ids))
	for i, vec := range m.vectors {
		order[i] = i
		scores[i] = InnerProduct(query, vec)
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if k > len(order) {
		k = len(order)
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		j := order[i]
		result[i] = &VectorResult{ID: m.ids[j], Content: m.texts[j], Score: scores[j]}
	}
	return result, nil
}

// Save persists the index to path, replacing any previous file atomically.
// Format: magic (4), dimension (4), n (4), then per chunk: idLen (4), id, textLen (4),
// text, vector (dimension*4 bytes). All integers little endian.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := m.encode(w); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (m *MemoryIndex) encode(w io.Writer) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	header := []uint32{uint32(m.dimensions), uint32(len(m.ids))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range m.ids {
		if err := writeString(w, m.ids[i]); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeString(w, m.texts[i]); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// A missing file returns an error wrapping os.ErrNotExist.
func (m *MemoryIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != fileMagic {
		return fmt.Errorf("%w: bad header", ErrCorruptIndex)
	}
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if int(header[0]) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", header[0], m.dimensions)
	}
	n := int(header[1])
	ids := make([]string, 0, n)
	texts := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := 0; i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return fmt.Errorf("%w: read id: %v", ErrCorruptIndex, err)
		}
		text, err := readString(r)
		if err != nil {
			return fmt.Errorf("%w: read text: %v", ErrCorruptIndex, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: read vector: %v", ErrCorruptIndex, err)
		}
		ids = append(ids, id)
		texts = append(texts, text)
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.texts, m.vectors = ids, texts, vectors
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of chunks in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
