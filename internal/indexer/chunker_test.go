package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_Split(t *testing.T) {
	c := NewChunker(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"
	parts := c.Split(text)
	want := []string{"abcdefghij", "ghijklmnop", "mnopqrstuv", "stuvwxyz"}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts: %q", len(parts), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}
}

func TestChunker_Properties(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	for _, n := range []int{1, 7999, 8000, 8001, 14000, 20000, 50123} {
		alphabet := []rune("abcdéfghijklmnöpqrstuvwxyz ")
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteRune(alphabet[i%len(alphabet)])
		}
		text := b.String()

		parts := c.Split(text)
		if len(parts) == 0 {
			t.Fatalf("n=%d: no chunks", n)
		}
		rebuilt := parts[0]
		for i, p := range parts {
			size := utf8.RuneCountInString(p)
			if size > DefaultChunkSize {
				t.Errorf("n=%d: chunk %d has %d chars", n, i, size)
			}
			if i < len(parts)-1 && size != DefaultChunkSize {
				t.Errorf("n=%d: non-final chunk %d has %d chars", n, i, size)
			}
			if i > 0 {
				prev := []rune(parts[i-1])
				cur := []rune(p)
				overlap := string(prev[len(prev)-DefaultChunkOverlap:])
				if string(cur[:DefaultChunkOverlap]) != overlap {
					t.Errorf("n=%d: chunk %d does not overlap its predecessor by %d", n, i, DefaultChunkOverlap)
				}
				rebuilt += string(cur[DefaultChunkOverlap:])
			}
		}
		if rebuilt != text {
			t.Errorf("n=%d: non-overlapping portions do not reconstruct the text", n)
		}
	}
}

func TestChunker_Multibyte(t *testing.T) {
	c := NewChunker(3, 1)
	parts := c.Split("日本語のテキスト")
	if parts[0] != "日本語" || parts[1] != "語のテ" {
		t.Errorf("chunks should split on characters, got %q", parts)
	}
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(5, 1)
	if parts := c.Split(""); len(parts) != 0 {
		t.Errorf("empty text should give no chunks, got %q", parts)
	}
	if chunks := c.Chunk(""); len(chunks) != 0 {
		t.Errorf("empty text should give no chunks, got %v", chunks)
	}
}

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(4, 1)
	chunks := c.Chunk("one two three")
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	seen := map[string]bool{}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d Index=%d", i, ch.Index)
		}
		if ch.ID == "" || seen[ch.ID] {
			t.Errorf("chunk %d has empty or duplicate ID %q", i, ch.ID)
		}
		seen[ch.ID] = true
	}
}

func TestNewChunker_clampsOverlap(t *testing.T) {
	c := NewChunker(5, 9)
	if c.chunkOverlap != 4 {
		t.Errorf("overlap = %d, want 4", c.chunkOverlap)
	}
	if parts := c.Split("abcdefg"); len(parts) != 3 {
		t.Errorf("window should still advance, got %q", parts)
	}
	d := NewChunker(0, -1)
	if d.chunkSize != DefaultChunkSize || d.chunkOverlap != 0 {
		t.Errorf("got size %d overlap %d", d.chunkSize, d.chunkOverlap)
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("a\r\nb\rc\x00d"); got != "a\nb\ncd" {
		t.Errorf("Preprocess = %q", got)
	}
}
