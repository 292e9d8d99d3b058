package services

import (
	"strings"
	"testing"
)

func TestChunkTextPacksParagraphs(t *testing.T) {
	chunker := NewTextChunker()
	text := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."

	chunks := chunker.ChunkText(text, 1000, 0)
	if len(chunks) != 1 {
		t.Fatalf("ChunkText() = %d chunks, want 1", len(chunks))
	}
	for _, part := range []string{"First", "Second", "Third"} {
		if !strings.Contains(chunks[0], part) {
			t.Errorf("chunk missing paragraph %q", part)
		}
	}
}

func TestChunkTextSplitsOversized(t *testing.T) {
	chunker := NewTextChunker()
	var sentences []string
	for i := 0; i < 50; i++ {
		sentences = append(sentences, "This sentence fills the chunk with benchmark fee narrative")
	}
	text := strings.Join(sentences, ". ") + "."

	chunks := chunker.ChunkText(text, 200, 0)
	if len(chunks) < 2 {
		t.Fatalf("ChunkText() = %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 260 {
			t.Errorf("chunk %d is %d chars, want near the 200 limit", i, len(chunk))
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	chunker := NewTextChunker()
	text := strings.Repeat("alpha beta gamma delta. ", 40)

	chunks := chunker.ChunkText(text, 150, 30)
	if len(chunks) < 2 {
		t.Fatalf("ChunkText() = %d chunks, want several", len(chunks))
	}
	// Each chunk after the first starts with the tail of its predecessor.
	tail := lastNChars(chunks[0], 30)
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("chunk 1 does not start with the previous chunk's tail %q", tail)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	chunker := NewTextChunker()
	if chunks := chunker.ChunkText("", 1000, 100); len(chunks) != 0 {
		t.Errorf("ChunkText(\"\") = %d chunks, want 0", len(chunks))
	}
}
