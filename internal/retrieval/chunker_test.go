package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowChunker_WindowAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 1200)
	chunker := FixedWindowChunker{Window: 500, Overlap: 100}

	chunks := chunker.Chunk(text)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500)
	}

	// Consecutive chunks overlap by exactly 100 characters except the last,
	// which just runs to the end of the input.
	assert.Equal(t, 500, len(chunks[0]))
	assert.Equal(t, 500, len(chunks[1]))
	assert.Equal(t, 400, len(chunks[2]))
	assert.Equal(t, chunks[0][400:], chunks[1][:100])
	assert.Equal(t, chunks[1][400:], chunks[2][:100])
}

func TestFixedWindowChunker_CoversInput(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " + strings.Repeat("More text here. ", 40)
	chunker := FixedWindowChunker{Window: 100, Overlap: 20}

	chunks := chunker.Chunk(text)
	require.NotEmpty(t, chunks)

	// Reconstruct the input by dropping each chunk's leading overlap.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		rebuilt.WriteString(c[20:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestFixedWindowChunker_DropsWhitespaceOnly(t *testing.T) {
	text := strings.Repeat("x", 10) + strings.Repeat(" ", 10) + strings.Repeat("y", 4)
	chunker := FixedWindowChunker{Window: 10, Overlap: 0}

	chunks := chunker.Chunk(text)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestFixedWindowChunker_ShortInput(t *testing.T) {
	chunks := FixedWindowChunker{Window: 500, Overlap: 100}.Chunk("short")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestFixedWindowChunker_MultibyteBoundaries(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 20)
	chunker := FixedWindowChunker{Window: 7, Overlap: 2}

	chunks := chunker.Chunk(text)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 7)
	}
	// The window counts characters, not bytes.
	assert.Equal(t, 7, utf8.RuneCountInString(chunks[0]))
}

func TestFixedWindowChunker_EmptyInput(t *testing.T) {
	assert.Empty(t, FixedWindowChunker{Window: 500, Overlap: 100}.Chunk(""))
	assert.Empty(t, FixedWindowChunker{Window: 500, Overlap: 100}.Chunk("   \n\t  "))
}

func TestParagraphChunker_GreedyPacking(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph that is somewhat longer than the others."
	chunker := ParagraphChunker{MaxSize: 40}

	chunks := chunker.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", chunks[0])
	assert.Equal(t, "Third paragraph that is somewhat longer than the others.", chunks[1])
}

func TestParagraphChunker_PacksSmallParagraphs(t *testing.T) {
	text := "One.\n\nTwo.\n\nThree."
	chunks := ParagraphChunker{MaxSize: 100}.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, "One.\n\nTwo.\n\nThree.", chunks[0])
}

func TestParagraphChunker_NeverSplitsParagraph(t *testing.T) {
	long := strings.Repeat("word ", 100)
	text := "Short.\n\n" + long
	chunks := ParagraphChunker{MaxSize: 50}.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(long), chunks[1])
}

func TestParagraphChunker_BlankLinesWithWhitespace(t *testing.T) {
	text := "Alpha.\n \t\nBeta."
	chunks := ParagraphChunker{MaxSize: 10}.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Alpha.", chunks[0])
	assert.Equal(t, "Beta.", chunks[1])
}

func TestNewChunker(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		want     any
	}{
		{"fixed", "fixed", FixedWindowChunker{Window: 500, Overlap: 100}},
		{"paragraph", "paragraph", ParagraphChunker{MaxSize: 1000}},
		{"unknown_falls_back", "bogus", FixedWindowChunker{Window: 500, Overlap: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewChunker(tt.strategy, 0, 0, 0))
		})
	}
}
