package retrieval

import (
	"regexp"
	"strings"
)

const (
	defaultWindow     = 500
	defaultOverlap    = 100
	defaultMaxSize    = 1000
	minParagraphJoin  = 2 // "\n\n" between appended paragraphs
)

// Chunker splits document text into bounded, non-empty chunks.
type Chunker interface {
	Chunk(text string) []string
}

// FixedWindowChunker produces chunks of at most Window characters starting
// at positions 0, Window−Overlap, 2(Window−Overlap), … until the input is
// exhausted. Whitespace-only chunks are dropped.
type FixedWindowChunker struct {
	Window  int
	Overlap int
}

// Chunk implements Chunker. Window and Overlap count runes, so multi-byte
// text never splits mid-character.
func (c FixedWindowChunker) Chunk(text string) []string {
	window := c.Window
	if window <= 0 {
		window = defaultWindow
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= window {
		overlap = 0
	}
	step := window - overlap

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

// ParagraphChunker splits on blank-line boundaries and greedily packs
// whole paragraphs into chunks of at most MaxSize characters. A paragraph
// is never split, even when it alone exceeds MaxSize.
type ParagraphChunker struct {
	MaxSize int
}

// Chunk implements Chunker.
func (c ParagraphChunker) Chunk(text string) []string {
	maxSize := c.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, current.String())
		}
		current.Reset()
	}

	for _, para := range blankLineRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+minParagraphJoin+len(para) > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// NewChunker builds a chunker for the named strategy: "fixed" or
// "paragraph". Non-positive sizes fall back to defaults; unknown strategy
// names fall back to fixed-window.
func NewChunker(strategy string, window, overlap, maxSize int) Chunker {
	switch strategy {
	case "paragraph":
		if maxSize <= 0 {
			maxSize = defaultMaxSize
		}
		return ParagraphChunker{MaxSize: maxSize}
	default:
		if window <= 0 {
			window = defaultWindow
		}
		if overlap <= 0 {
			overlap = defaultOverlap
		}
		if overlap >= window {
			overlap = 0
		}
		return FixedWindowChunker{Window: window, Overlap: overlap}
	}
}
