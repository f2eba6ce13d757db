// ABOUTME: Chunker splits reference documents into overlapping chunks for embedding
// ABOUTME: Recursive split on paragraph → line → sentence → word, then greedy merge with overlap
package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many trailing characters a chunk shares with the next
	DefaultChunkOverlap = 200
)

var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker holds split parameters; sizes are measured in runes
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// DefaultChunker returns a Chunker with the default size and overlap
func DefaultChunker() *Chunker {
	return &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
}

// Split returns the non-empty chunks of text in document order
func (c *Chunker) Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.merge(c.split(text, separators))
}

// split breaks text into pieces no longer than size, trying coarse separators first
func (c *Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, c.size)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return c.split(text, seps[1:])
	}

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) > c.size {
			out = append(out, c.split(p, seps[1:])...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// merge packs pieces greedily into chunks, carrying up to overlap runes forward
func (c *Chunker) merge(pieces []string) []string {
	var (
		out    []string
		window []string
		winLen int
	)

	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		if winLen+pl > c.size && len(window) > 0 {
			out = appendChunk(out, strings.Join(window, ""))
			for len(window) > 0 && (winLen > c.overlap || winLen+pl > c.size) {
				winLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		winLen += pl
	}
	if len(window) > 0 {
		out = appendChunk(out, strings.Join(window, ""))
	}
	return out
}

func appendChunk(out []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	return append(out, s)
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
