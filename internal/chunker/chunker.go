// Package chunker splits document text into overlapping token windows.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Default window parameters, in tokens.
const (
	DefaultSize    = 400
	DefaultOverlap = 50
)

// ErrInvalidWindow is returned when size and overlap cannot produce an advancing window.
var ErrInvalidWindow = errors.New("invalid chunk window")

// tokenPattern matches maximal runs of word characters or of non-word characters.
// Word characters follow Unicode letters, numbers and underscore.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_]+`)

// Chunk is a contiguous window of a document's text.
type Chunk struct {
	Index int    // Position in document (0, 1, 2...)
	Text  string // Concatenated window tokens
}

// Chunker splits text into windows of Size tokens advancing by Size-Overlap.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be non-negative and smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidWindow, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidWindow, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidWindow, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of tokens shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the ordered windows of text. Empty text yields no chunks; text with
// fewer tokens than the window size yields exactly one.
func (c *Chunker) Split(text string) []Chunk {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []Chunk
	for start := 0; start < len(tokens); start += stride {
		end := min(start+c.size, len(tokens))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  strings.Join(tokens[start:end], ""),
		})
		// The last window already covers the tail; further windows would be subsets.
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// Split is a convenience wrapper around New and (*Chunker).Split.
func Split(text string, size, overlap int) ([]Chunk, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return texts
}

// Tokenize splits text into alternating word and non-word runs. Concatenating the
// result reproduces text exactly.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}
