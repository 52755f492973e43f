package chunker

import (
	"errors"
	"strings"
	"testing"
)

// TestTokenize_PreservesText verifies word and non-word runs are kept as separate tokens.
func TestTokenize_PreservesText(t *testing.T) {
	input := "Hello, world!  Ünïcode_words 42\n"
	tokens := Tokenize(input)

	expected := []string{"Hello", ", ", "world", "!  ", "Ünïcode_words", " ", "42", "\n"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %q", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("Token %d: expected %q, got %q", i, expected[i], tokens[i])
		}
	}

	if strings.Join(tokens, "") != input {
		t.Errorf("Tokens do not reconstruct input")
	}
}

// TestSplit_ShortText tests that text shorter than the window yields one chunk.
func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("just a few words", 400, 50)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("Expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].Text != "just a few words" {
		t.Errorf("Unexpected chunk text %q", chunks[0].Text)
	}
}

// TestSplit_EmptyText tests that empty text produces no chunks.
func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 10, 2)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks, got %d", len(chunks))
	}
}

// TestSplit_ThreeWindows tests the 400/50 window over 999 tokens.
func TestSplit_ThreeWindows(t *testing.T) {
	words := make([]string, 500)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ") // 500 words + 499 spaces = 999 tokens

	chunks, err := Split(text, 400, 50)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	expectedTokens := []int{400, 400, 299}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("Chunk %d index: expected %d, got %d", i, i, chunk.Index)
		}
		if got := len(Tokenize(chunk.Text)); got != expectedTokens[i] {
			t.Errorf("Chunk %d: expected %d tokens, got %d", i, expectedTokens[i], got)
		}
	}
}

// TestSplit_WindowCount checks the number of windows and full coverage for many parameters.
func TestSplit_WindowCount(t *testing.T) {
	text := "The quick brown fox, jumps over the lazy dog; again and again. " +
		"Numbers 1 2 3 and symbols #$% appear too!"
	tokens := Tokenize(text)
	n := len(tokens)

	for size := 1; size <= 12; size++ {
		for overlap := 0; overlap < size; overlap++ {
			chunks, err := Split(text, size, overlap)
			if err != nil {
				t.Fatalf("size=%d overlap=%d: %v", size, overlap, err)
			}

			stride := size - overlap
			expected := (max(n-overlap, 1) + stride - 1) / stride
			if len(chunks) != expected {
				t.Errorf("size=%d overlap=%d: expected %d chunks, got %d", size, overlap, expected, len(chunks))
			}

			// Every token position is covered by some window.
			covered := make([]bool, n)
			for i := range chunks {
				start := i * stride
				end := min(start+size, n)
				for j := start; j < end; j++ {
					covered[j] = true
				}
			}
			for j, ok := range covered {
				if !ok {
					t.Errorf("size=%d overlap=%d: token %d not covered", size, overlap, j)
				}
			}
		}
	}
}

// TestSplit_RoundTrip reconstructs the text from chunk prefixes plus the final chunk.
func TestSplit_RoundTrip(t *testing.T) {
	text := "Lorem ipsum dolor sit amet, consectetur adipiscing elit.\n\n" +
		"Sed do eiusmod tempor — incididunt ut labore et dolore magna aliqua."

	for size := 1; size <= 15; size++ {
		for overlap := 0; overlap < size; overlap++ {
			chunks, err := Split(text, size, overlap)
			if err != nil {
				t.Fatalf("size=%d overlap=%d: %v", size, overlap, err)
			}

			var rebuilt strings.Builder
			for i, chunk := range chunks {
				if i == len(chunks)-1 {
					rebuilt.WriteString(chunk.Text)
					break
				}
				tokens := Tokenize(chunk.Text)
				rebuilt.WriteString(strings.Join(tokens[:size-overlap], ""))
			}

			if rebuilt.String() != text {
				t.Errorf("size=%d overlap=%d: round trip mismatch\n got: %q\nwant: %q",
					size, overlap, rebuilt.String(), text)
			}
		}
	}
}

// TestNew_InvalidWindow tests rejection of non-advancing windows.
func TestNew_InvalidWindow(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("Expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestTexts(t *testing.T) {
	chunks := []Chunk{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}
	texts := Texts(chunks)
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("Unexpected texts %q", texts)
	}
}
