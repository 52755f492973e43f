// Package extract turns files on disk into plain text.
//
// Textual formats are read directly, DOCX paragraphs are walked in document order and
// PDFs go through an ordered cascade of strategies that ends in OCR.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrToolNotFound    = errors.New("external tool not found")
)

// Extractor produces plain text for a file and its declared extension.
type Extractor struct {
	pdf    []PDFStrategy
	logger *slog.Logger
}

// New creates an extractor that tries the given PDF strategies in order.
// Without strategies every PDF extracts to empty text.
func New(logger *slog.Logger, strategies ...PDFStrategy) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		pdf:    strategies,
		logger: logger,
	}
}

// Supports reports whether ext has an extraction method.
func Supports(ext string) bool {
	switch NormalizeExt(ext) {
	case "txt", "md", "rtf", "csv", "docx", "pdf":
		return true
	}
	return false
}

// NormalizeExt lower-cases ext and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Extract returns the text of the file at path, dispatching on ext.
// The returned text may be empty; callers decide whether to keep it.
func (e *Extractor) Extract(ctx context.Context, path, ext string) (string, error) {
	switch NormalizeExt(ext) {
	case "txt", "md", "rtf", "csv":
		return readText(path)
	case "docx":
		return readDocx(path)
	case "pdf":
		return e.extractPDF(ctx, path), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// readText reads raw bytes as UTF-8, dropping undecodable sequences.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
