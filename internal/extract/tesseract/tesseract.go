// Package tesseract provides an OCR engine backed by Tesseract (via gosseract).
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/bull/doc-ingest/internal/extract"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Engine runs Tesseract over page images. An Engine is not safe for concurrent use.
type Engine struct {
	client *gosseract.Client
}

var _ extract.OCREngine = (*Engine)(nil)

// New starts a Tesseract client for the given languages.
func New(languages ...string) (*Engine, error) {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	return &Engine{client: client}, nil
}

// Factory returns an extract.OCREngineFactory for the given languages.
func Factory(languages ...string) extract.OCREngineFactory {
	return func() (extract.OCREngine, error) {
		return New(languages...)
	}
}

// Recognize returns the text Tesseract finds in img.
func (e *Engine) Recognize(img *image.Gray) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load page image: %w", err)
	}
	return e.client.Text()
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	return e.client.Close()
}
