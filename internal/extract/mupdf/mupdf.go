// Package mupdf adapts MuPDF (via go-fitz) to the extract page document contract.
package mupdf

import (
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/bull/doc-ingest/internal/extract"
)

// Document is an open MuPDF document.
type Document struct {
	doc *fitz.Document
}

var _ extract.PageDocument = (*Document)(nil)

// Open opens the PDF at path. The caller must Close the document.
func Open(path string) (extract.PageDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// NumPage returns the number of pages.
func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

// PageText returns the text layer of a zero-based page.
func (d *Document) PageText(page int) (string, error) {
	return d.doc.Text(page)
}

// RenderPage rasterises a zero-based page at dpi.
func (d *Document) RenderPage(page int, dpi float64) (image.Image, error) {
	return d.doc.ImageDPI(page, dpi)
}

// Close releases the MuPDF context and document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// TextStrategy extracts text through MuPDF's text API.
func TextStrategy() extract.PDFStrategy {
	return extract.RendererTextStrategy("mupdf", Open)
}
