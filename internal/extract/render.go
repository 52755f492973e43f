package extract

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"strings"
)

// OCRDPI is the resolution pages are rendered at before OCR (scale 300/72).
const OCRDPI = 300.0

// PageDocument is an open PDF that can report page text and rasterise pages.
type PageDocument interface {
	NumPage() int
	PageText(page int) (string, error)
	RenderPage(page int, dpi float64) (image.Image, error)
	Close() error
}

// DocumentOpener opens a PDF for page access. Pages are zero-based.
type DocumentOpener func(path string) (PageDocument, error)

// OCREngine recognises text in grayscale page images.
type OCREngine interface {
	Recognize(img *image.Gray) (string, error)
	Close() error
}

// OCREngineFactory creates an engine for one document.
type OCREngineFactory func() (OCREngine, error)

// RendererTextStrategy extracts page text through a renderer's native text API.
func RendererTextStrategy(name string, open DocumentOpener) PDFStrategy {
	return PDFStrategy{
		Name: name,
		Extract: func(ctx context.Context, path string) (string, error) {
			doc, err := open(path)
			if err != nil {
				return "", fmt.Errorf("open pdf: %w", err)
			}
			defer doc.Close()

			pages := make([]string, 0, doc.NumPage())
			for i := 0; i < doc.NumPage(); i++ {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				text, err := doc.PageText(i)
				if err != nil {
					return "", fmt.Errorf("page %d: %w", i+1, err)
				}
				pages = append(pages, text)
			}
			return joinPages(pages), nil
		},
	}
}

// OCRStrategy renders every page at OCRDPI, converts it to grayscale and runs OCR.
// The document and the engine are closed on every exit path; page buffers live only
// for the duration of one page.
func OCRStrategy(open DocumentOpener, newEngine OCREngineFactory, logger *slog.Logger) PDFStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return PDFStrategy{
		Name: "ocr",
		Extract: func(ctx context.Context, path string) (string, error) {
			doc, err := open(path)
			if err != nil {
				return "", fmt.Errorf("open pdf: %w", err)
			}
			defer doc.Close()

			engine, err := newEngine()
			if err != nil {
				return "", fmt.Errorf("start ocr engine: %w", err)
			}
			defer engine.Close()

			total := doc.NumPage()
			pages := make([]string, 0, total)
			for i := 0; i < total; i++ {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				text, err := ocrPage(doc, engine, i)
				if err != nil {
					return "", fmt.Errorf("page %d: %w", i+1, err)
				}
				pages = append(pages, strings.TrimSpace(text))
			}

			text := joinPages(pages)
			if text != "" {
				logger.Info("OCR completed", "file", path, "pages", total)
			}
			return text, nil
		},
	}
}

// ocrPage renders and recognises a single page.
func ocrPage(doc PageDocument, engine OCREngine, page int) (string, error) {
	img, err := doc.RenderPage(page, OCRDPI)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return engine.Recognize(ToGray(img))
}

// ToGray converts img to a single-channel grayscale image.
func ToGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
