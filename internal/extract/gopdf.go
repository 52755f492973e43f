package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// GoPDFStrategy extracts page text with a pure-Go PDF parser.
func GoPDFStrategy() PDFStrategy {
	return PDFStrategy{
		Name:    "gopdf",
		Extract: extractWithGoPDF,
	}
}

func extractWithGoPDF(ctx context.Context, path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return joinPages(pages), nil
}
