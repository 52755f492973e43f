package extract

import (
	"context"
	"fmt"
	"strings"
)

// PDFStrategy is one way of pulling text out of a PDF.
type PDFStrategy struct {
	Name    string
	Extract func(ctx context.Context, path string) (string, error)
}

// extractPDF applies the strategies in order and returns the first non-empty text.
// Failures are logged and never stop the cascade; exhaustion yields "".
func (e *Extractor) extractPDF(ctx context.Context, path string) string {
	for _, strategy := range e.pdf {
		text, err := runStrategy(ctx, strategy, path)
		if err != nil {
			e.logger.Warn("PDF strategy failed", "file", path, "strategy", strategy.Name, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			e.logger.Info("PDF strategy succeeded", "file", path, "strategy", strategy.Name)
			return text
		}
		e.logger.Debug("PDF strategy returned no text", "file", path, "strategy", strategy.Name)
	}

	e.logger.Warn("All PDF strategies returned no text", "file", path, "strategies", len(e.pdf))
	return ""
}

// runStrategy converts a panicking parser into an error.
func runStrategy(ctx context.Context, strategy PDFStrategy, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strategy.Extract(ctx, path)
}

// joinPages joins page texts with newlines and trims the result.
func joinPages(pages []string) string {
	return strings.TrimSpace(strings.Join(pages, "\n"))
}
