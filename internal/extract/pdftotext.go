package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const pdftotextBinary = "pdftotext"

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns stdout.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CheckPDFToText reports whether pdftotext is on PATH.
func CheckPDFToText() error {
	if _, err := exec.LookPath(pdftotextBinary); err != nil {
		return fmt.Errorf("%w: %s (install poppler: brew install poppler / apt install poppler-utils)",
			ErrToolNotFound, pdftotextBinary)
	}
	return nil
}

// PDFToTextStrategy extracts layout-preserving text with poppler's pdftotext.
// Page breaks (form feeds) become newlines.
func PDFToTextStrategy(runner CommandRunner) PDFStrategy {
	if runner == nil {
		runner = ExecRunner{}
	}
	return PDFStrategy{
		Name: "pdftotext",
		Extract: func(ctx context.Context, path string) (string, error) {
			if _, ok := runner.(ExecRunner); ok {
				if err := CheckPDFToText(); err != nil {
					return "", err
				}
			}
			out, err := runner.Run(ctx, pdftotextBinary, "-layout", "-enc", "UTF-8", path, "-")
			if err != nil {
				return "", fmt.Errorf("pdftotext failed: %w", err)
			}
			pages := strings.Split(strings.ToValidUTF8(string(out), ""), "\f")
			return joinPages(pages), nil
		},
	}
}
