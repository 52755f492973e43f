// Package loader scans an input folder and turns supported files into documents.
package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bull/doc-ingest/internal/extract"
)

// DefaultExtensions is used when no content types are configured.
var DefaultExtensions = []string{"txt", "md", "pdf", "rtf", "csv", "docx"}

// Metadata keys set on every document.
const (
	MetaFilename  = "filename"
	MetaPath      = "path"
	MetaExtension = "extension"
)

// Document is the extracted text of one source file.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Filename returns the document's source file name.
func (d Document) Filename() string {
	name, _ := d.Metadata[MetaFilename].(string)
	return name
}

// Skipped records a file excluded from the output and why.
type Skipped struct {
	Path   string
	Reason string
}

// TextExtractor is the extraction dependency of the loader.
type TextExtractor interface {
	Extract(ctx context.Context, path, ext string) (string, error)
}

// Loader turns the files of a folder into documents.
type Loader struct {
	extractor TextExtractor
	logger    *slog.Logger
}

// New creates a loader using the given extractor.
func New(extractor TextExtractor, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		extractor: extractor,
		logger:    logger,
	}
}

// Load extracts every regular file in folder whose extension is allowed.
// Failures are logged and reported as skipped; they never abort the scan.
// A missing folder yields no documents.
func (l *Loader) Load(ctx context.Context, folder string, extensions []string) ([]Document, []Skipped) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		l.logger.Warn("Input folder not found", "path", folder)
		return nil, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		l.logger.Warn("Failed to read input folder", "path", folder, "error", err)
		return nil, nil
	}

	allowed := allowedSet(extensions)
	var files, candidates []string
	for _, entry := range entries {
		if !l.isRegularFile(folder, entry) {
			continue
		}
		files = append(files, entry.Name())
		if _, ok := allowed[extension(entry.Name())]; ok {
			candidates = append(candidates, entry.Name())
		}
	}
	l.logger.Info("Scanned input folder", "path", folder, "files", len(files), "candidates", len(candidates),
		"extensions", sortedKeys(allowed))

	var (
		docs    []Document
		skipped []Skipped
	)
	skip := func(path, reason string, args ...any) {
		l.logger.Warn("Skipping file", append([]any{"file", path, "reason", reason}, args...)...)
		skipped = append(skipped, Skipped{Path: path, Reason: reason})
	}

	for _, name := range candidates {
		if ctx.Err() != nil {
			break
		}

		path := filepath.Join(folder, name)
		ext := extension(name)
		if !extract.Supports(ext) {
			skip(path, "unsupported extension")
			continue
		}

		text, err := l.extractor.Extract(ctx, path, ext)
		if err != nil {
			skip(path, "extraction failed: "+err.Error(), "stage", ext)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			skip(path, "empty text after parsing", "stage", ext)
			continue
		}

		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]any{
				MetaFilename:  name,
				MetaPath:      path,
				MetaExtension: ext,
			},
		})
	}

	l.logger.Info("Loaded documents", "path", folder, "documents", len(docs), "skipped", len(skipped))
	return docs, skipped
}

// allowedSet normalises extensions, falling back to DefaultExtensions.
func allowedSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if ext = extract.NormalizeExt(ext); ext != "" {
			set[ext] = struct{}{}
		}
	}
	if len(set) == 0 {
		for _, ext := range DefaultExtensions {
			set[ext] = struct{}{}
		}
	}
	return set
}

func extension(name string) string {
	return extract.NormalizeExt(filepath.Ext(name))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// isRegularFile reports whether entry is a regular file, following symlinks.
func (l *Loader) isRegularFile(folder string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	path := filepath.Join(folder, entry.Name())
	info, err := os.Stat(path)
	if err != nil {
		l.logger.Warn("Skipping unresolvable symlink", "path", path, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}
