package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// Default serverless placement for new indexes.
const (
	DefaultCloud  = "aws"
	DefaultRegion = "us-east-1"
)

// WriterConfig configures a Writer.
type WriterConfig struct {
	Index     string
	Namespace string
	Dimension int
	Metric    string
	Cloud     string
	Region    string
}

// Writer validates embeddings against the index dimension and upserts chunk records
// under a fixed namespace. Its fields are read-only after construction.
type Writer struct {
	store     VectorStore
	index     string
	namespace string
	dimension int
	logger    *slog.Logger
}

// Batch is the embedded chunks of one document.
type Batch struct {
	Chunks      []string
	Vectors     [][]float32
	RunMetadata map[string]any // Static metadata merged into every record
	DocMetadata map[string]any // Per-document metadata; wins over RunMetadata
}

// NewWriter provisions the index if it is missing and returns a writer for it.
// An existing index with a different dimension is rejected. Provisioning is idempotent.
func NewWriter(ctx context.Context, store VectorStore, cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Index == "" {
		return nil, errors.New("index name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	w := &Writer{
		store:     store,
		index:     cfg.Index,
		namespace: SanitizeNamespace(cfg.Namespace),
		dimension: cfg.Dimension,
		logger:    logger,
	}
	if err := w.ensureIndex(ctx, cfg); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) ensureIndex(ctx context.Context, cfg WriterConfig) error {
	info, err := w.store.DescribeIndex(ctx, cfg.Index)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		w.logger.Info("Creating index", "index", cfg.Index, "dimension", cfg.Dimension, "metric", cfg.Metric)
		err := w.store.CreateIndex(ctx, IndexSpec{
			Name:      cfg.Index,
			Dimension: cfg.Dimension,
			Metric:    cfg.Metric,
			Cloud:     cfg.Cloud,
			Region:    cfg.Region,
		})
		if err != nil {
			return fmt.Errorf("create index %q: %w", cfg.Index, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("describe index %q: %w", cfg.Index, err)
	}

	if info.Dimension != 0 && info.Dimension != cfg.Dimension {
		return fmt.Errorf("%w: configured dimension %d != index %q dimension %d",
			ErrDimensionMismatch, cfg.Dimension, cfg.Index, info.Dimension)
	}
	w.logger.Debug("Index exists", "index", cfg.Index, "dimension", info.Dimension)
	return nil
}

// Index returns the target index name.
func (w *Writer) Index() string { return w.index }

// Namespace returns the sanitized namespace all records are written to.
func (w *Writer) Namespace() string { return w.namespace }

// Dimension returns the configured embedding dimension.
func (w *Writer) Dimension() int { return w.dimension }

// CheckDimension verifies every vector has the configured length.
func (w *Writer) CheckDimension(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != w.dimension {
			return fmt.Errorf("%w: embedding %d has %d dimensions, index %q expects %d",
				ErrDimensionMismatch, i, len(v), w.index, w.dimension)
		}
	}
	return nil
}

// Upsert writes one record per chunk in a single store call and returns the record ids.
// Nothing is written when any vector has the wrong dimension.
func (w *Writer) Upsert(ctx context.Context, batch Batch) ([]string, error) {
	if len(batch.Chunks) != len(batch.Vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrInvalidBatch, len(batch.Chunks), len(batch.Vectors))
	}
	if len(batch.Chunks) == 0 {
		return nil, nil
	}
	if err := w.CheckDimension(batch.Vectors); err != nil {
		return nil, err
	}

	records := BuildRecords(batch)
	if err := w.store.Upsert(ctx, w.index, w.namespace, records); err != nil {
		return nil, fmt.Errorf("upsert %d records to %s/%s: %w", len(records), w.index, w.namespace, err)
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	w.logger.Debug("Upserted records", "index", w.index, "namespace", w.namespace, "records", len(records))
	return ids, nil
}

// BuildRecords merges metadata and assigns stable ids to a document's chunks.
// A caller-supplied "namespace" metadata key is discarded.
func BuildRecords(batch Batch) []Record {
	base := make(map[string]any, len(batch.RunMetadata)+len(batch.DocMetadata)+1)
	maps.Copy(base, batch.RunMetadata)
	maps.Copy(base, batch.DocMetadata)
	delete(base, MetaNamespace)

	idBase := SanitizeID(sourceName(batch.DocMetadata))

	records := make([]Record, len(batch.Chunks))
	for i, text := range batch.Chunks {
		meta := maps.Clone(base)
		meta[MetaText] = truncateRunes(text, MaxTextChars)
		records[i] = Record{
			ID:       RecordID(idBase, i),
			Vector:   batch.Vectors[i],
			Metadata: meta,
		}
	}
	return records
}

// sourceName picks the identity source of a document: its title, else its filename.
// Run-level metadata never contributes, so a shared title cannot collide documents.
func sourceName(doc map[string]any) string {
	for _, key := range []string{MetaTitle, MetaFilename} {
		if s, ok := doc[key].(string); ok && s != "" {
			return s
		}
	}
	return DefaultIDBase
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
