package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/bull/doc-ingest/internal/chunker"
	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/loader"
	"github.com/bull/doc-ingest/internal/metadata"
	"github.com/bull/doc-ingest/internal/storage"
)

// Stream is one input folder and the extensions to ingest from it.
type Stream struct {
	Folder     string
	Extensions []string
	Metadata   map[string]any // Merged into every document of the stream
}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Index          string
	Namespace      string
	TotalDocs      int
	SuccessfulDocs int
	TotalChunks    int
	TotalRecords   int
	Skipped        []loader.Skipped
	Duration       time.Duration
}

// DocumentLoader produces documents from a folder.
type DocumentLoader interface {
	Load(ctx context.Context, folder string, extensions []string) ([]loader.Document, []loader.Skipped)
}

// MetadataGenerator enriches a document with a summary.
type MetadataGenerator interface {
	GenerateMetadata(ctx context.Context, name, content string) (*metadata.DocumentMetadata, error)
}

// Pipeline orchestrates loading, chunking, embedding and storage, one document at a time.
type Pipeline struct {
	loader    DocumentLoader
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	writer    *storage.Writer
	generator MetadataGenerator
	metadata  map[string]any
	logger    *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
// generator may be nil to skip summaries. runMetadata is attached to every record.
func NewPipeline(
	docLoader DocumentLoader,
	textChunker *chunker.Chunker,
	embedder embedding.Embedder,
	writer *storage.Writer,
	generator MetadataGenerator,
	runMetadata map[string]any,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:    docLoader,
		chunker:   textChunker,
		embedder:  embedder,
		writer:    writer,
		generator: generator,
		metadata:  maps.Clone(runMetadata),
		logger:    logger,
	}
}

// CheckDimension compares the embedder's declared dimension with the index dimension.
func (p *Pipeline) CheckDimension() error {
	if p.embedder.Dimension() != p.writer.Dimension() {
		return fmt.Errorf("%w: model %s produces %d dimensions, index %q expects %d",
			storage.ErrDimensionMismatch, p.embedder.Model(), p.embedder.Dimension(),
			p.writer.Index(), p.writer.Dimension())
	}
	return nil
}

// IndexAll ingests every stream in order. Unreadable files are skipped and reported;
// embedding, dimension and storage failures abort the run.
func (p *Pipeline) IndexAll(ctx context.Context, streams []Stream) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{
		Index:     p.writer.Index(),
		Namespace: p.writer.Namespace(),
	}

	if err := p.CheckDimension(); err != nil {
		return result, err
	}

	p.logger.Info("Starting indexing",
		"index", result.Index,
		"namespace", result.Namespace,
		"model", p.embedder.Model(),
		"streams", len(streams),
	)

	for _, stream := range streams {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		docs, skipped := p.loader.Load(ctx, stream.Folder, stream.Extensions)
		result.TotalDocs += len(docs) + len(skipped)
		result.Skipped = append(result.Skipped, skipped...)
		p.logger.Info("Loaded documents", "path", stream.Folder, "count", len(docs), "skipped", len(skipped))

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			records, chunks, err := p.processDocument(ctx, doc, stream.Metadata)
			if err != nil {
				result.Duration = time.Since(start)
				return result, fmt.Errorf("index %s: %w", doc.Filename(), err)
			}
			result.SuccessfulDocs++
			result.TotalChunks += chunks
			result.TotalRecords += records
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"skipped", len(result.Skipped),
		"chunks", result.TotalChunks,
		"records", result.TotalRecords,
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument chunks, embeds and upserts a single document.
// Returns the number of records written and chunks produced.
func (p *Pipeline) processDocument(ctx context.Context, doc loader.Document, streamMeta map[string]any) (int, int, error) {
	name := doc.Filename()

	chunks := chunker.Texts(p.chunker.Split(doc.Text))
	if len(chunks) == 0 {
		return 0, 0, nil
	}
	p.logger.Debug("Chunked document", "file", name, "chunks", len(chunks))

	docMeta := make(map[string]any, len(streamMeta)+len(doc.Metadata)+2)
	maps.Copy(docMeta, streamMeta)
	if p.generator != nil {
		meta, err := p.generator.GenerateMetadata(ctx, name, doc.Text)
		if err != nil {
			p.logger.Warn("Metadata generation failed, continuing without summary", "file", name, "error", err)
		} else {
			maps.Copy(docMeta, meta.Fields())
		}
	}
	maps.Copy(docMeta, doc.Metadata)

	vectors, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return 0, len(chunks), fmt.Errorf("embedding model %s: %w", p.embedder.Model(), err)
	}

	ids, err := p.writer.Upsert(ctx, storage.Batch{
		Chunks:      chunks,
		Vectors:     vectors,
		RunMetadata: p.metadata,
		DocMetadata: docMeta,
	})
	if err != nil {
		return 0, len(chunks), fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("Indexed document", "file", name, "chunks", len(chunks), "namespace", p.writer.Namespace())
	return len(ids), len(chunks), nil
}
