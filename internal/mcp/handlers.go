package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/loader"
	"github.com/bull/doc-ingest/internal/metadata"
	"github.com/bull/doc-ingest/internal/storage"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// makeSearchHandler creates the search_chunks tool handler.
// Search flow:
// 1. Generate embedding for query text
// 2. Query the namespace for the top MaxResults chunks
// 3. Drop chunks below MinScore
func makeSearchHandler(searcher Searcher, embedder embedding.Embedder, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, SearchChunksInput,
) (*mcp.CallToolResult, SearchChunksOutput, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (
		*mcp.CallToolResult, SearchChunksOutput, error,
	) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, SearchChunksOutput{}, errors.New("query must not be empty")
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		maxResults = min(maxResults, maxMaxResults)

		embeddings, err := embedder.EmbedChunks(ctx, []string{query})
		if err != nil {
			return nil, SearchChunksOutput{}, fmt.Errorf("failed to embed query: %w", err)
		}

		matches, err := searcher.Search(ctx, embeddings[0], maxResults)
		if err != nil {
			return nil, SearchChunksOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]ChunkResult, 0, len(matches))
		for _, m := range matches {
			if m.Score < input.MinScore {
				continue
			}
			filename, _ := m.Metadata[loader.MetaFilename].(string)
			summary, _ := m.Metadata[metadata.KeySummary].(string)
			results = append(results, ChunkResult{
				ID:       m.ID,
				Score:    m.Score,
				Filename: filename,
				Text:     m.Text(),
				Summary:  summary,
			})
		}
		logger.Debug("Search served", "namespace", searcher.Namespace(), "matches", len(matches), "results", len(results))

		if len(results) == 0 {
			return nil, SearchChunksOutput{
				Results: []ChunkResult{},
				Message: "No matching chunks found. Try broader search terms.",
			}, nil
		}
		return nil, SearchChunksOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// An unreachable store or a missing index is reported in the output, not as a tool error.
func makeStatusHandler(searcher Searcher, embedder embedding.Embedder) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{
			Index:     searcher.Index(),
			Namespace: searcher.Namespace(),
			Dimension: embedder.Dimension(),
			Model:     embedder.Model(),
		}

		if err := searcher.Health(ctx); err != nil {
			out.Warning = fmt.Sprintf("vector store unhealthy: %v", err)
			return nil, out, nil
		}
		out.Healthy = true

		info, err := searcher.Describe(ctx)
		switch {
		case errors.Is(err, storage.ErrIndexNotFound):
			out.Warning = "Index does not exist yet. Run an ingestion first."
		case err != nil:
			return nil, StatusOutput{}, fmt.Errorf("failed to describe index: %w", err)
		default:
			out.Metric = info.Metric
			if info.Dimension != 0 && info.Dimension != embedder.Dimension() {
				out.Warning = fmt.Sprintf("Index dimension %d does not match model %s (%d).",
					info.Dimension, embedder.Model(), embedder.Dimension())
			}
		}
		return nil, out, nil
	}
}
