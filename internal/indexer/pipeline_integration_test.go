//go:build integration

package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/doc-ingest/internal/chunker"
	"github.com/bull/doc-ingest/internal/extract"
	"github.com/bull/doc-ingest/internal/loader"
	"github.com/bull/doc-ingest/internal/storage"
)

func TestPipeline_IndexAll_Qdrant_Integration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("QDRANT_HOST not set, skipping integration test")
	}

	ctx := context.Background()
	store, err := storage.NewQdrantStore(ctx, storage.QdrantConfig{Host: host, Port: 6334})
	require.NoError(t, err)
	defer store.Close()

	index := fmt.Sprintf("doc-ingest-it-%d", os.Getpid())
	writer, err := storage.NewWriter(ctx, store, storage.WriterConfig{Index: index, Namespace: "it", Dimension: 8}, slog.Default())
	require.NoError(t, err)

	c, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)

	dir := writeFolder(t, map[string]string{"words.txt": words(500)})
	embedder := &fakeEmbedder{dimension: 8}
	p := NewPipeline(loader.New(extract.New(slog.Default()), slog.Default()), c, embedder, writer, nil, nil, slog.Default())

	result, err := p.IndexAll(ctx, []Stream{{Folder: dir}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)

	// Verify searchable within the namespace
	searcher := storage.NewSearcher(store, index, "it", 8)
	query := make([]float32, 8)
	query[0] = 1
	matches, err := searcher.Search(ctx, query, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.True(strings.HasPrefix(matches[0].ID, storage.SanitizeID("words.txt")+"_"), matches[0].ID)
	assert.NotEmpty(t, matches[0].Text())
}
