package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/doc-ingest/internal/chunker"
	"github.com/bull/doc-ingest/internal/extract"
	"github.com/bull/doc-ingest/internal/loader"
	"github.com/bull/doc-ingest/internal/metadata"
	"github.com/bull/doc-ingest/internal/storage"
)

// fakeEmbedder returns one-hot vectors of a fixed length.
type fakeEmbedder struct {
	mu        sync.Mutex
	dimension int
	err       error
	calls     int
}

func (f *fakeEmbedder) EmbedChunks(_ context.Context, chunks []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(chunks))
	for i := range chunks {
		v := make([]float32, f.dimension)
		v[i%f.dimension] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dimension }
func (f *fakeEmbedder) Model() string  { return "fake-embedder" }

type fakeGenerator struct {
	meta *metadata.DocumentMetadata
	err  error
}

func (f *fakeGenerator) GenerateMetadata(context.Context, string, string) (*metadata.DocumentMetadata, error) {
	return f.meta, f.err
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func writeFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

type fixture struct {
	store    *storage.MemoryStore
	embedder *fakeEmbedder
	writer   *storage.Writer
}

func newFixture(t *testing.T, embedderDim, indexDim int) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	writer, err := storage.NewWriter(context.Background(), store, storage.WriterConfig{
		Index:     "docs",
		Namespace: "clinic",
		Dimension: indexDim,
	}, nil)
	require.NoError(t, err)
	return &fixture{store: store, embedder: &fakeEmbedder{dimension: embedderDim}, writer: writer}
}

func (f *fixture) pipeline(t *testing.T, generator MetadataGenerator, runMeta map[string]any) *Pipeline {
	t.Helper()
	c, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	return NewPipeline(loader.New(extract.New(nil), nil), c, f.embedder, f.writer, generator, runMeta, nil)
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := writeFolder(t, map[string]string{"words.txt": words(500)})
	f := newFixture(t, 8, 8)
	p := f.pipeline(t, nil, map[string]any{"project": "intake", "namespace": "ignored"})

	result, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalDocs)
	assert.Equal(t, 1, result.SuccessfulDocs)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, "clinic", result.Namespace)

	base := storage.SanitizeID("words.txt")
	records := f.store.Records("docs", "clinic")
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("%s_%04d", base, i), r.ID)
		assert.Equal(t, "intake", r.Metadata["project"])
		assert.Equal(t, "words.txt", r.Metadata["filename"])
		assert.NotContains(t, r.Metadata, "namespace")
	}
	assert.True(t, strings.HasPrefix(records[0].Metadata["text"].(string), "word0 word1"))
	assert.True(t, strings.HasSuffix(records[2].Metadata["text"].(string), "word499"))
	assert.Equal(t, 1, f.store.UpsertCalls())
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	dir := writeFolder(t, map[string]string{"words.txt": words(500)})
	f := newFixture(t, 8, 8)
	p := f.pipeline(t, nil, nil)

	_, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})
	require.NoError(t, err)
	_, err = p.IndexAll(context.Background(), []Stream{{Folder: dir}})
	require.NoError(t, err)

	assert.Len(t, f.store.Records("docs", "clinic"), 3)
}

func TestPipeline_DimensionMismatchFailsBeforeUpsert(t *testing.T) {
	dir := writeFolder(t, map[string]string{"words.txt": words(50)})
	f := newFixture(t, 1536, 3072)
	p := f.pipeline(t, nil, nil)

	_, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})

	require.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "1536")
	assert.Contains(t, err.Error(), "3072")
	assert.Equal(t, 0, f.embedder.calls)
	assert.Equal(t, 0, f.store.UpsertCalls())
}

func TestPipeline_EmbeddingFailureIsFatal(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"a.txt": "first document",
		"b.txt": "second document",
	})
	f := newFixture(t, 8, 8)
	f.embedder.err = errors.New("model unavailable")
	p := f.pipeline(t, nil, nil)

	result, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake-embedder")
	assert.Contains(t, err.Error(), "a.txt")
	assert.Equal(t, 1, f.embedder.calls)
	assert.Equal(t, 0, result.SuccessfulDocs)
	assert.Equal(t, 0, f.store.UpsertCalls())
}

func TestPipeline_SkipsUnreadableFiles(t *testing.T) {
	dir := writeFolder(t, map[string]string{
		"good.txt":   "useful content",
		"blank.txt":  "   ",
		"broken.pdf": "not really a pdf",
	})
	f := newFixture(t, 8, 8)

	c, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	// No PDF strategies: every PDF yields empty text.
	p := NewPipeline(loader.New(extract.New(nil), nil), c, f.embedder, f.writer, nil, nil, nil)

	result, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalDocs)
	assert.Equal(t, 1, result.SuccessfulDocs)
	assert.Len(t, result.Skipped, 2)
	assert.Len(t, f.store.Records("docs", "clinic"), 1)
}

func TestPipeline_StreamMetadataAndSummary(t *testing.T) {
	dir := writeFolder(t, map[string]string{"notes.md": "# Notes\nAspirin dosage."})
	f := newFixture(t, 8, 8)
	gen := &fakeGenerator{meta: &metadata.DocumentMetadata{Summary: "Dosage notes.", Keywords: []string{"aspirin"}}}
	p := f.pipeline(t, gen, map[string]any{"repository": "run-level"})

	_, err := p.IndexAll(context.Background(), []Stream{{
		Folder:   dir,
		Metadata: map[string]any{"repository": "acme/handbook"},
	}})
	require.NoError(t, err)

	records := f.store.Records("docs", "clinic")
	require.Len(t, records, 1)
	assert.Equal(t, "acme/handbook", records[0].Metadata["repository"])
	assert.Equal(t, "Dosage notes.", records[0].Metadata["summary"])
	assert.Equal(t, []string{"aspirin"}, records[0].Metadata["keywords"])
}

func TestPipeline_SummaryFailureIsNotFatal(t *testing.T) {
	dir := writeFolder(t, map[string]string{"notes.txt": "content"})
	f := newFixture(t, 8, 8)
	p := f.pipeline(t, &fakeGenerator{err: errors.New("quota")}, nil)

	result, err := p.IndexAll(context.Background(), []Stream{{Folder: dir}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessfulDocs)
	records := f.store.Records("docs", "clinic")
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].Metadata, "summary")
}

func TestPipeline_MissingFolderIsEmpty(t *testing.T) {
	f := newFixture(t, 8, 8)
	p := f.pipeline(t, nil, nil)

	result, err := p.IndexAll(context.Background(), []Stream{{Folder: filepath.Join(t.TempDir(), "missing")}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalDocs)
}

func TestPipeline_CanceledContext(t *testing.T) {
	dir := writeFolder(t, map[string]string{"a.txt": "content"})
	f := newFixture(t, 8, 8)
	p := f.pipeline(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.IndexAll(ctx, []Stream{{Folder: dir}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.store.UpsertCalls())
}
