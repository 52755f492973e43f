package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a MemoryStore and records provisioning calls.
type countingStore struct {
	*MemoryStore
	creates     int
	describeErr error
	upsertErr   error
}

func (c *countingStore) DescribeIndex(ctx context.Context, name string) (*IndexInfo, error) {
	if c.describeErr != nil {
		return nil, c.describeErr
	}
	return c.MemoryStore.DescribeIndex(ctx, name)
}

func (c *countingStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	c.creates++
	return c.MemoryStore.CreateIndex(ctx, spec)
}

func (c *countingStore) Upsert(ctx context.Context, index, namespace string, records []Record) error {
	if c.upsertErr != nil {
		return c.upsertErr
	}
	return c.MemoryStore.Upsert(ctx, index, namespace, records)
}

func vectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		v[i%dim] = 1
		out[i] = v
	}
	return out
}

func newTestWriter(t *testing.T, store VectorStore, dim int) *Writer {
	t.Helper()
	w, err := NewWriter(context.Background(), store, WriterConfig{
		Index:     "docs",
		Namespace: "team notes",
		Dimension: dim,
	}, nil)
	require.NoError(t, err)
	return w
}

func TestNewWriter_CreatesMissingIndex(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}

	w := newTestWriter(t, store, 4)

	assert.Equal(t, 1, store.creates)
	assert.Equal(t, "docs", w.Index())
	assert.Equal(t, "team_notes", w.Namespace())
	assert.Equal(t, 4, w.Dimension())

	info, err := store.DescribeIndex(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Dimension)
	assert.Equal(t, MetricCosine, info.Metric)
}

func TestNewWriter_ProvisioningIsIdempotent(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}

	newTestWriter(t, store, 4)
	newTestWriter(t, store, 4)

	assert.Equal(t, 1, store.creates)
}

func TestNewWriter_RejectsExistingIndexWithOtherDimension(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, store.MemoryStore.CreateIndex(context.Background(), IndexSpec{Name: "docs", Dimension: 1536}))

	_, err := NewWriter(context.Background(), store, WriterConfig{Index: "docs", Dimension: 3072}, nil)

	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "1536")
	assert.Contains(t, err.Error(), "3072")
	assert.Equal(t, 0, store.creates)
}

func TestNewWriter_DescribeFailure(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore(), describeErr: ErrStoreUnreachable}

	_, err := NewWriter(context.Background(), store, WriterConfig{Index: "docs", Dimension: 4}, nil)

	require.ErrorIs(t, err, ErrStoreUnreachable)
	assert.Equal(t, 0, store.creates)
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	store := NewMemoryStore()

	_, err := NewWriter(context.Background(), store, WriterConfig{Dimension: 4}, nil)
	assert.Error(t, err)

	_, err = NewWriter(context.Background(), store, WriterConfig{Index: "docs"}, nil)
	assert.Error(t, err)
}

func TestWriter_Upsert(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)

	ids, err := w.Upsert(context.Background(), Batch{
		Chunks:      []string{"first", "second", "third"},
		Vectors:     vectors(3, 4),
		RunMetadata: map[string]any{"source": "run", "title": "Run title"},
		DocMetadata: map[string]any{"filename": "notes.txt", "source": "doc"},
	})
	require.NoError(t, err)

	base := SanitizeID("notes.txt")
	assert.Equal(t, []string{base + "_0000", base + "_0001", base + "_0002"}, ids)

	records := store.Records("docs", "team_notes")
	require.Len(t, records, 3)
	assert.Equal(t, "second", records[1].Metadata[MetaText])
	assert.Equal(t, "doc", records[1].Metadata["source"], "document metadata wins")
	assert.Equal(t, "Run title", records[1].Metadata["title"])
	assert.Equal(t, "notes.txt", records[1].Metadata["filename"])
	assert.Equal(t, 1, store.UpsertCalls())
}

func TestWriter_Upsert_TitleTakesPrecedenceForIDs(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)

	ids, err := w.Upsert(context.Background(), Batch{
		Chunks:      []string{"only"},
		Vectors:     vectors(1, 4),
		DocMetadata: map[string]any{"filename": "notes.txt", "title": "Clinical Notes"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{SanitizeID("Clinical Notes") + "_0000"}, ids)
}

func TestWriter_Upsert_DiscardsNamespaceMetadata(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)

	_, err := w.Upsert(context.Background(), Batch{
		Chunks:      []string{"text"},
		Vectors:     vectors(1, 4),
		RunMetadata: map[string]any{"namespace": "elsewhere"},
		DocMetadata: map[string]any{"filename": "a.txt", "namespace": "other"},
	})
	require.NoError(t, err)

	assert.Empty(t, store.Records("docs", "elsewhere"))
	assert.Empty(t, store.Records("docs", "other"))
	records := store.Records("docs", "team_notes")
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].Metadata, "namespace")
}

func TestWriter_Upsert_DimensionMismatchWritesNothing(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)

	vecs := vectors(3, 4)
	vecs[2] = make([]float32, 3)

	_, err := w.Upsert(context.Background(), Batch{
		Chunks:      []string{"a", "b", "c"},
		Vectors:     vecs,
		DocMetadata: map[string]any{"filename": "a.txt"},
	})

	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, store.UpsertCalls())
	assert.Empty(t, store.Records("docs", "team_notes"))
}

func TestWriter_Upsert_ChunkVectorCountMismatch(t *testing.T) {
	w := newTestWriter(t, NewMemoryStore(), 4)

	_, err := w.Upsert(context.Background(), Batch{Chunks: []string{"a", "b"}, Vectors: vectors(1, 4)})
	assert.ErrorIs(t, err, ErrInvalidBatch)
}

func TestWriter_Upsert_Empty(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)

	ids, err := w.Upsert(context.Background(), Batch{})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, store.UpsertCalls())
}

func TestWriter_Upsert_StoreFailurePropagates(t *testing.T) {
	boom := errors.New("write refused")
	store := &countingStore{MemoryStore: NewMemoryStore(), upsertErr: boom}
	w := newTestWriter(t, store, 4)

	_, err := w.Upsert(context.Background(), Batch{
		Chunks:      []string{"a"},
		Vectors:     vectors(1, 4),
		DocMetadata: map[string]any{"filename": "a.txt"},
	})
	assert.ErrorIs(t, err, boom)
}

func TestWriter_Upsert_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	w := newTestWriter(t, store, 4)
	batch := Batch{
		Chunks:      []string{"a", "b"},
		Vectors:     vectors(2, 4),
		DocMetadata: map[string]any{"filename": "a.txt"},
	}

	first, err := w.Upsert(context.Background(), batch)
	require.NoError(t, err)
	second, err := w.Upsert(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.Records("docs", "team_notes"), 2)
}

func TestBuildRecords_TruncatesText(t *testing.T) {
	long := strings.Repeat("é", MaxTextChars+100)

	records := BuildRecords(Batch{
		Chunks:      []string{long},
		Vectors:     vectors(1, 4),
		DocMetadata: map[string]any{"filename": "a.txt"},
	})

	require.Len(t, records, 1)
	text := records[0].Metadata[MetaText].(string)
	assert.Equal(t, MaxTextChars, utf8.RuneCountInString(text))
	assert.True(t, utf8.ValidString(text))
}

func TestBuildRecords_DefaultIDBase(t *testing.T) {
	records := BuildRecords(Batch{Chunks: []string{"a"}, Vectors: vectors(1, 4)})

	require.Len(t, records, 1)
	assert.Equal(t, SanitizeID(DefaultIDBase)+"_0000", records[0].ID)
}
