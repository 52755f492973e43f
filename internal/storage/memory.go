package storage

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore for dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex
	upserts int
}

type memoryIndex struct {
	spec       IndexSpec
	namespaces map[string]map[string]Record
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indexes: make(map[string]*memoryIndex)}
}

// DescribeIndex returns the index spec or ErrIndexNotFound.
func (m *MemoryStore) DescribeIndex(_ context.Context, name string) (*IndexInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return &IndexInfo{Name: name, Dimension: idx.spec.Dimension, Metric: idx.spec.Metric}, nil
}

// CreateIndex creates an index; creating an existing index is a no-op.
func (m *MemoryStore) CreateIndex(_ context.Context, spec IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.indexes[spec.Name]; !ok {
		m.indexes[spec.Name] = &memoryIndex{spec: spec, namespaces: make(map[string]map[string]Record)}
	}
	return nil
}

// Upsert stores records by id, overwriting existing ones.
func (m *MemoryStore) Upsert(_ context.Context, index, namespace string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[index]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	for _, r := range records {
		if len(r.Vector) != idx.spec.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), idx.spec.Dimension)
		}
	}

	ns, ok := idx.namespaces[namespace]
	if !ok {
		ns = make(map[string]Record)
		idx.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = Record{ID: r.ID, Vector: slices.Clone(r.Vector), Metadata: maps.Clone(r.Metadata)}
	}
	m.upserts++
	return nil
}

// Query ranks the namespace's records by the index metric.
func (m *MemoryStore) Query(_ context.Context, index, namespace string, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	matches := make([]Match, 0, len(idx.namespaces[namespace]))
	for _, r := range idx.namespaces[namespace] {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    score(idx.spec.Metric, vector, r.Vector),
			Metadata: maps.Clone(r.Metadata),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Health always succeeds.
func (m *MemoryStore) Health(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// Records returns a copy of the records in a namespace, sorted by id.
func (m *MemoryStore) Records(index, namespace string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indexes[index]
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(idx.namespaces[namespace]))
	for _, r := range idx.namespaces[namespace] {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// UpsertCalls returns how many successful Upsert calls were made.
func (m *MemoryStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// score returns a higher-is-better similarity for metric.
func score(metric string, a, b []float32) float64 {
	var dot, na, nb, dist float64
	for i := range min(len(a), len(b)) {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		dist += (x - y) * (x - y)
	}
	switch metric {
	case MetricDotProduct:
		return dot
	case MetricEuclidean:
		return -math.Sqrt(dist)
	default:
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}
