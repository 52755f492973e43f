package storage

import (
	"context"
	"fmt"
)

// Searcher runs similarity queries against one namespace of an index.
type Searcher struct {
	store     VectorStore
	index     string
	namespace string
	dimension int
}

// NewSearcher creates a searcher. The namespace is sanitized the same way the writer does.
func NewSearcher(store VectorStore, index, namespace string, dimension int) *Searcher {
	return &Searcher{
		store:     store,
		index:     index,
		namespace: SanitizeNamespace(namespace),
		dimension: dimension,
	}
}

// Namespace returns the sanitized namespace searched.
func (s *Searcher) Namespace() string { return s.namespace }

// Index returns the searched index name.
func (s *Searcher) Index() string { return s.index }

// Search returns up to topK records closest to vector, best first.
func (s *Searcher) Search(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	return s.store.Query(ctx, s.index, s.namespace, vector, topK)
}

// Describe returns information about the searched index.
func (s *Searcher) Describe(ctx context.Context) (*IndexInfo, error) {
	return s.store.DescribeIndex(ctx, s.index)
}

// Health checks the backing store.
func (s *Searcher) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
