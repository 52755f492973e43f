package storage

import "context"

// VectorStore is the contract a vector database backend must satisfy.
type VectorStore interface {
	// DescribeIndex returns ErrIndexNotFound when the index does not exist.
	DescribeIndex(ctx context.Context, name string) (*IndexInfo, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
	// Upsert writes records in one batch; existing ids are overwritten.
	Upsert(ctx context.Context, index, namespace string, records []Record) error
	Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]Match, error)
	Health(ctx context.Context) error
	Close() error
}
