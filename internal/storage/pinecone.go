package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig holds Pinecone credentials and placement.
type PineconeConfig struct {
	APIKey string
	Host   string // Optional index host; skips the host lookup when set
}

// PineconeStore is a VectorStore backed by Pinecone serverless indexes.
type PineconeStore struct {
	client *pinecone.Client
	host   string

	mu    sync.Mutex
	hosts map[string]string
}

var _ VectorStore = (*PineconeStore)(nil)

// NewPineconeStore creates a Pinecone client. The API key is required.
func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone API key is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return &PineconeStore{
		client: client,
		host:   cfg.Host,
		hosts:  make(map[string]string),
	}, nil
}

// DescribeIndex looks the index up by name among the project's indexes.
func (s *PineconeStore) DescribeIndex(ctx context.Context, name string) (*IndexInfo, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx == nil || idx.Name != name {
			continue
		}
		info := &IndexInfo{Name: idx.Name, Metric: string(idx.Metric), Host: idx.Host}
		if idx.Dimension != nil {
			info.Dimension = int(*idx.Dimension)
		}
		s.rememberHost(name, idx.Host)
		return info, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
}

// CreateIndex creates a serverless index and waits until it is ready.
func (s *PineconeStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	dimension := int32(spec.Dimension)
	metric := pinecone.IndexMetric(spec.Metric)

	idx, err := s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      spec.Name,
		Dimension: &dimension,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(spec.Cloud),
		Region:    spec.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if idx != nil {
		s.rememberHost(spec.Name, idx.Host)
	}
	return s.waitReady(ctx, spec.Name)
}

// waitReady polls the index status with exponential backoff.
// Initial interval 1s, max interval 10s, max elapsed 2m.
func (s *PineconeStore) waitReady(ctx context.Context, name string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	operation := func() error {
		idx, err := s.client.DescribeIndex(ctx, name)
		if err != nil {
			return err
		}
		if idx.Status == nil || !idx.Status.Ready {
			return fmt.Errorf("index %s not ready", name)
		}
		s.rememberHost(name, idx.Host)
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Upsert writes records to namespace in a single request.
func (s *PineconeStore) Upsert(ctx context.Context, index, namespace string, records []Record) error {
	conn, err := s.connect(ctx, index, namespace)
	if err != nil {
		return err
	}
	defer conn.Close()

	vectors := make([]*pinecone.Vector, len(records))
	for i, r := range records {
		meta, err := structpb.NewStruct(normalizeMetadata(r.Metadata))
		if err != nil {
			return fmt.Errorf("record %s metadata: %w", r.ID, err)
		}
		values := r.Vector
		vectors[i] = &pinecone.Vector{
			Id:       r.ID,
			Values:   &values,
			Metadata: meta,
		}
	}

	if _, err := conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}

// Query returns the topK nearest records in namespace with their metadata.
func (s *PineconeStore) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]Match, error) {
	conn, err := s.connect(ctx, index, namespace)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := Match{ID: m.Vector.Id, Score: float64(m.Score)}
		if m.Vector.Metadata != nil {
			match.Metadata = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Health lists indexes as a connectivity check.
func (s *PineconeStore) Health(ctx context.Context) error {
	if _, err := s.client.ListIndexes(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return nil
}

// Close is a no-op; index connections are closed per call.
func (s *PineconeStore) Close() error { return nil }

func (s *PineconeStore) connect(ctx context.Context, index, namespace string) (*pinecone.IndexConnection, error) {
	host, err := s.indexHost(ctx, index)
	if err != nil {
		return nil, err
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index %s: %w", index, err)
	}
	return conn, nil
}

func (s *PineconeStore) indexHost(ctx context.Context, index string) (string, error) {
	if s.host != "" {
		return s.host, nil
	}
	s.mu.Lock()
	host, ok := s.hosts[index]
	s.mu.Unlock()
	if ok {
		return host, nil
	}

	idx, err := s.client.DescribeIndex(ctx, index)
	if err != nil {
		return "", fmt.Errorf("failed to describe index %s: %w", index, err)
	}
	s.rememberHost(index, idx.Host)
	return idx.Host, nil
}

func (s *PineconeStore) rememberHost(index, host string) {
	if host == "" {
		return
	}
	s.mu.Lock()
	s.hosts[index] = host
	s.mu.Unlock()
}

// normalizeMetadata converts values protobuf structs cannot hold directly.
func normalizeMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case []string:
			list := make([]any, len(val))
			for i, s := range val {
				list[i] = s
			}
			out[k] = list
		case time.Time:
			out[k] = val.Format(time.RFC3339)
		default:
			out[k] = v
		}
	}
	return out
}
