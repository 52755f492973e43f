package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload fields the Qdrant backend adds next to the record metadata.
const (
	payloadNamespace = "namespace"
	payloadRecordID  = "record_id"
)

// QdrantConfig holds the Qdrant connection settings.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStore is a VectorStore backed by Qdrant collections.
// An index maps to a collection; namespaces are a keyword payload field.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client: client,
		host:   cfg.Host,
		port:   cfg.Port,
	}

	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return store, nil
}

// retryPolicy is the backoff shared by health checks and upserts.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func retryPolicy(ctx context.Context) backoff.BackOff {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(exponentialBackoff, ctx)
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, retryPolicy(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// DescribeIndex reports the collection's vector size and distance.
func (s *QdrantStore) DescribeIndex(ctx context.Context, name string) (*IndexInfo, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	collection, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	info := &IndexInfo{Name: name, Host: fmt.Sprintf("%s:%d", s.host, s.port)}
	if params := collection.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		info.Dimension = int(params.GetSize())
		info.Metric = metricFromDistance(params.GetDistance())
	}
	return info, nil
}

// CreateIndex creates a collection with unnamed vectors and a keyword index on the namespace field.
func (s *QdrantStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distanceFromMetric(spec.Metric),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without this index, namespace filtering degrades to a full scan.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: spec.Name,
		FieldName:      payloadNamespace,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", payloadNamespace, err)
	}
	return nil
}

// Upsert stores records as points. Point ids are derived from namespace and record id,
// so re-upserting the same record overwrites it.
func (s *QdrantStore) Upsert(ctx context.Context, index, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := normalizeMetadata(r.Metadata)
		payload[payloadNamespace] = namespace
		payload[payloadRecordID] = r.ID

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("record %s payload: %w", r.ID, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(namespace, r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: values,
		}
	}

	return s.upsertWithRetry(ctx, index, points)
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, retryPolicy(ctx))
}

// Query performs a vector similarity search restricted to one namespace.
func (s *QdrantStore) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]Match, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: index,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadNamespace, namespace)},
		},
		Limit:       qdrant.PtrOf(uint64(topK)),
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		meta := make(map[string]any, len(result.Payload))
		for k, v := range result.Payload {
			meta[k] = valueToAny(v)
		}
		id, _ := meta[payloadRecordID].(string)
		if id == "" {
			id = result.Id.GetUuid()
		}
		delete(meta, payloadRecordID)
		delete(meta, payloadNamespace)

		matches = append(matches, Match{
			ID:       id,
			Score:    float64(result.Score),
			Metadata: meta,
		})
	}
	return matches, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// PointID maps a namespaced record id onto the UUID Qdrant requires.
func PointID(namespace, recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+recordID)).String()
}

func distanceFromMetric(metric string) qdrant.Distance {
	switch strings.ToLower(metric) {
	case MetricEuclidean:
		return qdrant.Distance_Euclid
	case MetricDotProduct:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func metricFromDistance(d qdrant.Distance) string {
	switch d {
	case qdrant.Distance_Euclid:
		return MetricEuclidean
	case qdrant.Distance_Dot:
		return MetricDotProduct
	default:
		return MetricCosine
	}
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		list := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			list = append(list, valueToAny(item))
		}
		return list
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, item := range kind.StructValue.GetFields() {
			fields[k] = valueToAny(item)
		}
		return fields
	default:
		return nil
	}
}
