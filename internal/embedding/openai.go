package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"golang.org/x/time/rate"
)

// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
const DefaultBatchSize = 500

// OpenAIEmbedder generates embeddings with the OpenAI embeddings API.
// It batches requests, throttles them and backs off exponentially on rate limit errors.
type OpenAIEmbedder struct {
	client    *openai.Client
	spec      ModelSpec
	batchSize int
	limiter   *rate.Limiter

	// Backoff bounds for HTTP 429 retries.
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for spec. A batchSize of 0 uses DefaultBatchSize;
// requestsPerMinute of 0 disables throttling.
func NewOpenAIEmbedder(client *openai.Client, spec ModelSpec, batchSize, requestsPerMinute int) *OpenAIEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60)
	}
	return &OpenAIEmbedder{
		client:          client,
		spec:            spec,
		batchSize:       batchSize,
		limiter:         rate.NewLimiter(limit, 1),
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
		maxElapsedTime:  30 * time.Second,
	}
}

// Dimension returns the vector length of the configured model.
func (e *OpenAIEmbedder) Dimension() int { return e.spec.Dimension }

// Model returns the OpenAI model name.
func (e *OpenAIEmbedder) Model() string { return e.spec.Model }

// EmbedChunks embeds chunks batch by batch. Any failed batch fails the whole call.
func (e *OpenAIEmbedder) EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	all := make([][]float32, 0, len(chunks))

	for i := 0; i < len(chunks); i += e.batchSize {
		end := min(i+e.batchSize, len(chunks))
		batch := chunks[i:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("model %s batch %d-%d: %w", e.spec.Model, i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// embedBatchWithRetry embeds a single batch, retrying only on HTTP 429.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.spec.Model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		// Place by response index so output order always matches input order.
		out := make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(out) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", data.Index))
			}
			out[data.Index] = toFloat32(data.Embedding)
		}
		if err := checkBatch(out, len(texts), e.spec.Dimension); err != nil {
			return backoff.Permanent(err)
		}
		vectors = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.initialInterval
	b.MaxInterval = e.maxInterval
	b.MaxElapsedTime = e.maxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vectors, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but vector stores take float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
