// Package embedding maps chunk texts to fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownModel is returned for an embedding_model key missing from the model table.
var ErrUnknownModel = errors.New("unknown embedding model")

// Embedder maps chunks to embeddings, one per chunk, in input order.
// A call either returns len(chunks) vectors of Dimension() floats or an error.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Backend names.
const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// ModelSpec describes what an embedding_model key selects.
type ModelSpec struct {
	Key       string
	Backend   string
	Model     string
	Dimension int
}

// PubMedBERTModel is served by the local inference server for the pubmedbert key.
const PubMedBERTModel = "microsoft/BiomedNLP-PubMedBERT-base-uncased-abstract"

var models = map[string]ModelSpec{
	"openai":       {Key: "openai", Backend: BackendOpenAI, Model: "text-embedding-3-large", Dimension: 3072},
	"openai-large": {Key: "openai-large", Backend: BackendOpenAI, Model: "text-embedding-3-large", Dimension: 3072},
	"openai-small": {Key: "openai-small", Backend: BackendOpenAI, Model: "text-embedding-3-small", Dimension: 1536},
	"pubmedbert":   {Key: "pubmedbert", Backend: BackendLocal, Model: PubMedBERTModel, Dimension: 768},
}

// LookupModel resolves an embedding_model key (case-insensitive).
func LookupModel(key string) (ModelSpec, error) {
	spec, ok := models[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, key, strings.Join(ModelKeys(), ", "))
	}
	return spec, nil
}

// ModelKeys returns the known embedding_model keys in sorted order.
func ModelKeys() []string {
	return slices.Sorted(maps.Keys(models))
}

// Options configures backend construction.
type Options struct {
	// Client options for the OpenAI backend.
	OpenAI ClientOptions
	// BatchSize is the number of chunks per backend request (0 = backend default).
	BatchSize int
	// RequestsPerMinute throttles OpenAI requests (0 = unlimited).
	RequestsPerMinute int
	// LocalURL is the base URL of the local inference server.
	LocalURL string
}

// New constructs the embedder selected by key.
func New(key string, opts Options) (Embedder, error) {
	spec, err := LookupModel(key)
	if err != nil {
		return nil, err
	}

	switch spec.Backend {
	case BackendOpenAI:
		client, err := NewClient(opts.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("embedding model %q: %w", key, err)
		}
		return NewOpenAIEmbedder(client, spec, opts.BatchSize, opts.RequestsPerMinute), nil
	case BackendLocal:
		return NewLocalEmbedder(LocalConfig{
			BaseURL:   opts.LocalURL,
			Model:     spec.Model,
			Dimension: spec.Dimension,
			BatchSize: opts.BatchSize,
		}), nil
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrUnknownModel, spec.Backend)
	}
}

// checkBatch verifies a backend response before it is handed to callers.
func checkBatch(vectors [][]float32, want, dimension int) error {
	if len(vectors) != want {
		return fmt.Errorf("backend returned %d embeddings for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if v == nil {
			return fmt.Errorf("backend returned no embedding for input %d", i)
		}
		if len(v) != dimension {
			return fmt.Errorf("embedding %d has %d dimensions, model produces %d", i, len(v), dimension)
		}
	}
	return nil
}
