package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Local inference server defaults.
const (
	DefaultLocalURL       = "http://localhost:8080"
	DefaultLocalBatchSize = 32
	DefaultLocalTimeout   = 120 * time.Second
	LocalURLEnv           = "LOCAL_EMBEDDING_URL"
)

// LocalConfig configures the local transformer embedder.
type LocalConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	BatchSize  int
	HTTPClient *http.Client
}

// LocalEmbedder calls a locally hosted transformer inference server speaking the
// text-embeddings-inference /embed protocol. The server mean-pools token states and
// truncates inputs to the model's 512-token window.
type LocalEmbedder struct {
	client    *http.Client
	baseURL   string
	model     string
	dimension int
	batchSize int
}

var _ Embedder = (*LocalEmbedder)(nil)

type localEmbedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// NewLocalEmbedder creates a local embedder, filling defaults for unset fields.
func NewLocalEmbedder(cfg LocalConfig) *LocalEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLocalURL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultLocalBatchSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultLocalTimeout}
	}
	return &LocalEmbedder{
		client:    cfg.HTTPClient,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
	}
}

// Dimension returns the hidden size of the served model.
func (e *LocalEmbedder) Dimension() int { return e.dimension }

// Model returns the served model name.
func (e *LocalEmbedder) Model() string { return e.model }

// EmbedChunks embeds chunks batch by batch. Any failed batch fails the whole call.
func (e *LocalEmbedder) EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	all := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += e.batchSize {
		end := min(i+e.batchSize, len(chunks))
		vectors, err := e.embedBatch(ctx, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("model %s batch %d-%d: %w", e.model, i, end, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *LocalEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(localEmbedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inference server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := checkBatch(vectors, len(texts), e.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}
