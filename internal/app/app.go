// Package app wires configuration into the ingestion and search components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bull/doc-ingest/internal/config"
	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/extract"
	"github.com/bull/doc-ingest/internal/extract/mupdf"
	"github.com/bull/doc-ingest/internal/extract/tesseract"
	ghclient "github.com/bull/doc-ingest/internal/github"
	"github.com/bull/doc-ingest/internal/indexer"
	"github.com/bull/doc-ingest/internal/storage"
)

// Store is an opened vector store plus the placement used for new indexes.
type Store struct {
	storage.VectorStore
	Cloud  string
	Region string
}

// LoadEnvironment loads cfg.EnvFile when one is configured.
func LoadEnvironment(cfg *config.Config, logger *slog.Logger) error {
	if cfg.EnvFile == "" {
		return nil
	}
	path, err := config.LoadEnvironment(cfg.EnvFile, cfg.Dir)
	if err != nil {
		return err
	}
	logger.Info("Loaded environment file", "path", path)
	return nil
}

// OpenStore connects to the configured vector store backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.VectorStore {
	case config.StorePinecone:
		creds, err := config.PineconeCredentials()
		if err != nil {
			return nil, err
		}
		store, err := storage.NewPineconeStore(storage.PineconeConfig{APIKey: creds.APIKey, Host: creds.Host})
		if err != nil {
			return nil, err
		}
		if creds.Environment != "" {
			logger.Debug("Ignoring legacy Pinecone environment", "environment", creds.Environment)
		}
		return &Store{VectorStore: store, Cloud: creds.Cloud, Region: creds.Region}, nil

	case config.StoreQdrant:
		q, err := cfg.QdrantSettings()
		if err != nil {
			return nil, err
		}
		logger.Info("Connecting to Qdrant", "host", q.Host, "port", q.Port)
		store, err := storage.NewQdrantStore(ctx, storage.QdrantConfig{
			Host:   q.Host,
			Port:   q.Port,
			APIKey: q.APIKey,
			UseTLS: q.UseTLS,
		})
		if err != nil {
			return nil, err
		}
		return &Store{VectorStore: store}, nil

	case config.StoreMemory:
		logger.Warn("Using in-memory vector store; nothing will be persisted")
		return &Store{VectorStore: storage.NewMemoryStore()}, nil

	default:
		return nil, fmt.Errorf("%w: vector_store %q", config.ErrInvalidConfig, cfg.VectorStore)
	}
}

// NewEmbedder constructs the embedder named by cfg.EmbeddingModel.
func NewEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	localURL := cfg.Embedding.LocalURL
	if env := config.Getenv(embedding.LocalURLEnv); env != "" {
		localURL = env
	}
	emb, err := embedding.New(cfg.EmbeddingModel, embedding.Options{
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerMinute: cfg.Embedding.RequestsPerMinute,
		LocalURL:          localURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return emb, nil
}

// NewWriter provisions the index and returns the writer for the configured namespace.
func NewWriter(ctx context.Context, cfg *config.Config, store *Store, logger *slog.Logger) (*storage.Writer, error) {
	return storage.NewWriter(ctx, store, storage.WriterConfig{
		Index:     cfg.PineconeIndex,
		Namespace: cfg.Namespace,
		Dimension: cfg.ResolvedDimension(),
		Metric:    cfg.Metric,
		Cloud:     store.Cloud,
		Region:    store.Region,
	}, logger)
}

// NewExtractor returns an extractor with the full PDF cascade:
// pdftotext (when installed), the pure-Go parser, MuPDF text and OCR.
func NewExtractor(logger *slog.Logger) *extract.Extractor {
	var strategies []extract.PDFStrategy
	if err := extract.CheckPDFToText(); err != nil {
		logger.Warn("Layout-aware PDF extraction unavailable", "error", err)
	} else {
		strategies = append(strategies, extract.PDFToTextStrategy(extract.ExecRunner{}))
	}
	strategies = append(strategies,
		extract.GoPDFStrategy(),
		mupdf.TextStrategy(),
		extract.OCRStrategy(mupdf.Open, tesseract.Factory(), logger),
	)
	return extract.New(logger, strategies...)
}

// Streams resolves the configured input streams. GitHub streams are staged into
// temporary folders; the returned cleanup removes them.
func Streams(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]indexer.Stream, func(), error) {
	var dirs []string
	cleanup := func() {
		for _, dir := range dirs {
			os.RemoveAll(dir)
		}
	}

	var gh *ghclient.Client
	streams := make([]indexer.Stream, 0, len(cfg.InputStreams))
	for _, in := range cfg.InputStreams {
		if in.GitHub == nil {
			streams = append(streams, indexer.Stream{Folder: in.Path, Extensions: in.ContentTypes})
			continue
		}

		if gh == nil {
			client, err := ghclient.NewClient(ghclient.ClientOptions{})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("create GitHub client: %w", err)
			}
			gh = client
		}

		dir, err := os.MkdirTemp("", "doc-ingest-github-")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		dirs = append(dirs, dir)

		src := ghclient.Source{Owner: in.GitHub.Owner, Repo: in.GitHub.Repo, Path: in.GitHub.Path, Ref: in.GitHub.Ref}
		staged, err := ghclient.NewFetcher(gh, src, logger).Stage(ctx, dir, in.ContentTypes)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("stage %s: %w", src.Repository(), err)
		}
		streams = append(streams, indexer.Stream{
			Folder:     staged.Dir,
			Extensions: in.ContentTypes,
			Metadata:   staged.Metadata(src),
		})
	}
	return streams, cleanup, nil
}
