// Package main provides the ingest CLI: documents in, vectors out.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/doc-ingest/internal/app"
	"github.com/bull/doc-ingest/internal/chunker"
	"github.com/bull/doc-ingest/internal/config"
	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/indexer"
	"github.com/bull/doc-ingest/internal/loader"
	"github.com/bull/doc-ingest/internal/metadata"
)

var (
	configPath string
	logLevel   string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "Document ingestion into a vector index",
	Long:          "Extracts text from documents, chunks it, embeds the chunks and upserts them into a vector index.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest every configured input stream",
	Long: `Loads the configuration, provisions the index and ingests every input stream.

This command:
1. Validates the configuration and credentials
2. Creates the index if it does not exist, or checks its dimension
3. Extracts, chunks and embeds each document
4. Upserts the chunk records into the configured namespace

Environment variables:
  PINECONE_API_KEY     Pinecone API key (vector_store: pinecone)
  PINECONE_HOST        Pinecone index host (optional)
  OPENAI_API_KEY       OpenAI API key (openai models, summarize)
  LOCAL_EMBEDDING_URL  Local inference server (pubmedbert)
  QDRANT_HOST          Qdrant hostname override (vector_store: qdrant)
  GITHUB_TOKEN         GitHub token for GitHub input streams (optional)`,
	RunE: runIngest,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without any I/O",
	RunE:  runValidate,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the supported embedding models",
	RunE:  runModels,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "use an in-memory vector store")

	rootCmd.AddCommand(runCmd, validateCmd, modelsCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("%w: --config is required", config.ErrInvalidConfig)
	}
	return config.Load(configPath)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Configuration OK: model %s, %d dimensions, %s index %q, namespace %q, %d input streams\n",
		cfg.EmbeddingModel, cfg.ResolvedDimension(), cfg.VectorStore, cfg.PineconeIndex,
		cfg.Namespace, len(cfg.InputStreams))
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	for _, key := range embedding.ModelKeys() {
		spec, _ := embedding.LookupModel(key)
		fmt.Printf("%-14s %-7s %5d  %s\n", key, spec.Backend, spec.Dimension, spec.Model)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	start := time.Now()
	logger := slog.Default()

	// 1. Configuration and credentials, before any vector store I/O
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dryRun {
		cfg.VectorStore = config.StoreMemory
	}
	if err := app.LoadEnvironment(cfg, logger); err != nil {
		return err
	}

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	embedder, err := app.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	var generator indexer.MetadataGenerator
	if cfg.Summarize {
		client, err := embedding.NewClient(embedding.ClientOptions{})
		if err != nil {
			return fmt.Errorf("%w: summarize: %w", config.ErrInvalidConfig, err)
		}
		generator = metadata.NewGenerator(client, logger)
	}

	// 2. Vector store and index provisioning
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := app.NewWriter(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	// 3. Input streams (GitHub streams are staged locally)
	streams, cleanup, err := app.Streams(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// 4. Ingest
	pipeline := indexer.NewPipeline(
		loader.New(app.NewExtractor(logger), logger),
		textChunker,
		embedder,
		writer,
		generator,
		cfg.Metadata,
		logger,
	)

	result, err := pipeline.IndexAll(ctx, streams)
	if result != nil {
		printSummary(result, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func printSummary(result *indexer.IndexResult, total time.Duration) {
	fmt.Println()
	fmt.Printf("Index: %s (namespace %s)\n", result.Index, result.Namespace)
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Records: %d\n", result.TotalRecords)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped files:")
		for _, s := range result.Skipped {
			fmt.Printf("  - %s: %s\n", s.Path, s.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", total.Round(time.Millisecond))
}
