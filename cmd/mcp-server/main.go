// Package main provides the MCP server entry point for searching an ingested index.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/doc-ingest/internal/app"
	"github.com/bull/doc-ingest/internal/config"
	mcpserver "github.com/bull/doc-ingest/internal/mcp"
	"github.com/bull/doc-ingest/internal/storage"
)

func main() {
	// MCP stdio owns stdout; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	configPath := config.Getenv("INGEST_CONFIG")
	if configPath == "" {
		configPath = "ingest.yaml"
	}
	port := config.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := app.LoadEnvironment(cfg, logger); err != nil {
		return err
	}

	embedder, err := app.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	searcher := storage.NewSearcher(store, cfg.PineconeIndex, cfg.Namespace, cfg.ResolvedDimension())
	server := mcpserver.NewServer(&mcpserver.Config{
		Searcher: searcher,
		Embedder: embedder,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           mcpserver.NewMux(server, &mcpserver.HTTPHandlerOptions{Stateless: true}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	// SERVER_MODE=true serves MCP over HTTP; otherwise stdio with HTTP health in the background.
	if config.Getenv("SERVER_MODE") == "true" {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "index", searcher.Index(), "namespace", searcher.Namespace())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting search MCP server (stdio mode)", "index", searcher.Index(), "namespace", searcher.Namespace())
	return server.Run(ctx)
}
