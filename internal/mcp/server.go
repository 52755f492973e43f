package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/storage"
)

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]storage.Match, error)
	Describe(ctx context.Context) (*storage.IndexInfo, error)
	Health(ctx context.Context) error
	Index() string
	Namespace() string
}

var _ Searcher = (*storage.Searcher)(nil)

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	searcher Searcher
	embedder embedding.Embedder
	logger   *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Searcher Searcher
	Embedder embedding.Embedder
	Version  string
	Logger   *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "doc-ingest-search",
		Version: version,
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Semantic search over the ingested documents. Returns the best matching chunks with their text and source file.",
	}, makeSearchHandler(cfg.Searcher, cfg.Embedder, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the served vector index, namespace, dimension, embedding model and store health.",
	}, makeStatusHandler(cfg.Searcher, cfg.Embedder))

	return &Server{
		server:   server,
		searcher: cfg.Searcher,
		embedder: cfg.Embedder,
		logger:   logger,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
