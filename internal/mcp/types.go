// Package mcp exposes the ingested vector index to MCP clients.
package mcp

// SearchChunksInput defines the input parameters for the search_chunks tool.
type SearchChunksInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of chunks to return (1-20, default 5)"`
	// MinScore is the minimum relevance threshold.
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score; results below it are dropped"`
}

// SearchChunksOutput contains the search results.
type SearchChunksOutput struct {
	// Results is the list of matching chunks, best first.
	Results []ChunkResult `json:"results"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// ChunkResult represents a single chunk match from semantic search.
type ChunkResult struct {
	// ID is the record id ({source}_{ordinal}).
	ID string `json:"id"`
	// Score is the similarity score under the index metric.
	Score float64 `json:"score"`
	// Filename is the source file of the chunk.
	Filename string `json:"filename,omitempty"`
	// Text is the stored chunk text.
	Text string `json:"text"`
	// Summary is the LLM-generated document summary, when ingested with summaries.
	Summary string `json:"summary,omitempty"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput describes the served index.
type StatusOutput struct {
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric,omitempty"`
	Model     string `json:"model"`
	Healthy   bool   `json:"healthy"`
	Warning   string `json:"warning,omitempty"`
}
