package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It returns 200 only when the store is reachable and the served index exists.
func NewHealthHandler(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "unhealthy",
			Store:     "disconnected",
			Index:     searcher.Index(),
			Namespace: searcher.Namespace(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusServiceUnavailable

		if err := searcher.Health(ctx); err == nil {
			response.Store = "connected"
			if info, err := searcher.Describe(ctx); err == nil {
				response.Status = "healthy"
				response.Dimension = info.Dimension
				status = http.StatusOK
			} else {
				response.Store = "index missing"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
