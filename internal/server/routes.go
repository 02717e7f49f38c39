package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/reperio/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/api/version", handlers.VersionHandler)

	// Batch upload; everything under the trailing slash is per-batch.
	mux.HandleFunc("/api/v1/scraping-batch", s.app.BatchHandler.Upload)
	mux.HandleFunc("/api/v1/scraping-batch/", s.handleBatchRoutes)

	return mux
}

// handleBatchRoutes dispatches /api/v1/scraping-batch/{batchId}[/segment]
func (s *Server) handleBatchRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/scraping-batch/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)

	batchID := parts[0]
	if batchID == "" {
		handlers.NotFoundHandler(w, r)
		return
	}

	if len(parts) == 1 {
		s.app.BatchHandler.Status(w, r, batchID)
		return
	}

	switch parts[1] {
	case "export":
		s.app.BatchHandler.Export(w, r, batchID)
	case "results":
		s.app.BatchHandler.Results(w, r, batchID)
	case "stream":
		s.app.StreamHandler.Stream(w, r, batchID)
	default:
		handlers.NotFoundHandler(w, r)
	}
}
