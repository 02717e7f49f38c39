package handlers

import (
	"net/http"

	"github.com/ternarybob/reperio/internal/common"
)

// HealthHandler responds to liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler reports the build version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
	})
}

// NotFoundHandler is the fallback for unknown paths.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
}
