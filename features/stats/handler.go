// Package stats exposes a small operational snapshot of the index and the
// watched folder.
package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type VectorStore interface {
	Count() int
	Initialized() bool
}

type FolderMonitor interface {
	TrackedCount() int
}

type Handler struct {
	store   VectorStore
	monitor FolderMonitor
}

func NewHandler(store VectorStore, monitor FolderMonitor) *Handler {
	return &Handler{store: store, monitor: monitor}
}

type StatsResponse struct {
	Documents        int  `json:"documents"`
	StoreInitialized bool `json:"store_initialized"`
	WatchedFiles     int  `json:"watched_files"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Documents:        h.store.Count(),
		StoreInitialized: h.store.Initialized(),
		WatchedFiles:     h.monitor.TrackedCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
