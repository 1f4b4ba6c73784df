package handler

import (
	"net/http"

	"github.com/sostenible-social/marketplace-chat/internal/cache"
	"github.com/sostenible-social/marketplace-chat/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store store.Store
	cache cache.Cache
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(st store.Store, c cache.Cache) *HealthHandler {
	return &HealthHandler{
		store: st,
		cache: c,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store not reachable",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "cache not reachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
