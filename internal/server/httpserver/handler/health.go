package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. It fails when the session store is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrStorageUnavailable.Code, domain.ErrStorageUnavailable.Message)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
