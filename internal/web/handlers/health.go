package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports whether the database answers a ping
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	resp := map[string]any{
		"status":  "ok",
		"version": h.versionInfo.Version,
	}
	if h.feed != nil {
		resp["subscribers"] = h.feed.Subscribers()
	}
	h.jsonResponse(w, http.StatusOK, resp)
}
