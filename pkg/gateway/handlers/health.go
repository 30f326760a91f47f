package handlers

import (
	"context"
	"net/http"
)

// Pinger reports whether a dependency is reachable. The counter store
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes. Liveness always
// succeeds while the process runs; readiness checks the counter store
// since the gate fails closed without it.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Live serves GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready serves GET /readyz.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "counter store unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
