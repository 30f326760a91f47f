package handlers

import (
	"errors"
	"net/http"

	"tollgate-hq/tollgate/pkg/counter"
	"tollgate-hq/tollgate/pkg/gateway/middleware"
)

// QuotaHandler serves GET /v1/quota: the caller's current usage and
// effective limits, with no side effects on any counter.
type QuotaHandler struct {
	service Service
}

// NewQuotaHandler creates the quota status endpoint handler.
func NewQuotaHandler(service Service) *QuotaHandler {
	return &QuotaHandler{service: service}
}

// ServeHTTP implements http.Handler.
func (h *QuotaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	identity := middleware.GetIdentity(r.Context())
	status, err := h.service.Status(r.Context(), identity)
	if err != nil {
		if errors.Is(err, counter.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable",
				"quota state unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
