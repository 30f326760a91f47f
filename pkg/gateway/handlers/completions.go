package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tollgate-hq/tollgate/pkg/counter"
	"tollgate-hq/tollgate/pkg/gateway"
	"tollgate-hq/tollgate/pkg/gateway/middleware"
)

// CompletionsHandler serves POST /v1/completions.
type CompletionsHandler struct {
	service Service
	logger  *slog.Logger
}

// NewCompletionsHandler creates the completions endpoint handler.
func NewCompletionsHandler(service Service, logger *slog.Logger) *CompletionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionsHandler{service: service, logger: logger}
}

// ServeHTTP implements http.Handler.
//
// Status mapping: 400 for malformed or empty requests, 429 when a quota
// dimension trips, 503 when the counter store is unreachable (the gate
// fails closed), 502 when the downstream provider call fails.
func (h *CompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req gateway.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	identity := middleware.GetIdentity(r.Context())
	resp, err := h.service.Complete(r.Context(), identity, &req)
	if err != nil {
		h.writeCompletionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CompletionsHandler) writeCompletionError(w http.ResponseWriter, r *http.Request, err error) {
	var quotaErr *gateway.QuotaExceededError
	var downstreamErr *gateway.DownstreamError

	switch {
	case errors.Is(err, gateway.ErrEmptyRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", "request contains no messages")

	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
			Type:      "quota_exceeded",
			Message:   quotaErr.Error(),
			Dimension: string(quotaErr.Dimension),
			Usage:     quotaErr.Usage,
			Limits:    quotaErr.Limits,
		}})

	case errors.Is(err, counter.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable",
			"quota state unavailable, request denied")

	case errors.As(err, &downstreamErr):
		writeError(w, http.StatusBadGateway, "downstream_failed",
			"provider call failed")

	default:
		h.logger.Error("unhandled completion error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
