package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tollgate-hq/tollgate/pkg/gateway"
)

// Service is the slice of the router the handlers need.
type Service interface {
	Complete(ctx context.Context, identity string, req *gateway.ChatRequest) (*gateway.ChatResponse, error)
	Status(ctx context.Context, identity string) (*gateway.QuotaStatus, error)
}

// errorBody is the JSON error envelope for all failure responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	// Type is a stable machine-readable error category.
	Type string `json:"type"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Dimension names the tripped limit for quota rejections.
	Dimension string `json:"dimension,omitempty"`

	// Usage and Limits are included for quota rejections so callers can
	// see how far over they are.
	Usage  any `json:"usage,omitempty"`
	Limits any `json:"limits,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Type: errType, Message: message}})
}
