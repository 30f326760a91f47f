package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Identity extracts the caller identity from the request and stores it in
// the context. The identity is the API key carried either as a bearer
// token or in the X-API-Key header. Requests without one are rejected
// with 401 before reaching any handler.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := extractIdentity(r)
		if identity == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"type":    "unauthorized",
					"message": "missing API key",
				},
			})
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractIdentity(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
