package middleware

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"

	// IdentityKey is the context key for the caller identity.
	IdentityKey contextKey = "identity"
)

// GetRequestID returns the request ID from the context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetIdentity returns the caller identity from the context, or "" if
// absent.
func GetIdentity(ctx context.Context) string {
	id, _ := ctx.Value(IdentityKey).(string)
	return id
}
