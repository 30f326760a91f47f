package providers

import "context"

// Provider is the interface completion adapters implement.
//
// Implementations must respect context cancellation and return promptly when
// the context is cancelled. Retries and timeouts live inside the adapter;
// callers see one call, one outcome.
type Provider interface {
	// SendCompletion sends a completion request and returns the normalized
	// response. Returns an error if the request fails after the adapter's
	// own retries.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources (HTTP connections etc.).
	Close() error
}
