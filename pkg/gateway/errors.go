package gateway

import (
	"errors"
	"fmt"

	"tollgate-hq/tollgate/pkg/quota"
)

// ErrEmptyRequest is returned for requests with no messages.
var ErrEmptyRequest = errors.New("request contains no messages")

// QuotaExceededError is returned when admission rejects a request. It
// names the exact dimension that tripped so callers can tell a burst
// rejection from an exhausted daily budget.
type QuotaExceededError struct {
	Dimension quota.Dimension
	Usage     quota.Usage
	Limits    quota.LimitSet
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded on dimension %s", e.Dimension)
}

// DownstreamError is returned when the provider call fails after the
// request was admitted. Request-count capacity consumed by the admission
// is not refunded.
type DownstreamError struct {
	Cause error
}

// Error implements the error interface.
func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream call failed: %v", e.Cause)
}

// Unwrap returns the underlying provider error.
func (e *DownstreamError) Unwrap() error {
	return e.Cause
}
