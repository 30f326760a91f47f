package grants

import "time"

// Grant is a time-bounded token allowance for a single identity.
type Grant struct {
	// ID is the unique grant identifier.
	ID string `json:"id"`

	// Identity is the API key or account the grant applies to.
	Identity string `json:"identity"`

	// Product labels the origin of the grant (plan name, promo code, ...).
	Product string `json:"product,omitempty"`

	// Tokens is the number of daily tokens the grant adds on top of the
	// base identity limit.
	Tokens int64 `json:"tokens"`

	// CreatedAt is when the grant was issued.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the grant stops counting. A zero value means the
	// grant never expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the grant has lapsed at the given instant.
func (g *Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && !now.Before(g.ExpiresAt)
}
