package quota

// Dimension names one limit dimension for rejection reporting. Rejections
// always carry the specific dimension that tripped, never a generic reason.
type Dimension string

const (
	// DimensionGlobalRPM is the shared requests-per-minute ceiling.
	DimensionGlobalRPM Dimension = "global_rpm"

	// DimensionGlobalRPD is the shared requests-per-day ceiling.
	DimensionGlobalRPD Dimension = "global_rpd"

	// DimensionGlobalTPM is the shared tokens-per-minute ceiling.
	DimensionGlobalTPM Dimension = "global_tpm"

	// DimensionGlobalTPD is the shared tokens-per-day ceiling.
	DimensionGlobalTPD Dimension = "global_tpd"

	// DimensionIdentityRPD is the per-identity requests-per-day ceiling.
	DimensionIdentityRPD Dimension = "identity_rpd"

	// DimensionIdentityTPD is the per-identity tokens-per-day ceiling.
	DimensionIdentityTPD Dimension = "identity_tpd"
)

// GlobalLimits holds the ceilings shared across all identities.
// A zero or negative value disables that dimension.
type GlobalLimits struct {
	// RPM is the requests-per-minute ceiling.
	RPM int64 `yaml:"rpm" json:"rpm"`

	// RPD is the requests-per-day ceiling.
	RPD int64 `yaml:"rpd" json:"rpd"`

	// TPM is the tokens-per-minute ceiling.
	TPM int64 `yaml:"tpm" json:"tpm"`

	// TPD is the tokens-per-day ceiling.
	TPD int64 `yaml:"tpd" json:"tpd"`
}

// IdentityLimits holds the per-identity ceilings.
// A zero or negative value disables that dimension.
type IdentityLimits struct {
	// RPD is the requests-per-day ceiling for one identity.
	RPD int64 `yaml:"rpd" json:"rpd"`

	// TPD is the tokens-per-day ceiling for one identity.
	TPD int64 `yaml:"tpd" json:"tpd"`
}

// Usage is a point-in-time snapshot of the six counters relevant to one
// identity. It is recomputed on every check, never persisted.
type Usage struct {
	RPM         int64 `json:"rpm"`
	RPD         int64 `json:"rpd"`
	TPM         int64 `json:"tpm"`
	TPD         int64 `json:"tpd"`
	IdentityRPD int64 `json:"identityRpd"`
	IdentityTPD int64 `json:"identityTpd"`
}

// LimitSet mirrors Usage with the effective ceilings, for caller-facing
// remaining-quota reporting. IdentityTPD includes any grant allowance.
type LimitSet struct {
	RPM         int64 `json:"rpm"`
	RPD         int64 `json:"rpd"`
	TPM         int64 `json:"tpm"`
	TPD         int64 `json:"tpd"`
	IdentityRPD int64 `json:"identityRpd"`
	IdentityTPD int64 `json:"identityTpd"`
}

// Decision is the structured outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Reason names the dimension that tripped when Allowed is false.
	Reason Dimension `json:"reason,omitempty"`

	// Usage is the admission-time snapshot, including the +1 adjustments
	// for the request counters this call incremented.
	Usage Usage `json:"usage"`

	// Limits are the effective ceilings at admission time.
	Limits LimitSet `json:"limits"`
}

// Snapshot is the read-only status result, with no side effects.
type Snapshot struct {
	Usage  Usage    `json:"usage"`
	Limits LimitSet `json:"limits"`
}
