package gateway

import (
	"tollgate-hq/tollgate/pkg/providers"
	"tollgate-hq/tollgate/pkg/quota"
)

// ChatRequest is the caller-facing completion request.
type ChatRequest struct {
	// Model optionally names a preferred tier. The selector may override
	// it under load; leave empty for the default tier.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history.
	Messages []providers.Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0).
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ChatResponse is the caller-facing completion response. It carries the
// tier that actually served the request and the identity's remaining
// daily token quota after reconciliation.
type ChatResponse struct {
	ID           string               `json:"id"`
	Model        string               `json:"model"`
	Content      string               `json:"content"`
	FinishReason string               `json:"finish_reason"`
	Usage        providers.TokenUsage `json:"usage"`
	Created      int64                `json:"created"`

	// RemainingTokens is the identity's remaining daily token allowance,
	// -1 when the dimension is disabled.
	RemainingTokens int64 `json:"remaining_tokens"`
}

// QuotaStatus is the response body for the quota status endpoint.
type QuotaStatus struct {
	Identity string         `json:"identity"`
	Usage    quota.Usage    `json:"usage"`
	Limits   quota.LimitSet `json:"limits"`
}
