package providers

import "time"

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int64 `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int64 `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int64 `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier; the router fills it with the tier
	// chosen by the model selector.
	Model string `json:"model"`

	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	// ID is the unique response identifier
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text content
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length, ...)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption when the provider reports it;
	// Usage.TotalTokens == 0 means the figure was absent.
	Usage TokenUsage `json:"usage"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`
}

// ProviderConfig contains configuration for a provider adapter.
type ProviderConfig struct {
	// BaseURL is the base URL for the provider's API endpoint.
	BaseURL string

	// APIKey is the authentication key for the provider.
	APIKey string

	// Timeout is the maximum duration for requests to this provider.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient
	// failures.
	MaxRetries int
}
