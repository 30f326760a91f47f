package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"tollgate-hq/tollgate/pkg/providers"
)

const providerName = "openai"

// Provider is an adapter for OpenAI-compatible chat-completion APIs.
type Provider struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// Ensure Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

// NewProvider creates a new OpenAI-compatible provider adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.BaseURL == "" {
		return nil, &providers.ProviderError{
			Provider: providerName,
			Message:  "base URL is required",
		}
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// wireRequest is the OpenAI chat-completion request body.
type wireRequest struct {
	Model       string              `json:"model"`
	Messages    []providers.Message `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// wireResponse is the OpenAI chat-completion response body.
type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// SendCompletion sends a chat-completion request, retrying transient
// failures up to MaxRetries times with linear backoff.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	body, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, &providers.ProviderError{
			Provider: providerName,
			Message:  "failed to encode request",
			Cause:    err,
		}
	}

	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		resp, err := p.send(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *Provider) send(ctx context.Context, body []byte) (*providers.CompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &providers.ProviderError{Provider: providerName, Message: "failed to build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &providers.ProviderError{Provider: providerName, Message: "request failed", Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, &providers.ProviderError{Provider: providerName, Message: "failed to read response", Cause: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.statusError(httpResp, respBody)
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, &providers.ParseError{Provider: providerName, Cause: err}
	}
	if wire.Error != nil {
		return nil, &providers.ProviderError{Provider: providerName, Message: wire.Error.Message}
	}
	if len(wire.Choices) == 0 {
		return nil, &providers.ParseError{
			Provider: providerName,
			Cause:    fmt.Errorf("response contains no choices"),
		}
	}

	resp := &providers.CompletionResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		Content:      wire.Choices[0].Message.Content,
		FinishReason: wire.Choices[0].FinishReason,
		Created:      wire.Created,
	}
	// Usage is optional on the wire; a zero TotalTokens tells the router to
	// fall back to its estimate.
	if wire.Usage != nil {
		resp.Usage = providers.TokenUsage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// statusError maps a non-200 response to a typed provider error.
func (p *Provider) statusError(resp *http.Response, body []byte) error {
	msg := string(body)
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != nil {
		msg = wire.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &providers.AuthError{Provider: providerName, Message: msg}
	case http.StatusTooManyRequests:
		var retryAfter time.Duration
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &providers.RateLimitError{Provider: providerName, RetryAfter: retryAfter, Message: msg}
	default:
		return &providers.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	}
}

// isRetryable reports whether an error is worth retrying: transport
// failures and 5xx responses are, everything else is not.
func isRetryable(err error) bool {
	if pe, ok := err.(*providers.ProviderError); ok {
		return pe.StatusCode == 0 || pe.StatusCode >= 500
	}
	return false
}

// HealthCheck verifies the endpoint answers the models listing.
func (p *Provider) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &providers.ProviderError{Provider: providerName, Message: "health check failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &providers.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "health check failed",
		}
	}
	return nil
}

// Close releases idle HTTP connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
