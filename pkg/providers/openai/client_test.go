package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tollgate-hq/tollgate/pkg/providers"
)

func testConfig(url string) providers.ProviderConfig {
	return providers.ProviderConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}
}

func completionJSON(totalTokens int64) string {
	return `{
		"id": "chatcmpl-123",
		"model": "tollgate-large",
		"created": 1700000000,
		"choices": [{"message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 30, "total_tokens": ` + jsonInt(totalTokens) + `}
	}`
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSendCompletion(t *testing.T) {
	var gotAuth string
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "tollgate-large" {
			t.Errorf("expected model tollgate-large, got %q", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON(42)))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("expected /chat/completions path, got %q", gotPath)
	}
	if resp.Content != "hello there" {
		t.Errorf("expected content %q, got %q", "hello there", resp.Content)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Errorf("expected 42 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", resp.FinishReason)
	}
}

func TestSendCompletionMissingUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-456",
			"model": "tollgate-small",
			"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-small",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if resp.Usage.TotalTokens != 0 {
		t.Errorf("expected zero total tokens when usage absent, got %d", resp.Usage.TotalTokens)
	}
}

func TestSendCompletionAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth"}}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	_, err = p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if authErr.Message != "invalid api key" {
		t.Errorf("expected upstream message, got %q", authErr.Message)
	}
}

func TestSendCompletionRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	_, err = p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	var rateErr *providers.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rateErr.RetryAfter != 30*time.Second {
		t.Errorf("expected 30s retry-after, got %s", rateErr.RetryAfter)
	}
}

func TestSendCompletionRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionJSON(10)))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("expected 10 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSendCompletionDoesNotRetryAuthError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	_, err = p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", calls.Load())
	}
}

func TestSendCompletionEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "x", "model": "m", "choices": []}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	_, err = p.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:    "tollgate-large",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})
	var parseErr *providers.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestNewProviderRequiresBaseURL(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{APIKey: "k"})
	if err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	defer p.Close()

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
