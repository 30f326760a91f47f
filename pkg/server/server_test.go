package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/counter"
	"tollgate-hq/tollgate/pkg/gateway"
	"tollgate-hq/tollgate/pkg/providers"
	"tollgate-hq/tollgate/pkg/quota"
	"tollgate-hq/tollgate/pkg/selector"
	"tollgate-hq/tollgate/pkg/telemetry/metrics"
)

// stubProvider answers every completion with a fixed response.
type stubProvider struct{}

func (stubProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return &providers.CompletionResponse{
		ID:           "resp-1",
		Model:        req.Model,
		Content:      "ok",
		FinishReason: "stop",
		Usage:        providers.TokenUsage{TotalTokens: 42},
	}, nil
}

func (stubProvider) HealthCheck(ctx context.Context) error { return nil }
func (stubProvider) Close() error                          { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := counter.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	ledger := quota.NewLedger(store, quota.Config{
		Global:   quota.GlobalLimits{RPM: 30, RPD: 14400, TPM: 6000, TPD: 500000},
		Identity: quota.IdentityLimits{RPD: 50, TPD: 20000},
	})
	sel := selector.New(ledger, selector.Config{
		PrimaryTier:  "tollgate-large",
		DegradedTier: "tollgate-small",
	})
	router, err := gateway.NewRouter(gateway.RouterConfig{
		Ledger:   ledger,
		Selector: sel,
		Provider: stubProvider{},
	})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	collector := metrics.NewCollector(metrics.Config{Enabled: true}, prometheus.NewRegistry())
	cfg := config.ServerConfig{
		ListenAddress:   ":0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}
	return New(cfg, router, store, collector, nil)
}

func TestCompletionEndToEnd(t *testing.T) {
	handler := newTestServer(t).Handler()

	body := `{"messages":[{"role":"user","content":"summarize this report"}]}`
	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp gateway.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Model != "tollgate-large" {
		t.Errorf("expected primary tier, got %q", resp.Model)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Errorf("expected 42 tokens, got %d", resp.Usage.TotalTokens)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request ID header")
	}
}

func TestCompletionRequiresIdentity(t *testing.T) {
	handler := newTestServer(t).Handler()

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestQuotaEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest("GET", "/v1/quota", nil)
	req.Header.Set("X-API-Key", "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var status gateway.QuotaStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if status.Identity != "u1" {
		t.Errorf("unexpected identity %q", status.Identity)
	}
	if status.Limits.IdentityTPD != 20000 {
		t.Errorf("unexpected limits: %+v", status.Limits)
	}
}

func TestProbesNeedNoIdentity(t *testing.T) {
	handler := newTestServer(t).Handler()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	// Drive one request through so counters exist.
	body := `{"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer u1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tollgate_admissions_total") {
		t.Error("expected admission metrics in scrape output")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Shutdown(); err != nil {
		t.Errorf("shutdown before start should be a no-op: %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		t.Errorf("second shutdown should be a no-op: %v", err)
	}
}
