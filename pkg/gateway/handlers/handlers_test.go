package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tollgate-hq/tollgate/pkg/counter"
	"tollgate-hq/tollgate/pkg/gateway"
	"tollgate-hq/tollgate/pkg/gateway/middleware"
	"tollgate-hq/tollgate/pkg/quota"
)

// fakeService returns canned router results.
type fakeService struct {
	resp      *gateway.ChatResponse
	status    *gateway.QuotaStatus
	err       error
	statusErr error
}

func (f *fakeService) Complete(ctx context.Context, identity string, req *gateway.ChatRequest) (*gateway.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeService) Status(ctx context.Context, identity string) (*gateway.QuotaStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func withIdentity(req *http.Request, identity string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, identity)
	return req.WithContext(ctx)
}

func postCompletion(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := withIdentity(httptest.NewRequest("POST", "/v1/completions", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCompletionsSuccess(t *testing.T) {
	svc := &fakeService{resp: &gateway.ChatResponse{
		ID:              "resp-1",
		Model:           "tollgate-large",
		Content:         "hello",
		RemainingTokens: 19913,
	}}
	h := NewCompletionsHandler(svc, nil)

	rec := postCompletion(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp gateway.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Content != "hello" || resp.RemainingTokens != 19913 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCompletionsMalformedBody(t *testing.T) {
	h := NewCompletionsHandler(&fakeService{}, nil)
	rec := postCompletion(t, h, `{"messages": [`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCompletionsQuotaExceeded(t *testing.T) {
	svc := &fakeService{err: &gateway.QuotaExceededError{
		Dimension: quota.DimensionIdentityTPD,
		Usage:     quota.Usage{IdentityTPD: 19950},
		Limits:    quota.LimitSet{IdentityTPD: 20000},
	}}
	h := NewCompletionsHandler(svc, nil)

	rec := postCompletion(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Error.Type != "quota_exceeded" {
		t.Errorf("expected quota_exceeded type, got %q", body.Error.Type)
	}
	if body.Error.Dimension != "identity_tpd" {
		t.Errorf("expected identity_tpd dimension, got %q", body.Error.Dimension)
	}
}

func TestCompletionsStoreUnavailable(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("admit: %w", counter.ErrUnavailable)}
	h := NewCompletionsHandler(svc, nil)

	rec := postCompletion(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestCompletionsDownstreamFailed(t *testing.T) {
	svc := &fakeService{err: &gateway.DownstreamError{Cause: fmt.Errorf("boom")}}
	h := NewCompletionsHandler(svc, nil)

	rec := postCompletion(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestCompletionsEmptyRequest(t *testing.T) {
	svc := &fakeService{err: gateway.ErrEmptyRequest}
	h := NewCompletionsHandler(svc, nil)

	rec := postCompletion(t, h, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCompletionsMethodNotAllowed(t *testing.T) {
	h := NewCompletionsHandler(&fakeService{}, nil)
	req := withIdentity(httptest.NewRequest("GET", "/v1/completions", nil), "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestQuotaStatus(t *testing.T) {
	svc := &fakeService{status: &gateway.QuotaStatus{
		Identity: "u1",
		Usage:    quota.Usage{IdentityTPD: 87},
		Limits:   quota.LimitSet{IdentityTPD: 20000},
	}}
	h := NewQuotaHandler(svc)

	req := withIdentity(httptest.NewRequest("GET", "/v1/quota", nil), "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status gateway.QuotaStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if status.Usage.IdentityTPD != 87 {
		t.Errorf("unexpected usage: %+v", status.Usage)
	}
}

func TestQuotaStatusStoreUnavailable(t *testing.T) {
	svc := &fakeService{statusErr: fmt.Errorf("status: %w", counter.ErrUnavailable)}
	h := NewQuotaHandler(svc)

	req := withIdentity(httptest.NewRequest("GET", "/v1/quota", nil), "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(&fakePinger{})
	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	h := NewHealthHandler(&fakePinger{})
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthReadyStoreDown(t *testing.T) {
	h := NewHealthHandler(&fakePinger{err: counter.ErrUnavailable})
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
