package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tollgate-hq/tollgate/pkg/processing/tokens"
	"tollgate-hq/tollgate/pkg/providers"
	"tollgate-hq/tollgate/pkg/quota"
	"tollgate-hq/tollgate/pkg/selector"
	"tollgate-hq/tollgate/pkg/telemetry/metrics"
)

// Router drives a completion request through the full pipeline.
type Router struct {
	ledger    *quota.Ledger
	selector  *selector.Selector
	estimator tokens.Estimator
	provider  providers.Provider
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// RouterConfig configures a Router.
type RouterConfig struct {
	Ledger    *quota.Ledger
	Selector  *selector.Selector
	Estimator tokens.Estimator
	Provider  providers.Provider

	// Metrics may be nil; a nil collector records nothing.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewRouter creates a Router from its collaborators.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("router requires a quota ledger")
	}
	if cfg.Selector == nil {
		return nil, fmt.Errorf("router requires a tier selector")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("router requires a provider")
	}
	if cfg.Estimator == nil {
		cfg.Estimator = tokens.NewWordEstimator(0)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector(metrics.Config{Enabled: false}, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		ledger:    cfg.Ledger,
		selector:  cfg.Selector,
		estimator: cfg.Estimator,
		provider:  cfg.Provider,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// Complete runs one completion request for identity.
//
// Failure modes map onto the caller's error taxonomy: a
// *QuotaExceededError means the request was rejected before any
// downstream work, a counter store failure surfaces as an error wrapping
// counter.ErrUnavailable (deny, do not forward), and a *DownstreamError
// means the provider call itself failed after admission.
func (r *Router) Complete(ctx context.Context, identity string, req *ChatRequest) (*ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, ErrEmptyRequest
	}

	start := time.Now()
	estimate := r.estimator.EstimateMessages(req.Messages)

	decision, err := r.ledger.Admit(ctx, identity, estimate)
	if err != nil {
		r.metrics.RecordStoreError()
		r.metrics.RecordRequestDuration("error", time.Since(start))
		return nil, err
	}
	if !decision.Allowed {
		r.metrics.RecordAdmission(false, string(decision.Reason))
		r.metrics.RecordRequestDuration("rejected", time.Since(start))
		r.logger.Info("request rejected",
			"identity", identity,
			"dimension", decision.Reason,
			"estimated_tokens", estimate,
		)
		return nil, &QuotaExceededError{
			Dimension: decision.Reason,
			Usage:     decision.Usage,
			Limits:    decision.Limits,
		}
	}
	r.metrics.RecordAdmission(true, "")

	tier := r.selector.Select(ctx, identity, req.Model)
	r.metrics.RecordTierSelection(tier)

	resp, err := r.provider.SendCompletion(ctx, &providers.CompletionRequest{
		Model:       tier,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		// The admission already consumed request-count capacity; it is not
		// refunded. Token counters stay untouched.
		r.metrics.RecordRequestDuration("error", time.Since(start))
		r.logger.Error("provider call failed",
			"identity", identity,
			"tier", tier,
			"error", err,
		)
		return nil, &DownstreamError{Cause: err}
	}

	// Prefer the provider's reported usage; fall back to the pre-flight
	// estimate when the figure is absent.
	actual := resp.Usage.TotalTokens
	if actual <= 0 {
		actual = estimate
	}
	if err := r.ledger.Record(ctx, identity, actual); err != nil {
		// The response is already in hand; losing the token record is worth
		// a loud log line, not a failed request.
		r.metrics.RecordStoreError()
		r.logger.Error("usage record failed",
			"identity", identity,
			"tokens", actual,
			"error", err,
		)
	} else {
		r.metrics.RecordTokens(actual)
	}

	r.metrics.RecordRequestDuration("ok", time.Since(start))

	return &ChatResponse{
		ID:              resp.ID,
		Model:           tier,
		Content:         resp.Content,
		FinishReason:    resp.FinishReason,
		Usage:           resp.Usage,
		Created:         resp.Created,
		RemainingTokens: remainingTokens(decision, actual),
	}, nil
}

// Status returns the identity's current usage and effective limits.
func (r *Router) Status(ctx context.Context, identity string) (*QuotaStatus, error) {
	snap, err := r.ledger.Status(ctx, identity)
	if err != nil {
		r.metrics.RecordStoreError()
		return nil, err
	}
	return &QuotaStatus{
		Identity: identity,
		Usage:    snap.Usage,
		Limits:   snap.Limits,
	}, nil
}

// remainingTokens computes the identity's daily token headroom after this
// request, -1 when the dimension is disabled. The admission snapshot is
// the freshest consistent view we have; concurrent traffic may shift the
// true figure slightly.
func remainingTokens(decision *quota.Decision, actual int64) int64 {
	limit := decision.Limits.IdentityTPD
	if limit <= 0 {
		return -1
	}
	remaining := limit - decision.Usage.IdentityTPD - actual
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
