package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled toggles metric collection. Disabled collectors record nothing.
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus namespace for all metrics.
	// Default: "tollgate"
	Namespace string `yaml:"namespace"`
}

// Collector registers and records the gateway's Prometheus metrics.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	admissions      *prometheus.CounterVec
	tokensRecorded  prometheus.Counter
	tierSelections  *prometheus.CounterVec
	storeErrors     prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a metrics collector on the given registry. If
// registry is nil a fresh one is created.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "tollgate"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "admissions_total",
			Help:      "Admission decisions by outcome and tripped dimension.",
		}, []string{"outcome", "dimension"}),
		tokensRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tokens_recorded_total",
			Help:      "Actual tokens recorded after completed downstream calls.",
		}),
		tierSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tier_selections_total",
			Help:      "Model tier selections by tier.",
		}, []string{"tier"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "store_errors_total",
			Help:      "Counter store failures observed by the gateway.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end completion request duration.",
			// LLM latencies run from sub-second to tens of seconds
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"status"}),
	}

	if cfg.Enabled {
		registry.MustRegister(
			c.admissions,
			c.tokensRecorded,
			c.tierSelections,
			c.storeErrors,
			c.requestDuration,
		)
	}

	return c
}

// RecordAdmission records an admission decision. dimension is empty for
// allowed requests.
func (c *Collector) RecordAdmission(allowed bool, dimension string) {
	if !c.config.Enabled {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	c.admissions.WithLabelValues(outcome, dimension).Inc()
}

// RecordTokens records actual token consumption after a downstream call.
func (c *Collector) RecordTokens(tokens int64) {
	if !c.config.Enabled || tokens <= 0 {
		return
	}
	c.tokensRecorded.Add(float64(tokens))
}

// RecordTierSelection records which model tier served a request.
func (c *Collector) RecordTierSelection(tier string) {
	if !c.config.Enabled {
		return
	}
	c.tierSelections.WithLabelValues(tier).Inc()
}

// RecordStoreError records a counter store failure.
func (c *Collector) RecordStoreError() {
	if !c.config.Enabled {
		return
	}
	c.storeErrors.Inc()
}

// RecordRequestDuration records the end-to-end duration of a completion
// request with its terminal status ("ok", "rejected", "error").
func (c *Collector) RecordRequestDuration(status string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
