// Package server provides the HTTP server hosting the quota gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/gateway/handlers"
	"tollgate-hq/tollgate/pkg/gateway/middleware"
	"tollgate-hq/tollgate/pkg/telemetry/metrics"
)

// Server hosts the gateway's HTTP endpoints with graceful shutdown.
type Server struct {
	config       config.ServerConfig
	service      handlers.Service
	store        handlers.Pinger
	metrics      *metrics.Collector
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New creates a server for the given router, counter store and metrics
// collector. metrics may be nil to skip the /metrics endpoint.
func New(cfg config.ServerConfig, service handlers.Service, store handlers.Pinger, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		service: service,
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

// routes assembles the handler tree and middleware chain. API endpoints
// require an identity; probes and metrics do not.
func (s *Server) routes() http.Handler {
	health := handlers.NewHealthHandler(s.store)

	api := http.NewServeMux()
	api.Handle("/v1/completions", handlers.NewCompletionsHandler(s.service, s.logger))
	api.Handle("/v1/quota", handlers.NewQuotaHandler(s.service))

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.Identity(api))
	mux.HandleFunc("/healthz", health.Live)
	mux.HandleFunc("/readyz", health.Ready)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}

// Start starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests within the configured timeout.
// Shutdown is idempotent.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.isRunning = false
		s.mu.Unlock()
		if srv == nil {
			return
		}

		s.logger.Info("shutting down gateway server",
			"timeout", s.config.ShutdownTimeout,
		)
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})
	return err
}

// Handler exposes the assembled handler tree for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
