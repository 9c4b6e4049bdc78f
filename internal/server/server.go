// Package server exposes the matcher over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/filtering"
)

const (
	defaultListen       = ":8000"
	defaultMaxBodyBytes = 1 << 20
	shutdownTimeout     = 10 * time.Second
)

// Config controls the HTTP API.
type Config struct {
	Listen       string           `mapstructure:"listen"`
	MaxBodyBytes int64            `mapstructure:"max-body-bytes"`
	Filters      filtering.Config `mapstructure:"filters"`
}

type Server struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics
	handler http.Handler
}

// New builds the server and its routes. Metrics go to a dedicated registry.
func New(cfg Config, logger *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: newMetrics(reg),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/", s.handleRoot)
	r.Post("/match", s.handleMatch)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.handler = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
