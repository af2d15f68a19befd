package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"composer/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// HealthReport is the /healthz payload.
type HealthReport struct {
	Status         string `json:"status"`
	Ready          bool   `json:"ready"`
	Revision       uint64 `json:"revision"`
	CatalogEntries int    `json:"catalogEntries"`
	PendingSources int    `json:"pendingSources"`
	SourceErrors   int    `json:"sourceErrors"`
}

// HealthFunc reports the current catalog health.
type HealthFunc func() HealthReport

type HTTPServerOptions struct {
	Addr          string
	EnableMetrics bool
	EnableHealthz bool
	Health        HealthFunc
	// Catalog, when set, is served as JSON on /catalog.
	Catalog  func() any
	Registry prometheus.Gatherer
}

// Server serves metrics, health and the resolved catalog over HTTP.
type Server struct {
	opts   HTTPServerOptions
	logger *zap.Logger
}

func NewServer(opts HTTPServerOptions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = domain.DefaultObservabilityListenAddress
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.DefaultGatherer
	}
	return &Server{opts: opts, logger: logger.Named("observability")}
}

// Enabled reports whether any endpoint is switched on.
func (s *Server) Enabled() bool {
	return s.opts.EnableMetrics || s.opts.EnableHealthz || s.opts.Catalog != nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	}
	if s.opts.EnableHealthz {
		mux.Handle("GET /healthz", healthHandler(s.opts.Health))
	}
	if s.opts.Catalog != nil {
		mux.Handle("GET /catalog", catalogHandler(s.opts.Catalog))
	}
	return mux
}

// Run listens on the configured address and serves until ctx is done. A
// server with no endpoints returns immediately.
func (s *Server) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("observability server failed to start: %w", err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()
	s.logger.Info("observability server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("metrics", s.opts.EnableMetrics),
		zap.Bool("healthz", s.opts.EnableHealthz),
		zap.Bool("catalog", s.opts.Catalog != nil),
	)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("observability server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("observability server shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("observability server stopped")
	return nil
}

// StartHTTPServer runs a Server until ctx is done.
func StartHTTPServer(ctx context.Context, opts HTTPServerOptions, logger *zap.Logger) error {
	return NewServer(opts, logger).Run(ctx)
}

func healthHandler(health HealthFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		report := HealthReport{Ready: true}
		if health != nil {
			report = health()
		}
		if report.Status == "" {
			report.Status = "loading"
			if report.Ready {
				report.Status = "ok"
			}
		}
		code := http.StatusOK
		if !report.Ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	})
}

func catalogHandler(catalog func() any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, catalog())
	})
}

func writeJSON(w http.ResponseWriter, code int, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(data, '\n'))
}
