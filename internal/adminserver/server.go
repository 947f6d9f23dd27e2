// Package adminserver exposes a small read-only HTTP surface for operating
// the adapter: Prometheus scraping, an aggregate health check, and a
// connected-client snapshot. It is optional (disabled by config) and, like
// every other long-running piece of the adapter, implements
// component.LifecycleComponent so cmd/shdr-adapter can run it under the
// same errgroup as the SHDR listener.
package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/health"
	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/metric"
)

// Config carries the admin server's bind address and port.
type Config struct {
	Bind string
	Port int
}

// Server is a component.LifecycleComponent wrapping a single *http.Server.
// Its Start method follows the adapter Listener's non-blocking pattern
// (bind, launch a goroutine, return) rather than metric.Server's blocking
// ListenAndServe, so it composes cleanly inside an errgroup alongside the
// SHDR listener.
type Server struct {
	cfg    Config
	logger *slog.Logger

	core     *adapter.Core
	registry *metric.MetricsRegistry
	monitor  *health.Monitor

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New constructs an admin Server over the adapter core it reports on and
// the metrics registry it scrapes from.
func New(cfg Config, core *adapter.Core, registry *metric.MetricsRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		logger:   logger.With("component", "admin-server"),
		core:     core,
		registry: registry,
		monitor:  health.NewMonitor(),
	}
}

// Initialize validates configuration.
func (s *Server) Initialize() error {
	if s.cfg.Port < 0 || s.cfg.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid admin port %d", s.cfg.Port), "admin-server", "Initialize", "port validation")
	}
	if s.core == nil {
		return errors.WrapInvalid(fmt.Errorf("nil adapter core"), "admin-server", "Initialize", "core validation")
	}
	return nil
}

// Start binds the admin HTTP listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := net.JoinHostPort(s.cfg.Bind, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "admin-server", "Start", "socket bind")
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/clients", s.handleClients)
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true}))
	}

	s.srv = &http.Server{Handler: mux}

	s.monitor.UpdateHealthy("listener", "accepting connections")

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin server exited", "error", err)
		}
	}()

	s.logger.Info("admin server started", "addr", addr)
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := s.monitor.AggregateHealth("shdr-adapter")
	status.Metrics = &health.Metrics{
		MessagesProcessed: int64(len(s.core.RegistryStats())),
		LastActivity:      time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	stats := s.core.RegistryStats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// Stop shuts down the HTTP server, bounded by timeout.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "admin-server", "Stop", "graceful shutdown")
	}
	return nil
}
