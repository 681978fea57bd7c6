// Package api assembles the HTTP surface: the conversational agent entry
// point, the data passthrough routes, stats, health probes and metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	agentapi "pythia/internal/api/agent"
	"pythia/internal/api/health"
	polymarketapi "pythia/internal/api/polymarket"
	statsapi "pythia/internal/api/stats"
	"pythia/internal/metrics"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Handlers are the route groups mounted on the server. Agent may be nil
// when no AI provider is configured; the other groups are always present.
type Handlers struct {
	Agent      *agentapi.Handler
	Polymarket *polymarketapi.Handler
	Stats      *statsapi.Handler
	Health     *health.Handler
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures the HTTP server with all routes.
func NewServer(cfg ServerConfig, h Handlers, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.HandleHealth)
	mux.HandleFunc("GET /ready", h.Health.HandleReadiness)
	mux.HandleFunc("GET /live", h.Health.HandleLiveness)
	mux.Handle("GET /metrics", metrics.Handler())

	if h.Agent != nil {
		h.Agent.Register(mux)
	}
	h.Polymarket.Register(mux)
	h.Stats.Register(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	log.Infof("HTTP server configured on %s", cfg.Addr)

	httpServer := &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Conversational answers wait on the model; the write timeout has
		// to outlast the 60s planner budget plus enrichment.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	s.log.Info("HTTP server stopped")
	return nil
}
