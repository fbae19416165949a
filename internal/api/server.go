// Package api is the thin HTTP surface over the dashboard engine and
// the ingestion service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/domain-performance/internal/config"
	"github.com/ignite/domain-performance/internal/ingest"
	"github.com/ignite/domain-performance/internal/metrics"
	"github.com/ignite/domain-performance/internal/records"
	"github.com/ignite/domain-performance/internal/snapshot"
)

// Server is the HTTP server for the dashboard API.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer wires handlers and routes into a server.
func NewServer(cfg config.DashboardConfig, store *records.Store, svc *ingest.Service, snap snapshot.Store, mx *metrics.Metrics) *Server {
	handlers := NewHandlers(store, svc, snap, mx, cfg.DefaultTopN)
	return &Server{handler: SetupRoutes(handlers, cfg.CORSOrigins)}
}

// ListenAndServe starts serving on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// WriteTimeout is sized for /api/fetch, which waits on the
		// vendor's report queue.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      25 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
