// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package statusserver exposes a minimal, localhost-only HTTP surface for
// introspecting a running archive process: liveness, readiness, and the
// Prometheus metrics registered by internal/metrics. It is not the browsing
// UI and carries no
// authentication or public routing — it exists purely as the ambient
// observability surface every long-running pipeline in this codebase's
// lineage carries, enabled or disabled wholesale by [status] in
// config.toml (or by the --status-addr flag, which also enables it).
package statusserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/ytarchive/internal/logging"
)

// ReadyFunc reports whether the archive process is ready to serve a backup
// or update pass. A non-nil error is surfaced verbatim in the /readyz body.
type ReadyFunc func() error

// Config drives whether the surface is started at all, and where.
type Config struct {
	Enabled bool
	Addr    string // e.g. "127.0.0.1:9131"; empty disables even if Enabled
}

// Server is the status/health/metrics HTTP surface. It is safe to construct
// unconditionally; Start is the only operation that has an externally
// visible effect.
type Server struct {
	cfg   Config
	ready ReadyFunc
	http  *http.Server
	addr  string
}

// Addr returns the actually-bound listener address once Start has run; the
// empty string before Start or when the surface is disabled. Useful in
// tests that bind to port 0.
func (s *Server) Addr() string {
	return s.addr
}

// New builds a Server. ready is consulted on every /readyz request; pass a
// func that always returns nil if there is nothing meaningful to check yet.
func New(cfg Config, ready ReadyFunc) *Server {
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Server{cfg: cfg, ready: ready}
}

// router builds the Chi mux: /healthz and /readyz are generously
// rate-limited (monitoring should never be starved), /metrics is unlimited
// since it is typically scraped by a single local collector.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/healthz", s.handleLive)
		r.Get("/readyz", s.handleReady)
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if err := s.ready(); err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Start binds the listener and serves in a background goroutine. It returns
// immediately once the listener is bound, so a caller can log the resolved
// address (useful when Addr uses port 0 in tests). Start is a no-op,
// returning nil, when the surface is disabled or unconfigured.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled || s.cfg.Addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.http = &http.Server{Handler: s.router()}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Ctx(ctx).Error().Err(err).Msg("statusserver: serve failed")
		}
	}()
	logging.Ctx(ctx).Info().Str("addr", ln.Addr().String()).Msg("statusserver: listening")
	return nil
}

// Stop gracefully shuts down the server, if it was started.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
