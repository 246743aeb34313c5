// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package ops serves the local operational endpoints: liveness, Prometheus
// metrics and a status summary. The listener binds to loopback by default
// and carries no authentication; it is not part of the storefront surface.
package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avaldera/comercia/internal/cache"
	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/session"
)

// Status is the payload of /api/v1/status.
type Status struct {
	Version       string      `json:"version"`
	Uptime        string      `json:"uptime"`
	Authenticated bool        `json:"authenticated"`
	TemplateCache cache.Stats `json:"template_cache"`
}

// StatsSource reports template cache counters for the status endpoint.
type StatsSource interface {
	Stats() cache.Stats
}

// Server is the ops HTTP listener.
type Server struct {
	http    *http.Server
	version string
	started time.Time

	sessions  *session.Cache
	templates StatsSource
}

// New creates the ops server. sessions and templates may be nil; the
// corresponding status fields then stay at their zero values.
func New(cfg *config.OpsConfig, version string, sessions *session.Cache, templates StatsSource) *Server {
	s := &Server{
		version:   version,
		started:   time.Now(),
		sessions:  sessions,
		templates: templates,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/status", s.handleStatus)

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe runs the listener until Shutdown. A closed listener is
// not reported as an error.
func (s *Server) ListenAndServe() error {
	logging.Info().Str("addr", s.http.Addr).Msg("Ops listener started")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Version: s.version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.sessions != nil {
		status.Authenticated = s.sessions.IsAuthenticated(r.Context())
	}
	if s.templates != nil {
		status.TemplateCache = s.templates.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Debug().Err(err).Msg("Failed to write status response")
	}
}
