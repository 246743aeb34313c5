// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package worker runs the supervised background services: the template
// warmer, which keeps admin section fragments fresh, and the session
// refresher, which notices server-side token invalidation between user
// actions. Both are suture services restarted on failure.
package worker

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/session"
	"github.com/avaldera/comercia/internal/templates"
)

// Supervisor owns the background services.
type Supervisor struct {
	root *suture.Supervisor
}

// NewSupervisor builds the supervisor tree from configuration. A nil or
// disabled config yields a tree with no services; Serve then just waits
// for cancellation. warmGate, when non-nil, is consulted before each warm
// cycle; a false return skips the cycle (the admin fragments are useless
// without an admin session).
func NewSupervisor(cfg *config.WarmerConfig, tc *templates.Cache, sc *session.Cache, warmGate func(context.Context) bool) *Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	root := suture.New("comercia-workers", suture.Spec{
		EventHook: handler.MustHook(),
	})

	if cfg != nil && cfg.Enabled {
		root.Add(&templateWarmer{
			cache:    tc,
			sections: cfg.Sections,
			interval: cfg.Interval,
			gate:     warmGate,
		})
		root.Add(&sessionRefresher{
			sessions: sc,
			interval: cfg.SessionRefreshInterval,
		})
	}

	return &Supervisor{root: root}
}

// Serve runs the tree until the context is canceled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine; the returned channel
// yields the terminal error.
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}

// templateWarmer preloads the configured admin sections on an interval
// so a stale fragment is refreshed before anyone opens the panel.
type templateWarmer struct {
	cache    *templates.Cache
	sections []string
	interval time.Duration
	gate     func(context.Context) bool
}

func (w *templateWarmer) Serve(ctx context.Context) error {
	interval := w.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	// Warm immediately on startup, then on the interval.
	w.warm(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *templateWarmer) warm(ctx context.Context) {
	if w.gate != nil && !w.gate(ctx) {
		logging.Debug().Msg("Template warm cycle skipped; no session with template access")
		return
	}
	w.cache.Preload(ctx, w.sections...)
	logging.Debug().Strs("sections", w.sections).Msg("Template warm cycle complete")
}

func (w *templateWarmer) String() string { return "template-warmer" }

// sessionRefresher force-refreshes the current profile on an interval.
// A token the server has invalidated is noticed here and the session
// cleared, instead of surfacing as a surprise 401 on the next action.
type sessionRefresher struct {
	sessions *session.Cache
	interval time.Duration
}

func (r *sessionRefresher) Serve(ctx context.Context) error {
	interval := r.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.sessions.IsAuthenticated(ctx) {
				continue
			}
			if _, err := r.sessions.CurrentUser(ctx, true); err != nil {
				logging.Debug().Err(err).Msg("Session refresh failed; will retry next cycle")
			}
		}
	}
}

func (r *sessionRefresher) String() string { return "session-refresher" }
