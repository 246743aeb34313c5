// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package main is the entry point for the Comercia companion daemon.
//
// Comercia fronts a Spanish-language storefront REST backend with a typed
// client core: a request gateway that maps logical endpoints to physical
// routes and normalizes every failure, a persisted login session, a cached
// set of admin panel templates, and facades over the products, orders,
// users and cart resources. The daemon keeps the template cache warm,
// notices server-side session invalidation, and exposes a local ops
// listener with health, status and Prometheus metrics.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered defaults, config.yaml, COMERCIA_* env
//  2. Logging: zerolog, json or console
//  3. Session store: BadgerDB when storage.path is set, in-memory otherwise
//  4. Gateway: HTTP client for the backend with bearer auth and timeouts
//  5. Session cache: restore a persisted login if one survives
//  6. Template cache and resource facades
//  7. Supervisor tree: template warmer and session refresher
//  8. Ops listener: /healthz, /metrics, /api/v1/status
//
// # Signal handling
//
// SIGINT and SIGTERM shut the daemon down gracefully: workers stop, the
// ops listener drains, and the session store closes last.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/avaldera/comercia/internal/authz"
	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/notify"
	"github.com/avaldera/comercia/internal/ops"
	"github.com/avaldera/comercia/internal/services"
	"github.com/avaldera/comercia/internal/session"
	"github.com/avaldera/comercia/internal/templates"
	"github.com/avaldera/comercia/internal/worker"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("backend", cfg.Backend.URL).
		Msg("Starting Comercia")

	// Session store: durable when a path is configured.
	var store session.Store
	if cfg.Storage.Path != "" {
		encryptor, err := session.NewTokenEncryptor(cfg.Storage.EncryptionKey)
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid session encryption key")
		}
		db, err := session.OpenBadger(cfg.Storage.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open session store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing session store")
			}
		}()
		store = session.NewBadgerStore(db, encryptor)
		logging.Info().Str("path", cfg.Storage.Path).
			Bool("encrypted", encryptor != nil).
			Msg("Durable session store ready")
	} else {
		store = session.NewMemoryStore()
		logging.Info().Msg("In-memory session store (no storage.path configured)")
	}

	holder := session.NewTokenHolder()
	gw := gateway.New(&cfg.Backend,
		gateway.WithTokenSource(holder),
		gateway.WithNotifier(notify.NewDeduped(notify.LogNotifier{}, 0)),
	)

	sessions := session.New(gw, store, holder)
	tmpl := templates.New(&cfg.Templates)
	svcs := services.New(gw)

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build authorization enforcer")
	}
	defer enforcer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup reachability check. A failure here is not fatal: the catalog read
	// absorbs it and the offline notice explains what is going on.
	checkCtx, cancelCheck := context.WithTimeout(ctx, cfg.Backend.Timeout)
	if catalog, err := svcs.Products.List(checkCtx); err == nil {
		logging.Info().Int("products", len(catalog)).Msg("Backend reachable")
	}
	cancelCheck()

	warmGate := func(ctx context.Context) bool {
		user, err := sessions.CurrentUser(ctx, false)
		return err == nil && enforcer.CanManage(user, "templates")
	}
	sup := worker.NewSupervisor(&cfg.Warmer, tmpl, sessions, warmGate)
	workerErr := sup.ServeBackground(ctx)

	var opsServer *ops.Server
	opsErr := make(chan error, 1)
	if cfg.Ops.Enabled {
		opsServer = ops.New(&cfg.Ops, version, sessions, tmpl)
		go func() { opsErr <- opsServer.ListenAndServe() }()
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-workerErr:
		if err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("Supervisor tree stopped")
		}
	case err := <-opsErr:
		if err != nil {
			logging.Error().Err(err).Msg("Ops listener failed")
		}
	}

	stop()
	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Ops listener shutdown failed")
		}
	}

	logging.Info().Msg("Comercia stopped")
}
