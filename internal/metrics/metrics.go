// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package metrics provides Prometheus instrumentation for the client core:
// gateway request latency and outcomes, template cache efficiency, and
// session operations. Metrics are exposed by the ops listener at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway metrics
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comercia_gateway_requests_total",
			Help: "Total backend requests issued through the gateway",
		},
		[]string{"endpoint", "method", "outcome"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comercia_gateway_request_duration_seconds",
			Help:    "Duration of backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// Template cache metrics
	TemplateCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comercia_template_cache_hits_total",
			Help: "Template loads served from cache",
		},
	)

	TemplateCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comercia_template_cache_misses_total",
			Help: "Template loads that required a fetch",
		},
	)

	TemplateFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comercia_template_fetch_failures_total",
			Help: "Template fetches that failed on both primary and alternate paths",
		},
		[]string{"section"},
	)

	// Session metrics
	SessionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comercia_session_operations_total",
			Help: "Session lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Offline notices
	OfflineNotices = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comercia_offline_notices_total",
			Help: "Backend-unavailable notices surfaced to the user (deduplicated)",
		},
	)
)

// Outcome labels for GatewayRequestsTotal and SessionOperations.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeOffline = "offline"
)
