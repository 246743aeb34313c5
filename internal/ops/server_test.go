// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package ops

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/avaldera/comercia/internal/cache"
	"github.com/avaldera/comercia/internal/config"
)

type fakeStats struct{ stats cache.Stats }

func (f fakeStats) Stats() cache.Stats { return f.stats }

func testOpsConfig() *config.OpsConfig {
	return &config.OpsConfig{
		Enabled:         true,
		Host:            "127.0.0.1",
		Port:            0,
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := New(testOpsConfig(), "test", nil, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("healthz body = %q", rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	src := fakeStats{stats: cache.Stats{Hits: 12, Misses: 3}}
	s := New(testOpsConfig(), "1.2.3", nil, src)

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", status.Version)
	}
	if status.TemplateCache.Hits != 12 || status.TemplateCache.Misses != 3 {
		t.Errorf("template cache stats = %+v", status.TemplateCache)
	}
	if status.Authenticated {
		t.Error("authenticated = true without a session cache")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := New(testOpsConfig(), "test", nil, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}
