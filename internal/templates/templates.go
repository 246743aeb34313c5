// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package templates caches the HTML fragments that make up the admin
// panel's sections. Fragments are fetched over HTTP from a primary and an
// alternate location and held for a freshness window; a section that
// cannot be fetched renders as an inline error fragment rather than
// failing the caller. Load never returns an error.
package templates

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avaldera/comercia/internal/cache"
	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/metrics"
)

// DefaultTTL is the fragment freshness window when none is configured.
const DefaultTTL = 30 * time.Minute

// maxFragmentSize bounds how much of a fragment response is read.
const maxFragmentSize = 2 << 20 // 2MB

// errorRetryWindow is how long an error fragment is served before the
// source is tried again. Short, so a recovered source is picked up
// quickly while a broken one is not hammered.
const errorRetryWindow = 15 * time.Second

// sectionFiles maps logical admin section names to fragment filenames.
// Sections not listed here fall back to "<section>.html".
var sectionFiles = map[string]string{
	"inventario": "inventario.html",
	"pedidos":    "gestion-pedidos.html",
	"usuarios":   "gestion-usuarios.html",
}

// Fragment is one cached admin section.
type Fragment struct {
	// Section is the logical section name the fragment was loaded for.
	Section string

	// HTML is the fragment markup. For a failed fetch this is the inline
	// error markup, never empty.
	HTML string

	// Err records why the fetch failed. Nil for a healthy fragment.
	Err error

	// FetchedAt is when the fragment was retrieved.
	FetchedAt time.Time
}

// Cache fetches and caches admin section fragments. Safe for concurrent
// use.
type Cache struct {
	baseURL string
	altURL  string
	ttl     time.Duration
	client  *http.Client
	store   *cache.Cache

	// single-flight per section so a cold section is fetched once even
	// under concurrent Load calls
	mu       sync.Mutex
	inflight map[string]*sync.WaitGroup

	now func() time.Time
}

// New creates a fragment cache from configuration.
func New(cfg *config.TemplatesConfig) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Cache{
		baseURL:  cfg.BaseURL,
		altURL:   cfg.AltBaseURL,
		ttl:      ttl,
		client:   &http.Client{Timeout: timeout},
		store:    cache.New(ttl),
		inflight: make(map[string]*sync.WaitGroup),
		now:      time.Now,
	}
}

// Load returns the fragment for a section, fetching it when the cached
// copy is missing or stale. Load never returns an error: a failed fetch
// yields a fragment whose HTML is inline error markup naming the section,
// with Err set so callers can distinguish it.
func (c *Cache) Load(ctx context.Context, section string) *Fragment {
	for {
		if v, ok := c.store.Get(sectionKey(section)); ok {
			frag := v.(*Fragment)
			if c.fresh(frag) {
				metrics.TemplateCacheHits.Inc()
				return frag
			}
			c.store.Delete(sectionKey(section))
		}

		c.mu.Lock()
		if wg, ok := c.inflight[section]; ok {
			c.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		c.inflight[section] = wg
		c.mu.Unlock()

		metrics.TemplateCacheMisses.Inc()
		frag := c.fetch(ctx, section)
		c.store.Set(sectionKey(section), frag)

		c.mu.Lock()
		delete(c.inflight, section)
		c.mu.Unlock()
		wg.Done()

		return frag
	}
}

// Invalidate drops the cached fragment for one section.
func (c *Cache) Invalidate(section string) {
	c.store.Delete(sectionKey(section))
}

// InvalidateAll drops every cached fragment.
func (c *Cache) InvalidateAll() {
	c.store.Clear()
}

// Preload fetches the given sections concurrently, warming the cache.
// Failures are absorbed into error fragments exactly as in Load.
func (c *Cache) Preload(ctx context.Context, sections ...string) {
	var wg sync.WaitGroup
	for _, section := range sections {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			c.Load(ctx, s)
		}(section)
	}
	wg.Wait()
}

// Stats exposes the underlying cache counters.
func (c *Cache) Stats() cache.Stats {
	return c.store.GetStats()
}

// fresh reports whether a cached fragment may still be served. Healthy
// fragments live for the full TTL, error fragments only for the retry
// window. The decision runs on the cache's own clock so freshness is
// testable without waiting.
func (c *Cache) fresh(frag *Fragment) bool {
	age := c.now().Sub(frag.FetchedAt)
	if frag.Err != nil {
		return age < errorRetryWindow
	}
	return age < c.ttl
}

// fetch retrieves a section fragment, trying the primary location and
// then the alternate. It always returns a usable fragment.
func (c *Cache) fetch(ctx context.Context, section string) *Fragment {
	filename, ok := sectionFiles[section]
	if !ok {
		filename = section + ".html"
	}

	urls := []string{c.baseURL + "/" + filename}
	if c.altURL != "" {
		urls = append(urls, c.altURL+"/"+filename)
	}

	var lastErr error
	for _, u := range urls {
		markup, err := c.fetchOne(ctx, u)
		if err != nil {
			lastErr = err
			logging.Debug().Err(err).Str("section", section).Str("url", u).
				Msg("Template fetch attempt failed")
			continue
		}
		return &Fragment{
			Section:   section,
			HTML:      markup,
			FetchedAt: c.now(),
		}
	}

	metrics.TemplateFetchFailures.WithLabelValues(section).Inc()
	logging.Warn().Err(lastErr).Str("section", section).
		Msg("Template unavailable from all locations")
	return &Fragment{
		Section:   section,
		HTML:      errorMarkup(section),
		Err:       fmt.Errorf("load template %q: %w", section, lastErr),
		FetchedAt: c.now(),
	}
}

func (c *Cache) fetchOne(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFragmentSize))
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("fetch %s: empty fragment", url)
	}
	return string(body), nil
}

// errorMarkup builds the inline fallback shown when a section cannot be
// loaded. It names the section and carries a retry control so the user is
// never left with a blank panel.
func errorMarkup(section string) string {
	name := html.EscapeString(section)
	return fmt.Sprintf(`<div class="seccion-error" data-section=%q>`+
		`<p>No se pudo cargar la sección «%s».</p>`+
		`<button type="button" class="reintentar" data-retry=%q>Reintentar</button>`+
		`</div>`, name, name, name)
}

func sectionKey(section string) string {
	return "template:" + section
}
