// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

/*
gateway.go - Backend Request Gateway

Single chokepoint for all network I/O against the storefront backend.
Every resource facade and the session cache issue requests through here.

Responsibilities:
  - Logical endpoint resolution via a static prefix table (endpoints.go)
  - Bearer token attachment from an injected TokenSource
  - JSON body serialization and response decoding (goccy/go-json)
  - Per-request deadline (default 10s) surfaced as ErrTimeout
  - Error normalization into the taxonomy in errors.go
  - One-shot deduplicated offline notice on connection failure
  - Optional client-side rate limiting (golang.org/x/time/rate)

There is deliberately no retry policy: a failed request is reported once and
the caller decides whether the user re-triggers the action.
*/
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/metrics"
	"github.com/avaldera/comercia/internal/notify"
)

// maxErrorBodySize bounds how much of an error response body is retained.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxBodySize bounds how much of a success response body is read.
const maxBodySize = 8 << 20 // 8MB

// DefaultTimeout is the per-request deadline when none is configured.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the current bearer token, or "" when no session
// exists. The session cache implements this; the indirection avoids an
// import cycle between gateway and session.
type TokenSource interface {
	Token() string
}

// Descriptor describes one backend request in logical terms.
type Descriptor struct {
	// Endpoint is the logical resource path, e.g. "productos/destacados".
	// It is resolved to a physical path through the prefix table.
	Endpoint string

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Body is serialized to JSON when non-nil.
	Body interface{}

	// Header holds extra request headers. A caller-provided Authorization
	// header suppresses the automatic bearer token.
	Header http.Header

	// Query holds URL query parameters.
	Query url.Values
}

// Gateway mediates all HTTP traffic to the storefront backend.
// Safe for concurrent use.
type Gateway struct {
	baseURL    string
	namespace  string
	timeout    time.Duration
	client     *http.Client
	tokens     TokenSource
	notifier   notify.Notifier
	limiter    *rate.Limiter
	instanceID string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTokenSource sets the bearer token supplier.
func WithTokenSource(ts TokenSource) Option {
	return func(g *Gateway) { g.tokens = ts }
}

// WithNotifier sets the receiver for offline notices.
func WithNotifier(n notify.Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// New creates a gateway for the configured backend.
func New(cfg *config.BackendConfig, opts ...Option) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	g := &Gateway{
		baseURL:    cfg.URL,
		namespace:  cfg.Namespace,
		timeout:    timeout,
		client:     &http.Client{},
		notifier:   notify.NewDeduped(notify.LogNotifier{}, notify.DefaultWindow),
		instanceID: uuid.NewString(),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is a normalized 2xx response.
type Result struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the response Content-Type header value.
	ContentType string

	body   []byte
	isJSON bool
}

// IsJSON reports whether the backend declared a JSON body.
func (r *Result) IsJSON() bool { return r.isJSON }

// Text returns the raw response body as a string.
func (r *Result) Text() string { return string(r.body) }

// Decode unmarshals a JSON body into out. A 204 or empty body leaves out
// untouched. Decoding a non-JSON body is an error; use Object or Text.
func (r *Result) Decode(out interface{}) error {
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if !r.isJSON {
		return fmt.Errorf("response is not JSON (content-type %q)", r.ContentType)
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Object returns the response as a generic object: an empty map for a 204
// or empty body, the decoded object for JSON, and {"raw": text} for
// anything else.
func (r *Result) Object() (map[string]interface{}, error) {
	if len(r.body) == 0 {
		return map[string]interface{}{}, nil
	}
	if !r.isJSON {
		return map[string]interface{}{"raw": string(r.body)}, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(r.body, &obj); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}
	return obj, nil
}

// Send resolves, issues, and normalizes one backend request.
//
// Outcomes:
//   - 2xx: (*Result, nil); 204 yields a Result that decodes as an empty object
//   - non-2xx: (nil, *APIError)
//   - no connection: (nil, ErrNetworkUnavailable) plus one offline notice
//   - deadline exceeded: (nil, ErrTimeout)
func (g *Gateway) Send(ctx context.Context, d Descriptor) (*Result, error) {
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}
	path := g.resolveEndpoint(d.Endpoint)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var bodyReader io.Reader = http.NoBody
	if d.Body != nil {
		payload, err := json.Marshal(d.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	reqURL := g.baseURL + path
	if len(d.Query) > 0 {
		reqURL += "?" + d.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range d.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Authorization") == "" && g.tokens != nil {
		if token := g.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Client-Instance", g.instanceID)

	segment := endpointSegment(d.Endpoint)
	start := time.Now()
	resp, err := g.client.Do(req)
	duration := time.Since(start)
	metrics.GatewayRequestDuration.WithLabelValues(segment, method).Observe(duration.Seconds())

	if err != nil {
		return nil, g.normalizeTransportError(err, segment, method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		metrics.GatewayRequestsTotal.WithLabelValues(segment, method, metrics.OutcomeError).Inc()
		apiErr := newAPIError(resp.StatusCode, resp.Status, body)
		logging.Debug().
			Str("endpoint", d.Endpoint).
			Str("method", method).
			Int("status", resp.StatusCode).
			Msg("backend request failed")
		return nil, apiErr
	}

	metrics.GatewayRequestsTotal.WithLabelValues(segment, method, metrics.OutcomeSuccess).Inc()

	if resp.StatusCode == http.StatusNoContent {
		return &Result{Status: resp.StatusCode, isJSON: true}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	return &Result{
		Status:      resp.StatusCode,
		ContentType: contentType,
		body:        body,
		isJSON:      strings.Contains(contentType, "application/json"),
	}, nil
}

// normalizeTransportError maps http.Client errors onto the gateway taxonomy.
func (g *Gateway) normalizeTransportError(err error, segment, method, path string) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", method, path, context.Canceled)
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		metrics.GatewayRequestsTotal.WithLabelValues(segment, method, metrics.OutcomeTimeout).Inc()
		return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
	}

	metrics.GatewayRequestsTotal.WithLabelValues(segment, method, metrics.OutcomeOffline).Inc()
	if g.notifier != nil {
		g.notifier.BackendUnavailable("No hay conexión con el servidor. Inténtalo de nuevo en unos minutos.")
	}
	return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetworkUnavailable, err)
}

// isTimeout reports whether the transport error was a timeout.
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// endpointSegment returns the first path segment of a logical endpoint,
// used as a bounded metric label.
func endpointSegment(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	if idx := strings.Index(endpoint, "/"); idx > 0 {
		return endpoint[:idx]
	}
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}

// Get issues a GET to the logical endpoint and decodes the response into out.
func (g *Gateway) Get(ctx context.Context, endpoint string, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodGet}, out)
}

// GetQuery issues a GET with query parameters.
func (g *Gateway) GetQuery(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodGet, Query: query}, out)
}

// Post issues a POST with a JSON body.
func (g *Gateway) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodPost, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (g *Gateway) Put(ctx context.Context, endpoint string, body, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodPut, Body: body}, out)
}

// Patch issues a PATCH with a JSON body.
func (g *Gateway) Patch(ctx context.Context, endpoint string, body, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodPatch, Body: body}, out)
}

// Delete issues a DELETE to the logical endpoint.
func (g *Gateway) Delete(ctx context.Context, endpoint string, out interface{}) error {
	return g.do(ctx, Descriptor{Endpoint: endpoint, Method: http.MethodDelete}, out)
}

func (g *Gateway) do(ctx context.Context, d Descriptor, out interface{}) error {
	res, err := g.Send(ctx, d)
	if err != nil {
		return err
	}
	return res.Decode(out)
}
