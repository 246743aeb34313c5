// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/metrics"
	"github.com/avaldera/comercia/internal/models"
)

// Credentials are the login inputs.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration are the account-creation inputs.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// authWire mirrors the login response across backend generations: the
// token arrives under "token" or "accessToken", and the profile under
// "user" or "usuario" when the backend includes it at all.
type authWire struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	User        json.RawMessage `json:"user"`
	Usuario     json.RawMessage `json:"usuario"`
}

func (w *authWire) token() string {
	if w.Token != "" {
		return w.Token
	}
	return w.AccessToken
}

func (w *authWire) user() json.RawMessage {
	if len(w.User) > 0 && string(w.User) != "null" {
		return w.User
	}
	if len(w.Usuario) > 0 && string(w.Usuario) != "null" {
		return w.Usuario
	}
	return nil
}

// Cache is the in-memory session state backed by a durable Store. All
// methods are safe for concurrent use.
type Cache struct {
	gw     *gateway.Gateway
	store  Store
	holder *TokenHolder

	mu       sync.Mutex
	profile  *models.UserProfile
	restored bool // durable store already consulted once

	now func() time.Time
}

// New creates a session cache. The holder must be the same one the
// gateway was built with, so that token changes reach outgoing requests.
func New(gw *gateway.Gateway, store Store, holder *TokenHolder) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		gw:     gw,
		store:  store,
		holder: holder,
		now:    time.Now,
	}
}

// Login authenticates against the backend and persists the session.
// Returns ErrInvalidCredentials on rejection and ErrMalformedAuthResponse
// when the backend reports success without a token. If persisting fails,
// all session state is cleared and the error is returned: a half-saved
// session is never left behind.
func (c *Cache) Login(ctx context.Context, creds Credentials) (*models.UserProfile, error) {
	res, err := c.gw.Send(ctx, gateway.Descriptor{
		Endpoint: "auth/login",
		Method:   "POST",
		Body:     creds,
	})
	if err != nil {
		metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
		if apiErr, ok := gateway.AsAPIError(err); ok && (apiErr.Status == 401 || apiErr.Status == 403) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var wire authWire
	if err := res.Decode(&wire); err != nil {
		metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedAuthResponse, err)
	}
	token := wire.token()
	if token == "" {
		metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
		return nil, ErrMalformedAuthResponse
	}

	c.holder.set(token)

	var profile *models.UserProfile
	if raw := wire.user(); raw != nil {
		profile = &models.UserProfile{}
		if err := json.Unmarshal(raw, profile); err != nil {
			c.clearAll(ctx)
			metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
			return nil, fmt.Errorf("%w: %v", ErrMalformedAuthResponse, err)
		}
	} else {
		// Older backends return only the token; fetch the profile with it.
		profile, err = c.fetchProfile(ctx)
		if err != nil {
			c.clearAll(ctx)
			metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
			return nil, err
		}
	}

	if err := c.store.Save(ctx, profile, token); err != nil {
		c.clearAll(ctx)
		metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("persist session: %w", err)
	}

	c.mu.Lock()
	c.profile = profile
	c.restored = true
	c.mu.Unlock()

	metrics.SessionOperations.WithLabelValues("login", metrics.OutcomeSuccess).Inc()
	logging.Info().
		Int64("user_id", profile.ID).
		Str("role", string(profile.Role)).
		Msg("Session established")
	return profile, nil
}

// Register creates an account and logs the new user in with the returned
// token, following the same persistence path as Login.
func (c *Cache) Register(ctx context.Context, reg Registration) (*models.UserProfile, error) {
	res, err := c.gw.Send(ctx, gateway.Descriptor{
		Endpoint: "auth/registro",
		Method:   "POST",
		Body:     reg,
	})
	if err != nil {
		metrics.SessionOperations.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, err
	}

	var wire authWire
	if err := res.Decode(&wire); err != nil {
		metrics.SessionOperations.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedAuthResponse, err)
	}
	if wire.token() == "" {
		// Some backends register without issuing a token; the caller logs
		// in separately.
		metrics.SessionOperations.WithLabelValues("register", metrics.OutcomeSuccess).Inc()
		return nil, nil
	}
	return c.Login(ctx, Credentials{Email: reg.Email, Password: reg.Password})
}

// Logout ends the session. The backend call is best-effort: local and
// persisted state are cleared unconditionally, and Logout returns nil
// even when the server cannot be reached.
func (c *Cache) Logout(ctx context.Context) error {
	if c.holder.Token() != "" {
		if _, err := c.gw.Send(ctx, gateway.Descriptor{
			Endpoint: "auth/logout",
			Method:   "POST",
		}); err != nil {
			logging.Debug().Err(err).Msg("Server-side logout failed; clearing local session anyway")
		}
	}
	c.clearAll(ctx)
	metrics.SessionOperations.WithLabelValues("logout", metrics.OutcomeSuccess).Inc()
	return nil
}

// CurrentUser returns the authenticated profile, or (nil, nil) when no
// one is logged in. The lookup order is memory, then the durable store
// (once per process, discarding sessions whose token has expired), then a
// backend fetch when force is true. A 401 from the backend clears the
// session and reports logged-out rather than failing.
func (c *Cache) CurrentUser(ctx context.Context, force bool) (*models.UserProfile, error) {
	c.mu.Lock()
	if c.profile != nil && !force {
		p := c.profile
		c.mu.Unlock()
		return p, nil
	}
	needRestore := !c.restored
	c.mu.Unlock()

	if needRestore {
		c.restore(ctx)
		c.mu.Lock()
		if c.profile != nil && !force {
			p := c.profile
			c.mu.Unlock()
			return p, nil
		}
		c.mu.Unlock()
	}

	if c.holder.Token() == "" {
		return nil, nil
	}
	if !force {
		c.mu.Lock()
		p := c.profile
		c.mu.Unlock()
		return p, nil
	}

	profile, err := c.fetchProfile(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			c.clearAll(ctx)
			metrics.SessionOperations.WithLabelValues("refresh", metrics.OutcomeError).Inc()
			return nil, nil
		}
		return nil, err
	}

	if err := c.store.Save(ctx, profile, c.holder.Token()); err != nil {
		c.clearAll(ctx)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()

	metrics.SessionOperations.WithLabelValues("refresh", metrics.OutcomeSuccess).Inc()
	return profile, nil
}

// IsAuthenticated reports whether a session token is held, consulting
// the durable store once so a persisted login is visible right after a
// restart.
func (c *Cache) IsAuthenticated(ctx context.Context) bool {
	c.restore(ctx)
	return c.holder.Token() != ""
}

// IsAdmin reports whether the current profile carries the admin role. It
// never hits the network; call CurrentUser first when freshness matters.
func (c *Cache) IsAdmin(ctx context.Context) bool {
	c.restore(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.IsAdmin()
}

// restore loads a persisted session into memory, at most once per
// process. Sessions whose JWT has already expired are discarded so that
// startup does not resurrect a dead login.
func (c *Cache) restore(ctx context.Context) {
	c.mu.Lock()
	if c.restored {
		c.mu.Unlock()
		return
	}
	c.restored = true
	c.mu.Unlock()

	profile, token, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			logging.Warn().Err(err).Msg("Failed to restore persisted session")
		}
		return
	}
	if tokenExpired(token, c.now()) {
		logging.Debug().Msg("Discarding persisted session with expired token")
		c.clearAll(ctx)
		return
	}

	c.holder.set(token)
	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()
	logging.Debug().Int64("user_id", profile.ID).Msg("Session restored from storage")
}

// fetchProfile retrieves the authenticated profile from the backend.
func (c *Cache) fetchProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.gw.Get(ctx, "auth/perfil", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// clearAll wipes the token, memory cache and durable store. Store errors
// are logged, not propagated: clearing must always appear to succeed.
func (c *Cache) clearAll(ctx context.Context) {
	c.holder.set("")
	c.mu.Lock()
	c.profile = nil
	c.restored = true
	c.mu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear persisted session")
	}
}
