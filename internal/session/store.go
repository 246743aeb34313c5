// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package session owns the single source of truth for "who is logged in":
// the authenticated profile plus bearer token, cached in memory and
// persisted to durable storage. All mutation funnels through Login, Logout
// and CurrentUser; after any call completes, persisted storage and the
// in-memory cache agree or storage has been cleared.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/avaldera/comercia/internal/models"
)

// Session errors.
var (
	// ErrNoSession is returned by Store.Load when no complete session is
	// persisted. The profile and token are stored as two entries; if either
	// is missing the session counts as absent.
	ErrNoSession = errors.New("no persisted session")

	// ErrInvalidCredentials is returned by Login when the backend rejects
	// the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMalformedAuthResponse is returned by Login when the backend
	// reports success but the response carries no usable token.
	ErrMalformedAuthResponse = errors.New("malformed authentication response")
)

// Store is the durable storage backend for the session. Implementations
// must write and clear the profile and token atomically from the caller's
// perspective: Load never observes one without the other.
type Store interface {
	// Save persists the profile and token together.
	Save(ctx context.Context, profile *models.UserProfile, token string) error

	// Load retrieves the persisted session.
	// Returns ErrNoSession when no complete session exists.
	Load(ctx context.Context) (*models.UserProfile, string, error)

	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// TokenHolder hands the current bearer token to the gateway without
// creating an import cycle between gateway and session. The session cache
// is its only writer.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

// NewTokenHolder creates an empty token holder.
func NewTokenHolder() *TokenHolder {
	return &TokenHolder{}
}

// Token implements gateway.TokenSource.
func (h *TokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *TokenHolder) set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}
