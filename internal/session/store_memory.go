// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package session

import (
	"context"
	"sync"

	"github.com/avaldera/comercia/internal/models"
)

// MemoryStore implements Store without persistence. It is the default when
// no storage path is configured, and the workhorse for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	profile *models.UserProfile
	token   string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores the profile and token.
func (s *MemoryStore) Save(_ context.Context, profile *models.UserProfile, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *profile
	s.profile = &copied
	s.token = token
	return nil
}

// Load retrieves the stored session, or ErrNoSession.
func (s *MemoryStore) Load(_ context.Context) (*models.UserProfile, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil || s.token == "" {
		return nil, "", ErrNoSession
	}
	copied := *s.profile
	return &copied, s.token, nil
}

// Clear removes the stored session.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
	s.token = ""
	return nil
}
