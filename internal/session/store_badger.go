// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/avaldera/comercia/internal/models"
)

// Storage keys. Profile and token are two independent entries, but every
// write and clear touches both inside one transaction so no reader ever
// sees one without the other.
const (
	profileKey = "session:profile"
	tokenKey   = "session:token"
)

// BadgerStore implements Store using BadgerDB for durable storage.
// Sessions survive process restarts. The token entry is optionally
// encrypted at rest.
type BadgerStore struct {
	db  *badger.DB
	enc *TokenEncryptor
}

// NewBadgerStore creates a BadgerDB-backed session store.
// enc may be nil to store the token in the clear.
func NewBadgerStore(db *badger.DB, enc *TokenEncryptor) *BadgerStore {
	return &BadgerStore{db: db, enc: enc}
}

// OpenBadger opens (or creates) a Badger database at path with logging
// routed away from Badger's default logger.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store at %s: %w", path, err)
	}
	return db, nil
}

// Save persists the profile and token in one transaction.
func (s *BadgerStore) Save(_ context.Context, profile *models.UserProfile, token string) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	storedToken, err := s.enc.Encrypt(token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(profileKey), data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		if err := txn.Set([]byte(tokenKey), []byte(storedToken)); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		return nil
	})
}

// Load retrieves the persisted session. A session with either entry
// missing counts as absent.
func (s *BadgerStore) Load(_ context.Context) (*models.UserProfile, string, error) {
	var profile models.UserProfile
	var storedToken string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		}); err != nil {
			return fmt.Errorf("unmarshal profile: %w", err)
		}

		item, err = txn.Get([]byte(tokenKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		return item.Value(func(val []byte) error {
			storedToken = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.enc.Decrypt(storedToken)
	if err != nil {
		// An undecryptable token is an unusable session.
		return nil, "", fmt.Errorf("decrypt token: %w", err)
	}
	if token == "" {
		return nil, "", ErrNoSession
	}

	return &profile, token, nil
}

// Clear removes both entries in one transaction.
func (s *BadgerStore) Clear(_ context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(profileKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		if err := txn.Delete([]byte(tokenKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete token: %w", err)
		}
		return nil
	})
}
