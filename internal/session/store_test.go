// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package session

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/avaldera/comercia/internal/models"
)

func testProfile() *models.UserProfile {
	return &models.UserProfile{
		ID:    7,
		Name:  "Lucía Fernández",
		Email: "lucia@example.com",
		Role:  models.RoleAdmin,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load on empty store = %v, want ErrNoSession", err)
	}

	if err := store.Save(ctx, testProfile(), "tok-123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	profile, token, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if profile.Email != "lucia@example.com" || token != "tok-123" {
		t.Errorf("Load = (%q, %q), want (lucia@example.com, tok-123)", profile.Email, token)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load after Clear = %v, want ErrNoSession", err)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := OpenBadger(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer db.Close()

	store := NewBadgerStore(db, nil)

	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load on empty store = %v, want ErrNoSession", err)
	}

	if err := store.Save(ctx, testProfile(), "tok-456"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	profile, token, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if profile.ID != 7 || profile.Role != models.RoleAdmin || token != "tok-456" {
		t.Errorf("Load = (id=%d role=%q, %q), want (id=7 role=admin, tok-456)",
			profile.ID, profile.Role, token)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load after Clear = %v, want ErrNoSession", err)
	}
}

func TestBadgerStoreEncryptsTokenAtRest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	enc, err := NewTokenEncryptor(key)
	if err != nil {
		t.Fatalf("NewTokenEncryptor failed: %v", err)
	}

	db, err := OpenBadger(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer db.Close()

	store := NewBadgerStore(db, enc)
	if err := store.Save(ctx, testProfile(), "secret-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The decrypted round trip still works.
	_, token, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "secret-token" {
		t.Errorf("Load token = %q, want secret-token", token)
	}

	// A store without the encryptor sees only ciphertext.
	plain := NewBadgerStore(db, nil)
	_, raw, err := plain.Load(ctx)
	if err != nil {
		t.Fatalf("plain Load failed: %v", err)
	}
	if raw == "secret-token" {
		t.Error("token stored in plaintext despite encryptor")
	}
}

func TestTokenEncryptorRejectsTampering(t *testing.T) {
	t.Parallel()

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	enc, err := NewTokenEncryptor(key)
	if err != nil {
		t.Fatalf("NewTokenEncryptor failed: %v", err)
	}

	sealed, err := enc.Encrypt("hello")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	tampered := sealed[:len(sealed)-2] + "xx"
	if _, err := enc.Decrypt(tampered); err == nil {
		t.Error("Decrypt accepted tampered ciphertext")
	}
}
