// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avaldera/comercia/internal/config"
	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/models"
)

func newTestCache(t *testing.T, handler http.Handler) (*Cache, *MemoryStore, *TokenHolder) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	holder := NewTokenHolder()
	gw := gateway.New(&config.BackendConfig{
		URL:       srv.URL,
		Namespace: "/api",
		Timeout:   5 * time.Second,
	}, gateway.WithTokenSource(holder))

	store := NewMemoryStore()
	return New(gw, store, holder), store, holder
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestLoginNormalizesRoleAndPersists(t *testing.T) {
	t.Parallel()

	cache, store, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"accessToken": "tok-abc",
			"usuario": {"id": 7, "nombre": "Lucía", "correo": "lucia@example.com", "rol": "ROLE_ADMIN"}
		}`))
	}))

	profile, err := cache.Login(context.Background(), Credentials{Email: "lucia@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want admin", profile.Role)
	}
	if profile.Name != "Lucía" || profile.Email != "lucia@example.com" {
		t.Errorf("profile = %+v, not normalized", profile)
	}
	if holder.Token() != "tok-abc" {
		t.Errorf("holder token = %q, want tok-abc", holder.Token())
	}

	stored, token, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("store.Load failed: %v", err)
	}
	if stored.ID != 7 || token != "tok-abc" {
		t.Errorf("persisted session = (id=%d, %q), want (7, tok-abc)", stored.ID, token)
	}
	if !cache.IsAuthenticated(context.Background()) || !cache.IsAdmin(context.Background()) {
		t.Error("expected authenticated admin session")
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	t.Parallel()

	cache, _, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"mensaje": "Credenciales inválidas"}`))
	}))

	_, err := cache.Login(context.Background(), Credentials{Email: "x@example.com", Password: "bad"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login = %v, want ErrInvalidCredentials", err)
	}
	if holder.Token() != "" {
		t.Error("token set after rejected login")
	}
}

func TestLoginMissingToken(t *testing.T) {
	t.Parallel()

	cache, _, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"usuario": {"id": 1, "nombre": "X", "correo": "x@example.com"}}`))
	}))

	_, err := cache.Login(context.Background(), Credentials{Email: "x@example.com", Password: "pw"})
	if !errors.Is(err, ErrMalformedAuthResponse) {
		t.Fatalf("Login = %v, want ErrMalformedAuthResponse", err)
	}
}

func TestLoginTokenOnlyFetchesProfile(t *testing.T) {
	t.Parallel()

	var profileCalls atomic.Int32
	cache, _, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			w.Write([]byte(`{"token": "tok-only"}`))
		case "/api/auth/perfil":
			profileCalls.Add(1)
			if got := r.Header.Get("Authorization"); got != "Bearer tok-only" {
				t.Errorf("profile fetch Authorization = %q", got)
			}
			w.Write([]byte(`{"id": 3, "name": "Ana", "email": "ana@example.com", "role": "admin"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	profile, err := cache.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.Name != "Ana" || profile.Role != models.RoleAdmin {
		t.Errorf("profile = %+v", profile)
	}
	if profileCalls.Load() != 1 {
		t.Errorf("profile fetched %d times, want 1", profileCalls.Load())
	}
}

type failingStore struct {
	Store
	cleared atomic.Bool
}

func (s *failingStore) Save(context.Context, *models.UserProfile, string) error {
	return errors.New("disk full")
}

func (s *failingStore) Clear(ctx context.Context) error {
	s.cleared.Store(true)
	return s.Store.Clear(ctx)
}

func TestLoginPersistFailureClearsEverything(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "tok", "user": {"id": 1, "name": "X", "email": "x@example.com"}}`))
	}))
	defer srv.Close()

	holder := NewTokenHolder()
	gw := gateway.New(&config.BackendConfig{URL: srv.URL, Namespace: "/api", Timeout: 5 * time.Second},
		gateway.WithTokenSource(holder))
	store := &failingStore{Store: NewMemoryStore()}
	cache := New(gw, store, holder)

	_, err := cache.Login(context.Background(), Credentials{Email: "x@example.com", Password: "pw"})
	if err == nil {
		t.Fatal("Login succeeded despite store failure")
	}
	if holder.Token() != "" {
		t.Error("token retained after failed persist")
	}
	if !store.cleared.Load() {
		t.Error("store not cleared after failed persist")
	}
	if cache.IsAuthenticated(context.Background()) {
		t.Error("cache reports authenticated after failed persist")
	}
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	cache, store, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/auth/login" {
			w.Write([]byte(`{"token": "tok", "user": {"id": 1, "name": "X", "email": "x@example.com"}}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	if _, err := cache.Login(ctx, Credentials{Email: "x@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := cache.Logout(ctx); err != nil {
		t.Fatalf("Logout = %v, want nil even when server fails", err)
	}
	if holder.Token() != "" {
		t.Error("token retained after logout")
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("store.Load after logout = %v, want ErrNoSession", err)
	}
	if user, err := cache.CurrentUser(ctx, false); err != nil || user != nil {
		t.Errorf("CurrentUser after logout = (%v, %v), want (nil, nil)", user, err)
	}
}

func TestCurrentUserCachesAcrossCalls(t *testing.T) {
	t.Parallel()

	var profileCalls atomic.Int32
	cache, _, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/perfil" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		profileCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 5, "name": "Marta", "email": "marta@example.com", "role": "customer"}`))
	}))
	holder.set(signedJWT(t, time.Now().Add(time.Hour)))

	ctx := context.Background()
	first, err := cache.CurrentUser(ctx, true)
	if err != nil || first == nil {
		t.Fatalf("CurrentUser(force) = (%v, %v)", first, err)
	}
	for i := 0; i < 3; i++ {
		got, err := cache.CurrentUser(ctx, false)
		if err != nil || got == nil || got.ID != 5 {
			t.Fatalf("CurrentUser = (%v, %v)", got, err)
		}
	}
	if profileCalls.Load() != 1 {
		t.Errorf("profile fetched %d times, want 1", profileCalls.Load())
	}
}

func TestCurrentUserUnauthorizedClearsSession(t *testing.T) {
	t.Parallel()

	cache, store, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	ctx := context.Background()
	store.Save(ctx, testProfile(), "stale-token")
	holder.set("stale-token")

	user, err := cache.CurrentUser(ctx, true)
	if err != nil {
		t.Fatalf("CurrentUser = error %v, want nil", err)
	}
	if user != nil {
		t.Fatalf("CurrentUser = %+v, want nil", user)
	}
	if holder.Token() != "" {
		t.Error("token retained after 401")
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("store not cleared after 401: %v", err)
	}
}

func TestCurrentUserRestoresFromStore(t *testing.T) {
	t.Parallel()

	cache, store, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected network call %s", r.URL.Path)
	}))

	ctx := context.Background()
	store.Save(ctx, testProfile(), signedJWT(t, time.Now().Add(time.Hour)))

	user, err := cache.CurrentUser(ctx, false)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user == nil || user.ID != 7 {
		t.Fatalf("CurrentUser = %+v, want restored profile", user)
	}
	if holder.Token() == "" {
		t.Error("token not restored into holder")
	}
}

func TestBooleanQueriesSeePersistedSessionAfterRestart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected network call %s", r.URL.Path)
	}))
	defer srv.Close()

	ctx := context.Background()
	store := NewMemoryStore()
	store.Save(ctx, testProfile(), signedJWT(t, time.Now().Add(time.Hour)))

	// Fresh cache over the surviving store, as after a process restart.
	// The boolean queries alone must surface the persisted session.
	holder := NewTokenHolder()
	gw := gateway.New(&config.BackendConfig{URL: srv.URL, Namespace: "/api", Timeout: 5 * time.Second},
		gateway.WithTokenSource(holder))
	cache := New(gw, store, holder)

	if !cache.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated = false with a valid persisted session")
	}
	if !cache.IsAdmin(ctx) {
		t.Error("IsAdmin = false with a valid persisted admin session")
	}

	holder2 := NewTokenHolder()
	gw2 := gateway.New(&config.BackendConfig{URL: srv.URL, Namespace: "/api", Timeout: 5 * time.Second},
		gateway.WithTokenSource(holder2))
	cache2 := New(gw2, store, holder2)
	if !cache2.IsAdmin(ctx) {
		t.Error("IsAdmin alone did not trigger the store restore")
	}
}

func TestCurrentUserDiscardsExpiredPersistedToken(t *testing.T) {
	t.Parallel()

	cache, store, holder := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected network call %s", r.URL.Path)
	}))

	ctx := context.Background()
	store.Save(ctx, testProfile(), signedJWT(t, time.Now().Add(-time.Hour)))

	user, err := cache.CurrentUser(ctx, false)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user != nil {
		t.Fatalf("CurrentUser = %+v, want nil for expired session", user)
	}
	if holder.Token() != "" {
		t.Error("expired token loaded into holder")
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("expired session not purged from store: %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"expired jwt", signedJWT(t, now.Add(-time.Minute)), true},
		{"live jwt", signedJWT(t, now.Add(time.Minute)), false},
		{"opaque token", "not-a-jwt", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		if got := tokenExpired(tt.token, now); got != tt.want {
			t.Errorf("%s: tokenExpired = %v, want %v", tt.name, got, tt.want)
		}
	}
}
