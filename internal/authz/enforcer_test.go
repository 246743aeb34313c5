// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package authz

import (
	"testing"
	"time"

	"github.com/avaldera/comercia/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)

	tests := []struct {
		role     models.Role
		resource string
		action   string
		want     bool
	}{
		{models.RoleCustomer, "products", ActionRead, true},
		{models.RoleCustomer, "products", ActionWrite, false},
		{models.RoleCustomer, "cart", ActionWrite, true},
		{models.RoleCustomer, "users", ActionRead, false},
		{models.RoleAdmin, "products", ActionWrite, true},
		{models.RoleAdmin, "users", ActionWrite, true},
		{models.RoleAdmin, "templates", ActionRead, true},
		// Inherited from customer.
		{models.RoleAdmin, "cart", ActionWrite, true},
		{"ghost", "products", ActionRead, false},
	}

	for _, tt := range tests {
		got, err := e.Allowed(tt.role, tt.resource, tt.action)
		if err != nil {
			t.Fatalf("Allowed(%s, %s, %s) failed: %v", tt.role, tt.resource, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestCanManage(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t)

	admin := &models.UserProfile{ID: 1, Name: "A", Email: "a@example.com", Role: models.RoleAdmin}
	customer := &models.UserProfile{ID: 2, Name: "C", Email: "c@example.com", Role: models.RoleCustomer}

	if !e.CanManage(admin, "products") {
		t.Error("admin cannot manage products")
	}
	if e.CanManage(customer, "products") {
		t.Error("customer can manage products")
	}
	if e.CanManage(nil, "products") {
		t.Error("anonymous can manage products")
	}
}

func TestDecisionCache(t *testing.T) {
	t.Parallel()

	c := newDecisionCache(50 * time.Millisecond)
	defer c.stop()

	if _, ok := c.get("admin", "products", ActionWrite); ok {
		t.Fatal("cold cache returned a decision")
	}

	c.set("admin", "products", ActionWrite, true)
	allowed, ok := c.get("admin", "products", ActionWrite)
	if !ok || !allowed {
		t.Fatalf("get = (%v, %v), want cached allow", allowed, ok)
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := c.get("admin", "products", ActionWrite); ok {
		t.Error("expired decision still served")
	}

	c.set("customer", "cart", ActionWrite, true)
	c.clear()
	if _, ok := c.get("customer", "cart", ActionWrite); ok {
		t.Error("cleared decision still served")
	}
}
