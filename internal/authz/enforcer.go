// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package authz decides what the current user may do locally, before any
// request is sent. The backend remains the authority on every write; this
// layer only keeps admin affordances hidden from customers and avoids
// round trips that are guaranteed to 403. RBAC via Casbin with an
// embedded model and policy; decisions are cached.
package authz

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/avaldera/comercia/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// EnforcerConfig holds enforcer settings.
type EnforcerConfig struct {
	// PolicyPath overrides the embedded policy with a CSV file on disk.
	PolicyPath string

	// CacheTTL is how long decisions are cached. Zero disables caching.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns the defaults: embedded policy, five
// minute decision cache.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{CacheTTL: 5 * time.Minute}
}

// Enforcer answers permission questions for roles. Safe for concurrent
// use.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer creates the enforcer from configuration.
func NewEnforcer(cfg *EnforcerConfig) (*Enforcer, error) {
	if cfg == nil {
		cfg = DefaultEnforcerConfig()
	}

	m, err := casbinmodel.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load authorization model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, fmt.Errorf("create enforcer: %w", err)
		}
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err != nil {
			return nil, fmt.Errorf("create enforcer: %w", err)
		}
		if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
			return nil, err
		}
	}

	e := &Enforcer{enforcer: enforcer}
	if cfg.CacheTTL > 0 {
		e.cache = newDecisionCache(cfg.CacheTTL)
	}
	return e, nil
}

// loadEmbeddedPolicy feeds the embedded CSV into the enforcer line by
// line; casbin's file adapter cannot read from a string.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch parts[0] {
		case "p":
			if len(parts) >= 4 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add role inheritance %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// Allowed reports whether the role may perform the action on the
// resource. Unknown roles are denied everything.
func (e *Enforcer) Allowed(role models.Role, resource, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(string(role), resource, action); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		return false, fmt.Errorf("authorization check: %w", err)
	}

	if e.cache != nil {
		e.cache.set(string(role), resource, action, allowed)
	}
	return allowed, nil
}

// CanManage reports whether the profile may administer the resource.
// Nil profiles are anonymous and denied.
func (e *Enforcer) CanManage(profile *models.UserProfile, resource string) bool {
	if profile == nil {
		return false
	}
	allowed, err := e.Allowed(profile.Role, resource, ActionWrite)
	return err == nil && allowed
}

// Close stops the decision cache.
func (e *Enforcer) Close() {
	if e.cache != nil {
		e.cache.stop()
	}
}
