// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package authz

import (
	"sync"
	"time"
)

// decisionCache caches authorization decisions per (role, resource,
// action) triple.
type decisionCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]*decision
	stopChan chan struct{}
	stopOnce sync.Once
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	c := &decisionCache{
		ttl:      ttl,
		items:    make(map[string]*decision),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func decisionKey(role, resource, action string) string {
	return role + ":" + resource + ":" + action
}

func (c *decisionCache) get(role, resource, action string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[decisionKey(role, resource, action)]
	if !ok || time.Now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

func (c *decisionCache) set(role, resource, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[decisionKey(role, resource, action)] = &decision{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*decision)
}

func (c *decisionCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *decisionCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
