// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package notify carries user-visible connectivity notices out of the core.
//
// When the gateway hits a dead backend it raises exactly one notice per
// outage window; repeated failures inside the window are suppressed so a
// burst of failed requests does not stack notices. A UI embedding the core
// supplies its own Notifier; the default logs through zerolog.
package notify

import (
	"sync"
	"time"

	"github.com/avaldera/comercia/internal/logging"
	"github.com/avaldera/comercia/internal/metrics"
)

// DefaultWindow is how long a raised notice suppresses duplicates.
const DefaultWindow = 30 * time.Second

// Notifier receives user-facing connectivity notices.
type Notifier interface {
	// BackendUnavailable signals that the backend could not be reached.
	BackendUnavailable(msg string)
}

// LogNotifier emits notices through the global zerolog logger.
type LogNotifier struct{}

// BackendUnavailable implements Notifier.
func (LogNotifier) BackendUnavailable(msg string) {
	logging.Warn().Str("notice", "backend_unavailable").Msg(msg)
}

// Deduped wraps a Notifier and suppresses duplicate notices raised within
// the expiry window. The window restarts on each suppressed raise ending,
// i.e. a notice shown at t suppresses everything until t+window.
type Deduped struct {
	mu       sync.Mutex
	inner    Notifier
	window   time.Duration
	lastSeen time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewDeduped creates a deduplicating Notifier with the given window.
// A window of 0 uses DefaultWindow.
func NewDeduped(inner Notifier, window time.Duration) *Deduped {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Deduped{
		inner:  inner,
		window: window,
		now:    time.Now,
	}
}

// BackendUnavailable forwards the notice unless one was already shown
// within the window.
func (d *Deduped) BackendUnavailable(msg string) {
	d.mu.Lock()
	now := d.now()
	if !d.lastSeen.IsZero() && now.Sub(d.lastSeen) < d.window {
		d.mu.Unlock()
		return
	}
	d.lastSeen = now
	d.mu.Unlock()

	metrics.OfflineNotices.Inc()
	d.inner.BackendUnavailable(msg)
}
