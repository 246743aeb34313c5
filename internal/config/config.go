// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package config manages application configuration loaded via Koanf v2
// from layered sources: built-in defaults, optional YAML file, environment
// variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Comercia client agent.
type Config struct {
	Backend   BackendConfig   `koanf:"backend"`
	Storage   StorageConfig   `koanf:"storage"`
	Templates TemplatesConfig `koanf:"templates"`
	Warmer    WarmerConfig    `koanf:"warmer"`
	Ops       OpsConfig       `koanf:"ops"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// BackendConfig holds settings for the storefront REST backend.
type BackendConfig struct {
	// URL is the backend base URL, e.g. https://tienda.example.com
	URL string `koanf:"url" validate:"required,url"`

	// Namespace is the default path prefix for logical endpoints that have
	// no entry in the gateway's mapping table.
	Namespace string `koanf:"namespace"`

	// Timeout is the per-request deadline. Requests exceeding it fail with
	// a timeout error; there is no retry.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimit caps outbound requests per second. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`

	// RateBurst is the limiter burst size when RateLimit is set.
	RateBurst int `koanf:"rate_burst" validate:"gte=0"`
}

// StorageConfig holds settings for the durable local session store.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty selects the in-memory store.
	Path string `koanf:"path"`

	// EncryptionKey is an optional base64-encoded master key. When set,
	// the persisted auth token is encrypted at rest (AES-GCM, HKDF-derived
	// key). Empty disables encryption.
	EncryptionKey string `koanf:"encryption_key"`
}

// TemplatesConfig holds settings for the admin-section template cache.
type TemplatesConfig struct {
	// BaseURL is the primary location of template fragments.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// AltBaseURL is tried when the primary fetch fails. Optional.
	AltBaseURL string `koanf:"alt_base_url" validate:"omitempty,url"`

	// TTL is the cache freshness window for a fetched fragment.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`

	// Timeout is the per-fetch deadline for template requests.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// WarmerConfig controls the supervised background services.
type WarmerConfig struct {
	// Enabled toggles the warmer/refresher supervisor tree.
	Enabled bool `koanf:"enabled"`

	// Sections lists logical section names preloaded on each warm cycle.
	Sections []string `koanf:"sections"`

	// Interval is how often templates are re-warmed.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// SessionRefreshInterval is how often the session profile is force
	// refreshed so a server-side token invalidation is noticed promptly.
	SessionRefreshInterval time.Duration `koanf:"session_refresh_interval" validate:"gt=0"`
}

// OpsConfig holds settings for the local status/metrics listener.
type OpsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port" validate:"gte=0,lte=65535"`

	// RateLimitReqs caps requests per client per window on ops endpoints.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the ops listen address in host:port form.
func (o OpsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Trailing slashes break the gateway's path joining.
	if strings.HasSuffix(c.Backend.URL, "/") {
		return fmt.Errorf("backend.url must not end with a slash: %q", c.Backend.URL)
	}
	if !strings.HasPrefix(c.Backend.Namespace, "/") {
		return fmt.Errorf("backend.namespace must start with a slash: %q", c.Backend.Namespace)
	}

	return nil
}
