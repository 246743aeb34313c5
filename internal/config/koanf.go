// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/comercia/config.yaml",
	"/etc/comercia/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns a Config with all default values applied. Defaults are
// loaded first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:       "http://localhost:8080",
			Namespace: "/api",
			Timeout:   10 * time.Second,
			RateLimit: 0, // unlimited
			RateBurst: 10,
		},
		Storage: StorageConfig{
			Path:          "", // in-memory unless configured
			EncryptionKey: "",
		},
		Templates: TemplatesConfig{
			BaseURL:    "http://localhost:8080/plantillas",
			AltBaseURL: "",
			TTL:        30 * time.Minute,
			Timeout:    10 * time.Second,
		},
		Warmer: WarmerConfig{
			Enabled:                false,
			Sections:               []string{"inventario", "pedidos", "usuarios"},
			Interval:               15 * time.Minute,
			SessionRefreshInterval: 5 * time.Minute,
		},
		Ops: OpsConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            7485,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// COMERCIA_BACKEND_URL -> backend.url, COMERCIA_TEMPLATES_TTL -> templates.ttl
	envProvider := env.Provider("COMERCIA_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"warmer.sections",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults), nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - COMERCIA_BACKEND_URL -> backend.url
//   - COMERCIA_BACKEND_RATE_LIMIT -> backend.rate_limit
//   - COMERCIA_STORAGE_PATH -> storage.path
//   - COMERCIA_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "COMERCIA_"))

	// Irregular names that a mechanical underscore-to-dot mapping gets wrong.
	envMappings := map[string]string{
		"backend_rate_limit":              "backend.rate_limit",
		"backend_rate_burst":              "backend.rate_burst",
		"storage_encryption_key":          "storage.encryption_key",
		"templates_base_url":              "templates.base_url",
		"templates_alt_base_url":          "templates.alt_base_url",
		"warmer_session_refresh_interval": "warmer.session_refresh_interval",
		"ops_rate_limit_reqs":             "ops.rate_limit_reqs",
		"ops_rate_limit_window":           "ops.rate_limit_window",
		"log_level":                       "logging.level",
		"log_format":                      "logging.format",
		"log_caller":                      "logging.caller",
	}
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Regular names: first underscore separates section from field.
	if idx := strings.Index(key, "_"); idx > 0 {
		return key[:idx] + "." + key[idx+1:]
	}
	return key
}
