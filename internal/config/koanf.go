// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

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

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fudi/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Poster: PosterConfig{
			APIURL:         "https://joinposter.com/api",
			AuthorizeURL:   "https://joinposter.com/api/auth",
			OAuthURL:       "https://joinposter.com/api/v2/auth",
			Timeout:        30 * time.Second,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      false,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Sync: SyncConfig{
			RetryAttempts:    3,
			RetryDelay:       time.Second,
			MaxSyncDays:      30,
			LowStockAlerts:   true,
			SyncOnConnect:    true,
			ScheduleEnabled:  false,
			ScheduleInterval: 6 * time.Hour,
			StaleAfter:       24 * time.Hour,
		},
		Store: StoreConfig{
			Path:       "/data/fudi",
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			OAuthStateTTL:   10 * time.Minute,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//  1. built-in defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		str, ok := k.Get(path).(string)
		if !ok || str == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(str, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"poster_api_url":                 "poster.api_url",
	"poster_authorize_url":           "poster.authorize_url",
	"poster_oauth_url":               "poster.oauth_url",
	"poster_application_id":          "poster.application_id",
	"poster_application_secret":      "poster.application_secret",
	"poster_redirect_uri":            "poster.redirect_uri",
	"poster_timeout":                 "poster.timeout",
	"poster_rate_limit_rps":          "poster.rate_limit_rps",
	"poster_rate_limit_burst":        "poster.rate_limit_burst",
	"poster_circuit_breaker_enabled": "poster.circuit_breaker.enabled",

	"sync_retry_attempts":    "sync.retry_attempts",
	"sync_retry_delay":       "sync.retry_delay",
	"sync_max_days":          "sync.max_sync_days",
	"sync_low_stock_alerts":  "sync.low_stock_alerts",
	"sync_on_connect":        "sync.sync_on_connect",
	"sync_schedule_enabled":  "sync.schedule_enabled",
	"sync_schedule_interval": "sync.schedule_interval",
	"sync_stale_after":       "sync.stale_after",

	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_sync_writes": "store.sync_writes",
	"store_gc_interval": "store.gc_interval",

	"jwt_secret":           "security.jwt_secret",
	"token_encryption_key": "security.token_encryption_key",
	"oauth_state_ttl":      "security.oauth_state_ttl",
	"cors_origins":         "security.cors_origins",
	"rate_limit_requests":  "security.rate_limit_reqs",
	"rate_limit_window":    "security.rate_limit_window",
	"disable_rate_limit":   "security.rate_limit_disabled",

	"events_enabled":     "events.enabled",
	"events_buffer_size": "events.buffer_size",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unknown variables map to "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
