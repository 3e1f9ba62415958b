// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package config loads Fudi configuration from defaults, an optional YAML
// file, and environment variables (in that order of precedence) using koanf.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Poster   PosterConfig   `koanf:"poster"`
	Sync     SyncConfig     `koanf:"sync"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`
}

// PosterConfig describes the Poster application and API endpoints.
type PosterConfig struct {
	// APIURL is the base for method calls such as menu.getProducts.
	APIURL string `koanf:"api_url" validate:"required,url"`

	// AuthorizeURL is where the tenant's browser is sent to grant access.
	AuthorizeURL string `koanf:"authorize_url" validate:"required,url"`

	// OAuthURL is the base for token, refresh, and revoke calls.
	OAuthURL string `koanf:"oauth_url" validate:"required,url"`

	ApplicationID     string        `koanf:"application_id"`
	ApplicationSecret string        `koanf:"application_secret"`
	RedirectURI       string        `koanf:"redirect_uri"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=1s"`

	// RateLimitRPS caps outbound calls per second across all tenants; 0 disables.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"min=0"`

	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig configures the optional breaker around Poster calls.
type CircuitBreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"min=0,max=1"`
}

// SyncConfig controls the synchronization pipeline.
type SyncConfig struct {
	RetryAttempts int           `koanf:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	// MaxSyncDays bounds the sales window, counted back from sync start.
	MaxSyncDays int `koanf:"max_sync_days" validate:"min=1,max=365"`

	LowStockAlerts bool `koanf:"low_stock_alerts"`

	// SyncOnConnect starts an initial sync after a successful OAuth callback.
	SyncOnConnect bool `koanf:"sync_on_connect"`

	ScheduleEnabled  bool          `koanf:"schedule_enabled"`
	ScheduleInterval time.Duration `koanf:"schedule_interval"`

	// StaleAfter is the age past which NeedsSync reports true.
	StaleAfter time.Duration `koanf:"stale_after" validate:"min=1m"`
}

// StoreConfig configures the badger document store.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	// GCInterval is how often the value log is compacted.
	GCInterval time.Duration `koanf:"gc_interval" validate:"min=1m"`
}

// SecurityConfig covers tenant authentication and secrets at rest.
type SecurityConfig struct {
	// JWTSecret verifies HS256 bearer tokens whose subject is the tenant ID.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenEncryptionKey enables AES-GCM encryption of stored Poster tokens.
	TokenEncryptionKey string `koanf:"token_encryption_key"`

	OAuthStateTTL     time.Duration `koanf:"oauth_state_ttl" validate:"min=1m"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EventsConfig controls the in-process event bus.
type EventsConfig struct {
	Enabled    bool  `koanf:"enabled"`
	BufferSize int64 `koanf:"buffer_size" validate:"min=0"`
}

// LoggingConfig mirrors logging.Config for file/env loading.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
