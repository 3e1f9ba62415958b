// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const minScheduleInterval = 5 * time.Minute

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// Validate checks field ranges with struct tags and then the rules that
// depend on more than one field.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if err := c.validatePoster(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateSecurity()
}

func (c *Config) validatePoster() error {
	// The OAuth flow needs all three; reading already-synced data does not.
	set := 0
	for _, v := range []string{c.Poster.ApplicationID, c.Poster.ApplicationSecret, c.Poster.RedirectURI} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errors.New("POSTER_APPLICATION_ID, POSTER_APPLICATION_SECRET and POSTER_REDIRECT_URI must be set together")
	}
	if c.Poster.RateLimitRPS > 0 && c.Poster.RateLimitBurst < 1 {
		return errors.New("POSTER_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if cb := c.Poster.CircuitBreaker; cb.Enabled && (cb.MaxRequests == 0 || cb.Timeout <= 0) {
		return errors.New("circuit breaker requires max_requests > 0 and a positive timeout")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.RetryDelay < 0 {
		return errors.New("SYNC_RETRY_DELAY cannot be negative")
	}
	if c.Sync.ScheduleEnabled && c.Sync.ScheduleInterval < minScheduleInterval {
		return fmt.Errorf("SYNC_SCHEDULE_INTERVAL must be at least %s", minScheduleInterval)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Server.Environment == "production" {
		if len(c.Security.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.Security.TokenEncryptionKey == "" {
			return errors.New("TOKEN_ENCRYPTION_KEY is required in production")
		}
	}
	if c.Security.TokenEncryptionKey != "" && len(c.Security.TokenEncryptionKey) < 32 {
		return errors.New("TOKEN_ENCRYPTION_KEY must be at least 32 characters")
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
