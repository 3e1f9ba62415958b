// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package tokenstore persists each tenant's Poster OAuth credential and
// keeps the access token fresh.
//
// There is one credential document per tenant. It is created by the OAuth
// callback, refreshed when it expires, and soft-deleted on disconnect:
// Connected flips to false and the record stays for audit. The same
// document carries the summary of the tenant's last sync, which the
// orchestrator updates through UpdateSyncState.
//
// When a TokenEncryptor is configured, access and refresh tokens are
// sealed before they reach the store.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fudi-pos/fudi/internal/auth"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
	"github.com/fudi-pos/fudi/internal/store"
)

const collection = "credential"

// OAuthClient is the subset of the Poster client the store needs.
type OAuthClient interface {
	Refresh(ctx context.Context, refreshToken string) (*poster.ExchangeResult, error)
	Revoke(ctx context.Context, token string) error
}

// Store manages tenant credentials.
type Store struct {
	db    *store.DB
	oauth OAuthClient
	enc   *auth.TokenEncryptor
	now   func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source for expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a token store. enc may be nil to store tokens in plaintext.
func New(db *store.DB, oauth OAuthClient, enc *auth.TokenEncryptor, opts ...Option) *Store {
	s := &Store{db: db, oauth: oauth, enc: enc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(tenantID string) string {
	return store.Key(collection, tenantID)
}

// Get returns the tenant's credential whether or not it is connected.
// A tenant that never connected gets models.ErrNotConnected.
func (s *Store) Get(ctx context.Context, tenantID string) (*models.Credential, error) {
	var stored models.Credential
	if err := s.db.Get(ctx, key(tenantID), &stored); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrNotConnected
		}
		return nil, err
	}
	return s.open(&stored)
}

// GetValidToken returns a connected credential whose access token is not
// expired at call time, refreshing it first when needed.
func (s *Store) GetValidToken(ctx context.Context, tenantID string) (*models.Credential, error) {
	cred, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !cred.Connected {
		return nil, models.ErrNotConnected
	}
	if !cred.Expired(s.now()) {
		return cred, nil
	}

	logging.Ctx(ctx).Info().
		Str("tenant_id", tenantID).
		Time("expired_at", cred.ExpiresAt).
		Msg("poster access token expired, refreshing")
	return s.Refresh(ctx, tenantID)
}

// Refresh runs the refresh grant and persists the new tokens. On failure
// the stored credential is left as it was and the error wraps
// models.ErrReauthRequired. It is never retried.
func (s *Store) Refresh(ctx context.Context, tenantID string) (*models.Credential, error) {
	cred, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !cred.Connected {
		return nil, models.ErrNotConnected
	}
	if cred.RefreshToken == "" {
		metrics.RecordTokenRefresh(false)
		return nil, fmt.Errorf("%w: no refresh token stored", models.ErrReauthRequired)
	}

	res, err := s.oauth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.RecordTokenRefresh(false)
		logging.Ctx(ctx).Warn().Err(err).Str("tenant_id", tenantID).Msg("poster token refresh failed")
		return nil, fmt.Errorf("%w: %w", models.ErrReauthRequired, err)
	}

	updated, err := s.modify(ctx, tenantID, func(c *models.Credential, exists bool) error {
		if !exists || !c.Connected {
			return models.ErrNotConnected
		}
		c.AccessToken = res.AccessToken
		if res.RefreshToken != "" {
			c.RefreshToken = res.RefreshToken
		}
		c.ExpiresAt = res.ExpiresAt
		if res.AccountID != "" {
			c.AccountID = res.AccountID
		}
		return nil
	})
	if err != nil {
		metrics.RecordTokenRefresh(false)
		return nil, err
	}
	metrics.RecordTokenRefresh(true)
	logging.Ctx(ctx).Info().Str("tenant_id", tenantID).Time("expires_at", updated.ExpiresAt).Msg("poster token refreshed")
	return updated, nil
}

// StoreFromExchange saves the result of an authorization-code exchange as
// a connected credential with a clean sync state.
func (s *Store) StoreFromExchange(ctx context.Context, tenantID string, res *poster.ExchangeResult) (*models.Credential, error) {
	if res == nil || res.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty token exchange", models.ErrUpstreamDataMissing)
	}
	return s.modify(ctx, tenantID, func(c *models.Credential, exists bool) error {
		createdAt := c.CreatedAt
		*c = models.Credential{
			TenantID:     tenantID,
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			ExpiresAt:    res.ExpiresAt,
			AccountID:    res.AccountID,
			Connected:    true,
			CreatedAt:    createdAt,
		}
		if !exists || createdAt.IsZero() {
			c.CreatedAt = s.now()
		}
		return nil
	})
}

// Revoke disconnects the tenant. The Poster revoke call is best effort;
// its failure is logged and does not stop the local soft delete.
func (s *Store) Revoke(ctx context.Context, tenantID string) error {
	cred, err := s.Get(ctx, tenantID)
	switch {
	case errors.Is(err, errUnreadableTokens):
		logging.Ctx(ctx).Warn().Str("tenant_id", tenantID).Msg("stored poster tokens unreadable, skipping poster revoke")
		cred = &models.Credential{}
	case err != nil:
		return err
	}

	if cred.Connected && cred.AccessToken != "" {
		if err := s.oauth.Revoke(ctx, cred.AccessToken); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("tenant_id", tenantID).Msg("poster token revoke failed, disconnecting locally")
		}
	}

	_, err = s.modify(ctx, tenantID, func(c *models.Credential, exists bool) error {
		if !exists {
			return models.ErrNotConnected
		}
		now := s.now()
		c.Connected = false
		c.AccessToken = ""
		c.RefreshToken = ""
		c.SyncInProgress = false
		c.DisconnectedAt = &now
		return nil
	})
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("tenant_id", tenantID).Msg("poster account disconnected")
	return nil
}

// UpdateSyncState applies fn to the stored credential in one
// read-modify-write. Returning an error from fn aborts the write and is
// returned unchanged.
func (s *Store) UpdateSyncState(ctx context.Context, tenantID string, fn func(*models.Credential) error) (*models.Credential, error) {
	return s.modify(ctx, tenantID, func(c *models.Credential, exists bool) error {
		if !exists {
			return models.ErrNotConnected
		}
		return fn(c)
	})
}

// ListConnected returns the IDs of every connected tenant.
func (s *Store) ListConnected(ctx context.Context) ([]string, error) {
	creds, err := store.List[models.Credential](ctx, s.db, store.Prefix(collection))
	if err != nil {
		return nil, err
	}
	var ids []string
	for i := range creds {
		if creds[i].Connected {
			ids = append(ids, creds[i].TenantID)
		}
	}
	return ids, nil
}

// modify decrypts the stored credential, applies fn, stamps updated_at,
// and writes it back sealed.
func (s *Store) modify(ctx context.Context, tenantID string, fn func(c *models.Credential, exists bool) error) (*models.Credential, error) {
	var stored models.Credential
	var plain *models.Credential
	err := s.db.Modify(ctx, key(tenantID), &stored, func(exists bool) error {
		c := &models.Credential{}
		if exists {
			opened, err := s.open(&stored)
			switch {
			case errors.Is(err, errUnreadableTokens):
				logging.Ctx(ctx).Warn().Err(err).Str("tenant_id", tenantID).Msg("stored poster tokens unreadable, clearing them")
				c = withoutTokens(&stored)
			case err != nil:
				return err
			default:
				c = opened
			}
		}
		if err := fn(c, exists); err != nil {
			return err
		}
		c.TenantID = tenantID
		c.UpdatedAt = s.now()

		sealed, err := s.seal(c)
		if err != nil {
			return err
		}
		stored = *sealed
		plain = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func (s *Store) seal(c *models.Credential) (*models.Credential, error) {
	out := *c
	var err error
	if out.AccessToken, err = s.enc.Encrypt(c.AccessToken); err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	if out.RefreshToken, err = s.enc.Encrypt(c.RefreshToken); err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return &out, nil
}

// errUnreadableTokens marks a credential whose tokens no longer decrypt,
// for example after the encryption key changed. Readers see
// models.ErrReauthRequired; writers drop the tokens and carry on.
var errUnreadableTokens = errors.New("stored tokens unreadable")

// open decrypts a stored credential.
func (s *Store) open(stored *models.Credential) (*models.Credential, error) {
	out := *stored
	var err error
	if out.AccessToken, err = s.enc.Decrypt(stored.AccessToken); err != nil {
		return nil, fmt.Errorf("%w: %w: decrypt access token: %w", models.ErrReauthRequired, errUnreadableTokens, err)
	}
	if out.RefreshToken, err = s.enc.Decrypt(stored.RefreshToken); err != nil {
		return nil, fmt.Errorf("%w: %w: decrypt refresh token: %w", models.ErrReauthRequired, errUnreadableTokens, err)
	}
	return &out, nil
}

// withoutTokens keeps the plaintext fields of a stored credential.
func withoutTokens(stored *models.Credential) *models.Credential {
	out := *stored
	out.AccessToken = ""
	out.RefreshToken = ""
	return &out
}
