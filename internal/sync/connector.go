// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
	"github.com/fudi-pos/fudi/internal/store"
)

// DefaultStateTTL is how long an OAuth state stays redeemable.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState means the callback's state is unknown, expired, or was
// already used.
var ErrInvalidState = errors.New("invalid or expired oauth state")

// OAuthProvider is the Poster OAuth surface. *poster.Client implements it.
type OAuthProvider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*poster.ExchangeResult, error)
}

// CredentialStore is the token store surface the connector needs.
// *tokenstore.Store implements it.
type CredentialStore interface {
	Get(ctx context.Context, tenantID string) (*models.Credential, error)
	StoreFromExchange(ctx context.Context, tenantID string, res *poster.ExchangeResult) (*models.Credential, error)
	Revoke(ctx context.Context, tenantID string) error
}

// StateStore keeps one-shot OAuth states. *store.DB implements it.
type StateStore interface {
	PutWithTTL(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Take(ctx context.Context, key string, out interface{}) error
}

type oauthState struct {
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConnectorConfig tunes the connector.
type ConnectorConfig struct {
	StateTTL      time.Duration
	SyncOnConnect bool
	StaleAfter    time.Duration
}

// Connector handles the tenant-facing OAuth lifecycle.
type Connector struct {
	oauth  OAuthProvider
	creds  CredentialStore
	states StateStore
	orch   *Orchestrator
	errs   ErrorLogger
	cfg    ConnectorConfig
}

// NewConnector creates a connector. orch may be nil, which disables the
// initial sync after a callback.
func NewConnector(oauth OAuthProvider, creds CredentialStore, states StateStore, orch *Orchestrator, errs ErrorLogger, cfg ConnectorConfig) *Connector {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Connector{oauth: oauth, creds: creds, states: states, orch: orch, errs: errs, cfg: cfg}
}

// Connect returns the Poster authorization URL for the tenant.
func (c *Connector) Connect(ctx context.Context, tenantID string) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	rec := oauthState{TenantID: tenantID, CreatedAt: time.Now()}
	if err := c.states.PutWithTTL(ctx, stateKey(state), rec, c.cfg.StateTTL); err != nil {
		return "", err
	}
	logging.Ctx(ctx).Info().Str("tenant_id", tenantID).Msg("poster oauth started")
	return c.oauth.AuthorizeURL(state), nil
}

// HandleCallback redeems the state, exchanges the code, stores the
// credential, and starts the initial sync in the background.
func (c *Connector) HandleCallback(ctx context.Context, code, state string) (*models.ActionResult, error) {
	if code == "" || state == "" {
		return &models.ActionResult{Message: "Missing authorization code or state."}, ErrInvalidState
	}

	var rec oauthState
	if err := c.states.Take(ctx, stateKey(state), &rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &models.ActionResult{Message: "The connection request expired. Please try again."}, ErrInvalidState
		}
		return &models.ActionResult{Message: models.FriendlyMessage(err)}, err
	}
	ctx = logging.ContextWithTenantID(ctx, rec.TenantID)

	res, err := c.oauth.ExchangeCode(ctx, code)
	if err != nil {
		c.logError(ctx, rec.TenantID, "callback", err)
		return &models.ActionResult{Message: models.FriendlyMessage(err)}, err
	}
	if _, err := c.creds.StoreFromExchange(ctx, rec.TenantID, res); err != nil {
		c.logError(ctx, rec.TenantID, "callback", err)
		return &models.ActionResult{Message: models.FriendlyMessage(err)}, err
	}
	logging.Ctx(ctx).Info().Str("tenant_id", rec.TenantID).Str("account_id", res.AccountID).Msg("poster account connected")

	if c.orch != nil && c.cfg.SyncOnConnect {
		if runID, err := c.orch.StartAsync(ctx, rec.TenantID, AllResources(), models.TriggerCallback); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("initial sync not started")
		} else {
			logging.Ctx(ctx).Info().Str("run_id", runID).Msg("initial sync started")
		}
	}
	return &models.ActionResult{Success: true, Message: "Poster account connected successfully."}, nil
}

func stateKey(state string) string {
	return store.Key("oauth_state", state)
}

// CheckConnection reports the tenant's connection and last-sync summary.
// A tenant that never connected is reported as not connected, not as an
// error.
func (c *Connector) CheckConnection(ctx context.Context, tenantID string) (*models.ConnectionStatus, error) {
	cred, err := c.creds.Get(ctx, tenantID)
	switch {
	case errors.Is(err, models.ErrNotConnected):
		return &models.ConnectionStatus{}, nil
	case errors.Is(err, models.ErrReauthRequired):
		return &models.ConnectionStatus{NeedsReconnect: true}, nil
	case err != nil:
		return nil, err
	}

	status := &models.ConnectionStatus{
		Connected:      cred.Connected,
		AccountID:      cred.AccountID,
		LastSync:       cred.LastSync,
		SyncInProgress: cred.SyncInProgress,
		SyncCounts:     cred.SyncCounts,
		SyncError:      cred.SyncError,
		NeedsReconnect: cred.Connected && (cred.NeedsReconnect || cred.SyncErrorCode == models.ErrorCode(models.ErrReauthRequired)),
	}
	if cred.Connected {
		status.NeedsSync = cred.LastSync == nil || time.Since(*cred.LastSync) > c.cfg.StaleAfter
	}
	return status, nil
}

// Disconnect revokes the tenant's Poster access.
func (c *Connector) Disconnect(ctx context.Context, tenantID string) (*models.ActionResult, error) {
	if err := c.creds.Revoke(ctx, tenantID); err != nil {
		if !errors.Is(err, models.ErrNotConnected) {
			c.logError(ctx, tenantID, "disconnect", err)
		}
		return &models.ActionResult{Message: models.FriendlyMessage(err)}, err
	}
	return &models.ActionResult{Success: true, Message: "Poster account disconnected."}, nil
}

func (c *Connector) logError(ctx context.Context, tenantID, operation string, err error) {
	if c.errs == nil {
		return
	}
	c.errs.LogError(ctx, &models.ErrorLog{
		TenantID:        tenantID,
		Source:          models.SourcePoster,
		Operation:       operation,
		Code:            models.ErrorCode(err),
		Message:         err.Error(),
		FriendlyMessage: models.FriendlyMessage(err),
		Timestamp:       time.Now(),
	})
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
