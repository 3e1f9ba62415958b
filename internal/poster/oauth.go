// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
)

// defaultTokenLifetime applies when the token response omits expires_in.
const defaultTokenLifetime = 24 * time.Hour

// ExchangeResult is the outcome of a code exchange or refresh grant.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	AccountID    string
}

type tokenResponse struct {
	AccessToken   string          `json:"access_token"`
	RefreshToken  string          `json:"refresh_token"`
	ExpiresIn     FlexFloat       `json:"expires_in"`
	AccountNumber FlexString      `json:"account_number"`
	AccountID     FlexString      `json:"account_id"`
	Error         json.RawMessage `json:"error"`
}

// AuthorizeURL is where the tenant's browser goes to grant access. state
// is echoed back on the callback.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("application_id", c.appID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)

	sep := "?"
	if strings.Contains(c.authorizeURL, "?") {
		sep = "&"
	}
	return c.authorizeURL + sep + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*ExchangeResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.appSecret)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code", code)
	return c.tokenGrant(ctx, "auth.token", "/token", form)
}

// Refresh runs the refresh grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*ExchangeResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.appSecret)
	form.Set("refresh_token", refreshToken)
	return c.tokenGrant(ctx, "auth.refresh", "/refresh", form)
}

// Revoke invalidates token at Poster.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.appSecret)
	form.Set("token", token)

	start := time.Now()
	resp, err := c.postForm(ctx, "auth.revoke", "/revoke", form)
	if err != nil {
		metrics.RecordPosterRequest("auth.revoke", outcome(err), time.Since(start))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp, "auth.revoke")
		metrics.RecordPosterRequest("auth.revoke", outcome(apiErr), time.Since(start))
		return apiErr
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	metrics.RecordPosterRequest("auth.revoke", "ok", time.Since(start))
	return nil
}

func (c *Client) tokenGrant(ctx context.Context, label, path string, form url.Values) (*ExchangeResult, error) {
	start := time.Now()
	result, err := c.doTokenGrant(ctx, label, path, form)
	metrics.RecordPosterRequest(label, outcome(err), time.Since(start))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("grant", label).Msg("poster token grant failed")
	}
	return result, err
}

func (c *Client) doTokenGrant(ctx context.Context, label, path string, form url.Values) (*ExchangeResult, error) {
	resp, err := c.postForm(ctx, label, path, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp, label)
	}

	var tr tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&tr); err != nil {
		return nil, dataMissing(label, "invalid token response")
	}
	if tr.AccessToken == "" {
		return nil, dataMissing(label, vendorMessage(tr.Error))
	}

	lifetime := defaultTokenLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(float64(tr.ExpiresIn) * float64(time.Second))
	}
	account := string(tr.AccountID)
	if account == "" {
		account = string(tr.AccountNumber)
	}
	return &ExchangeResult{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.now().Add(lifetime),
		AccountID:    account,
	}, nil
}

func (c *Client) postForm(ctx context.Context, label, path string, form url.Values) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, unreachable(label, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unreachable(label, err)
	}
	return resp, nil
}
