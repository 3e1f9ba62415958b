// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/fudi-pos/fudi/internal/config"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
)

const (
	// maxResponseBytes bounds successful payloads; a 30-day transaction
	// window for a busy venue stays well under it.
	maxResponseBytes = 32 << 20

	// maxErrorBodyBytes bounds how much of an error body is read for its message.
	maxErrorBodyBytes = 64 << 10

	userAgent = "fudi-sync/1.0"
)

// Client talks to the Poster API. It is safe for concurrent use.
type Client struct {
	apiURL       string
	authorizeURL string
	oauthURL     string
	appID        string
	appSecret    string
	redirectURI  string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client from the poster configuration section.
func NewClient(cfg *config.PosterConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		authorizeURL: cfg.AuthorizeURL,
		oauthURL:     strings.TrimRight(cfg.OAuthURL, "/"),
		appID:        cfg.ApplicationID,
		appSecret:    cfg.ApplicationSecret,
		redirectURI:  cfg.RedirectURI,
		httpClient:   &http.Client{Timeout: timeout},
		breaker:      newBreaker(cfg.CircuitBreaker),
		now:          time.Now,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get calls an API method and returns the payload under "response".
// params may be nil. The token is sent as the token query parameter.
func (c *Client) Get(ctx context.Context, method, token string, params url.Values) (json.RawMessage, error) {
	if c.breaker == nil {
		return c.get(ctx, method, token, params)
	}
	payload, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.get(ctx, method, token, params)
	})
	if isBreakerRejection(err) {
		metrics.RecordPosterRequest(method, outcome(err), 0)
	}
	return payload, breakerErr(method, err)
}

func (c *Client) get(ctx context.Context, method, token string, params url.Values) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, unreachable(method, err)
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("token", token)
	reqURL := c.apiURL + "/" + method + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	payload, err := c.doAPI(req, method)
	metrics.RecordPosterRequest(method, outcome(err), time.Since(start))

	logging.Ctx(ctx).Debug().
		Str("method", method).
		Str("token", logging.RedactToken(token)).
		Dur("duration", time.Since(start)).
		AnErr("error", err).
		Msg("poster request")
	return payload, err
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) doAPI(req *http.Request, method string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unreachable(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp, method)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unreachable(method, fmt.Errorf("read body: %w", err))
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, dataMissing(method, "invalid JSON envelope")
	}
	if len(envelope.Response) == 0 || bytes.Equal(envelope.Response, []byte("null")) {
		return nil, dataMissing(method, vendorMessage(envelope.Error))
	}
	return envelope.Response, nil
}

// readAPIError builds an APIError, taking the message from a JSON error
// body when Poster sends one.
func readAPIError(resp *http.Response, method string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	msg := ""
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		msg = vendorMessage(envelope.Error)
		if msg == "" {
			msg = envelope.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Method: method, Status: resp.StatusCode, Message: msg}
}

// vendorMessage extracts text from Poster's error field, which is either a
// string or an object with a message.
func vendorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string     `json:"message"`
		Code    FlexString `json:"code"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		switch {
		case obj.Message != "" && obj.Code != "":
			return fmt.Sprintf("%s (code %s)", obj.Message, obj.Code)
		case obj.Message != "":
			return obj.Message
		case obj.Code != "":
			return "error code " + string(obj.Code)
		}
	}
	return ""
}
