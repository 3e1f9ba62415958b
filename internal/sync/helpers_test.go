// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
	"github.com/fudi-pos/fudi/internal/store"
	"github.com/fudi-pos/fudi/internal/tokenstore"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type fakeResponse struct {
	payload string
	err     error
}

// fakeAPI serves canned payloads per Poster method. Queued responses are
// consumed in order; the last one repeats.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	calls     map[string][]url.Values
	tokens    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string][]fakeResponse{}, calls: map[string][]url.Values{}}
}

func (f *fakeAPI) set(method string, responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = responses
}

func (f *fakeAPI) ok(method, payload string) {
	f.set(method, fakeResponse{payload: payload})
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[method])
}

func (f *fakeAPI) Get(_ context.Context, method, token string, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method] = append(f.calls[method], params)
	f.tokens = append(f.tokens, token)

	queue := f.responses[method]
	if len(queue) == 0 {
		return nil, &poster.APIError{Method: method, Status: 404, Message: "unknown method"}
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[method] = queue[1:]
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return json.RawMessage(resp.payload), nil
}

type fakeOAuth struct {
	mu         sync.Mutex
	refreshErr error
	exchanged  []string
}

func (f *fakeOAuth) AuthorizeURL(state string) string {
	return "https://joinposter.com/api/auth?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (*poster.ExchangeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == "bad" {
		return nil, &poster.APIError{Method: "auth/token", Status: 400, Message: "invalid_grant"}
	}
	f.exchanged = append(f.exchanged, code)
	return &poster.ExchangeResult{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		AccountID:    "acct",
	}, nil
}

func (f *fakeOAuth) Refresh(context.Context, string) (*poster.ExchangeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &poster.ExchangeResult{AccessToken: "refreshed", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeOAuth) Revoke(context.Context, string) error { return nil }

type hubMessage struct {
	tenantID    string
	messageType string
}

type fakeHub struct {
	mu       sync.Mutex
	messages []hubMessage
}

func (h *fakeHub) BroadcastToTenant(tenantID, messageType string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, hubMessage{tenantID, messageType})
}

func (h *fakeHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.messageType
	}
	return out
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

type harness struct {
	db     *store.DB
	api    *fakeAPI
	oauth  *fakeOAuth
	tokens *tokenstore.Store
	facade *data.Facade
	orch   *Orchestrator
	hub    *fakeHub
	sleeps *sleepRecorder
	retry  RetryPolicy
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		db:     db,
		api:    newFakeAPI(),
		oauth:  &fakeOAuth{},
		hub:    &fakeHub{},
		sleeps: &sleepRecorder{},
	}
	h.tokens = tokenstore.New(db, h.oauth, nil)
	h.facade = data.New(db, h.tokens)
	h.retry = RetryPolicy{Attempts: 3, Backoff: time.Second, Sleep: h.sleeps.sleep}

	h.orch = NewOrchestrator(h.tokens, h.facade, []ResourceSyncer{
		NewMenuSyncer(h.api, h.facade, h.retry),
		NewInventorySyncer(h.api, h.facade, h.retry, true),
		NewSalesSyncer(h.api, h.facade, h.retry, 30),
		NewRestaurantSyncer(h.api, h.facade, h.retry),
	})
	h.orch.SetWebSocketHub(h.hub)
	t.Cleanup(h.orch.Wait)
	return h
}

// connect stores a live credential for tenant.
func (h *harness) connect(t *testing.T, tenant string) {
	t.Helper()
	_, err := h.tokens.StoreFromExchange(context.Background(), tenant, &poster.ExchangeResult{
		AccessToken:  "access-" + tenant,
		RefreshToken: "refresh-" + tenant,
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
}

// stockPoster loads a small, valid dataset for every method.
func (h *harness) stockPoster() {
	h.api.ok(poster.MethodProducts, `[
		{"product_id":"1","product_name":"Taco","price":"35.5","menu_category_id":"10","hidden":"0"},
		{"product_id":"2","product_name":"Agua","price":15,"menu_category_id":"99","hidden":1}
	]`)
	h.api.ok(poster.MethodCategories, `[{"category_id":"10","category_name":"Mains"}]`)
	h.api.ok(poster.MethodStorageInventory, `[
		{"ingredient_id":"7","ingredient_name":"Flour","storage":"5","critical_storage":"15","unit":"kg"},
		{"ingredient_id":"8","ingredient_name":"Salt","storage":50,"critical_storage":0}
	]`)
	h.api.ok(poster.MethodTransactions, `[
		{"transaction_id":"100","date_close":"1767225600","sum":"120","status":"2","payment_method_name":"cash"},
		{"transaction_id":"101","date_close":0,"sum":40,"status":1}
	]`)
	h.api.ok(poster.MethodSpots, `[{"spot_id":"1","spot_name":"Centro","spot_adress":"Av. Juarez 10"}]`)
	h.api.ok(poster.MethodSettings, `{"company_name":"Tacos Fudi","email":"owner@example.com","timezone":"America/Mexico_City","country":"MX","currency":{"currency_code_iso":"MXN"}}`)
}

func (h *harness) credential(t *testing.T, tenant string) *models.Credential {
	t.Helper()
	c, err := h.tokens.Get(context.Background(), tenant)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func errUnavailable(method string) error {
	return &poster.APIError{Method: method, Status: 503, Message: "service unavailable"}
}

var errBoom = errors.New("boom")
