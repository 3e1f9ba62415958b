// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	_ "github.com/fudi-pos/fudi/docs"
	"github.com/fudi-pos/fudi/internal/auth"
	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/store"
	syncpkg "github.com/fudi-pos/fudi/internal/sync"
	ws "github.com/fudi-pos/fudi/internal/websocket"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type fakeConnector struct {
	mu          sync.Mutex
	tenants     []string
	authURL     string
	callbackRes *models.ActionResult
	callbackErr error
	status      *models.ConnectionStatus
	err         error
}

func (f *fakeConnector) record(tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants = append(f.tenants, tenantID)
}

func (f *fakeConnector) Connect(_ context.Context, tenantID string) (string, error) {
	f.record(tenantID)
	return f.authURL, f.err
}

func (f *fakeConnector) HandleCallback(_ context.Context, code, state string) (*models.ActionResult, error) {
	f.record(code + "/" + state)
	return f.callbackRes, f.callbackErr
}

func (f *fakeConnector) CheckConnection(_ context.Context, tenantID string) (*models.ConnectionStatus, error) {
	f.record(tenantID)
	return f.status, f.err
}

func (f *fakeConnector) Disconnect(_ context.Context, tenantID string) (*models.ActionResult, error) {
	f.record(tenantID)
	return &models.ActionResult{Success: f.err == nil, Message: "Disconnected"}, f.err
}

type fakeSync struct {
	mu       sync.Mutex
	opts     []syncpkg.Options
	triggers []string
	result   *models.SyncResult
	err      error
	runID    string
}

func (f *fakeSync) Run(_ context.Context, _ string, opts syncpkg.Options, trigger string) (*models.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	f.triggers = append(f.triggers, trigger)
	return f.result, f.err
}

func (f *fakeSync) StartAsync(_ context.Context, _ string, opts syncpkg.Options, trigger string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	f.triggers = append(f.triggers, trigger)
	return f.runID, f.err
}

type fakeData struct {
	mu         sync.Mutex
	tenants    []string
	filter     data.SalesFilter
	limit      int
	menu       []models.MenuItem
	restaurant *models.Restaurant
	runs       map[string]*models.SyncRun
	controls   []models.ResourceControl
	errorLogs  []models.ErrorLog
	err        error
}

func (f *fakeData) seen(tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants = append(f.tenants, tenantID)
}

func (f *fakeData) GetMenu(_ context.Context, tenantID string) ([]models.MenuItem, error) {
	f.seen(tenantID)
	return f.menu, f.err
}

func (f *fakeData) GetInventory(_ context.Context, tenantID string) ([]models.InventoryItem, error) {
	f.seen(tenantID)
	return []models.InventoryItem{}, f.err
}

func (f *fakeData) GetSales(_ context.Context, tenantID string, filter data.SalesFilter) ([]models.Transaction, error) {
	f.seen(tenantID)
	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	return []models.Transaction{}, f.err
}

func (f *fakeData) GetLowStockAlerts(_ context.Context, tenantID string) ([]models.LowStockAlert, error) {
	f.seen(tenantID)
	return []models.LowStockAlert{{IngredientID: "7", Status: models.AlertStatusActive}}, f.err
}

func (f *fakeData) GetSyncRuns(_ context.Context, tenantID string, limit int) ([]models.SyncRun, error) {
	f.seen(tenantID)
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return []models.SyncRun{}, f.err
}

func (f *fakeData) GetRestaurant(_ context.Context, tenantID string) (*models.Restaurant, error) {
	f.seen(tenantID)
	if f.err != nil {
		return nil, f.err
	}
	if f.restaurant == nil {
		return nil, models.ErrNotSynced
	}
	return f.restaurant, nil
}

func (f *fakeData) GetRun(_ context.Context, tenantID, runID string) (*models.SyncRun, error) {
	f.seen(tenantID)
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[runID]
	if !ok || run.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (f *fakeData) GetControls(_ context.Context, tenantID, _ string) ([]models.ResourceControl, error) {
	f.seen(tenantID)
	return f.controls, f.err
}

func (f *fakeData) GetErrorLogs(_ context.Context, tenantID string, limit int) ([]models.ErrorLog, error) {
	f.seen(tenantID)
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return f.errorLogs, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testAPI struct {
	conn    *fakeConnector
	sync    *fakeSync
	data    *fakeData
	hub     *ws.Hub
	jwt     *auth.JWTManager
	handler http.Handler
	token   string
}

func newTestAPI(t *testing.T, storeErr error) *testAPI {
	t.Helper()
	jwtManager, err := auth.NewJWTManager("test-secret-0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := jwtManager.GenerateToken("t1", "owner@example.com")
	if err != nil {
		t.Fatal(err)
	}

	a := &testAPI{
		conn: &fakeConnector{
			authURL: "https://joinposter.com/api/auth?state=abc",
			status:  &models.ConnectionStatus{Connected: true},
		},
		sync: &fakeSync{result: &models.SyncResult{Success: true, RunID: "run-1"}, runID: "run-async"},
		data: &fakeData{menu: []models.MenuItem{{ID: "1", Name: "Taco"}}},
		hub:  ws.NewHub(),
		jwt:  jwtManager,
	}
	a.token = token

	h := NewHandler(Dependencies{
		Connector: a.conn,
		Sync:      a.sync,
		Data:      a.data,
		Store:     fakePinger{err: storeErr},
		Hub:       a.hub,
	})
	a.handler = NewRouter(h, auth.NewMiddleware(jwtManager), &ChiMiddlewareConfig{RateLimitDisabled: true}).SetupChi()
	return a
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, target, body string, authed bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if authed {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}
