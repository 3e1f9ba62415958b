// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/models"
	syncpkg "github.com/fudi-pos/fudi/internal/sync"
)

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	for _, path := range []string{"/api/v1/data/menu", "/api/v1/poster/status", "/api/v1/poster/runs"} {
		rec, env := a.do(t, http.MethodGet, path, "", false)
		if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "AUTHENTICATION_ERROR" {
			t.Errorf("%s: %d %+v", path, rec.Code, env.Error)
		}
	}
	if len(a.data.tenants) != 0 || len(a.conn.tenants) != 0 {
		t.Error("handler reached without a token")
	}

	a.conn.callbackRes = &models.ActionResult{Success: true, Message: "Connected"}
	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/callback?code=c&state=s", "", false)
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Errorf("callback = %d %+v", rec.Code, env)
	}
	if a.conn.tenants[0] != "c/s" {
		t.Errorf("callback args = %v", a.conn.tenants)
	}
}

func TestPosterConnect(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/connect", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(env.Data, &body)
	if body["url"] != a.conn.authURL || a.conn.tenants[0] != "t1" {
		t.Errorf("body = %v, tenants = %v", body, a.conn.tenants)
	}

	rec, _ = a.do(t, http.MethodGet, "/api/v1/poster/connect?redirect=true", "", true)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != a.conn.authURL {
		t.Errorf("redirect = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPosterCallbackFailures(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/callback?error=access_denied", "", false)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "AUTHORIZATION_DENIED" {
		t.Errorf("denied = %d %+v", rec.Code, env.Error)
	}

	a.conn.callbackErr = syncpkg.ErrInvalidState
	a.conn.callbackRes = &models.ActionResult{Message: "expired"}
	rec, env = a.do(t, http.MethodGet, "/api/v1/poster/callback?code=c&state=old", "", false)
	if rec.Code != http.StatusBadRequest || env.Error.Code != codeInvalidState {
		t.Errorf("invalid state = %d %+v", rec.Code, env.Error)
	}
	if _, ok := env.Error.Details["result"]; !ok {
		t.Error("callback result missing from details")
	}
}

func TestPosterSync(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodPost, "/api/v1/poster/sync", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var res models.SyncResult
	_ = json.Unmarshal(env.Data, &res)
	if !res.Success || res.RunID != "run-1" {
		t.Errorf("result = %+v", res)
	}

	if got := a.sync.opts[0]; got != syncpkg.AllResources() {
		t.Errorf("empty body options = %+v, want all", got)
	}
	if a.sync.triggers[0] != models.TriggerManual {
		t.Errorf("trigger = %q", a.sync.triggers[0])
	}

	rec, env = a.do(t, http.MethodPost, "/api/v1/poster/sync", `{"menu":true}`, true)
	if rec.Code != http.StatusBadRequest || env.Error.Code != codeValidation {
		t.Errorf("unknown field = %d %+v", rec.Code, env.Error)
	}
}

func TestPosterSyncSelectionDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want syncpkg.Options
	}{
		{"empty object", `{}`, syncpkg.AllResources()},
		{"omitted keys stay selected", `{"sales":false}`, syncpkg.Options{Products: true, Inventory: true, Restaurant: true}},
		{"explicit true", `{"inventory":true}`, syncpkg.AllResources()},
		{"single resource", `{"products":false,"sales":false,"restaurant":false}`, syncpkg.Options{Inventory: true}},
		{"restaurant only", `{"products":false,"inventory":false,"sales":false,"restaurant":true}`, syncpkg.Options{Restaurant: true}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t, nil)
			rec, _ := a.do(t, http.MethodPost, "/api/v1/poster/sync", tt.body, true)
			if rec.Code != http.StatusOK || len(a.sync.opts) != 1 {
				t.Fatalf("status = %d, runs = %d", rec.Code, len(a.sync.opts))
			}
			if got := a.sync.opts[0]; got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPosterSyncNothingSelected(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	body := `{"products":false,"inventory":false,"sales":false,"restaurant":false}`
	for _, target := range []string{"/api/v1/poster/sync", "/api/v1/poster/sync?async=true"} {
		rec, env := a.do(t, http.MethodPost, target, body, true)
		if rec.Code != http.StatusBadRequest || env.Error.Code != codeValidation {
			t.Errorf("%s = %d %+v", target, rec.Code, env.Error)
		}
	}
	if len(a.sync.opts) != 0 {
		t.Errorf("sync started with nothing selected: %+v", a.sync.opts)
	}

	a.sync.err = syncpkg.ErrNoResources
	rec, env := a.do(t, http.MethodPost, "/api/v1/poster/sync", "", true)
	if rec.Code != http.StatusBadRequest || env.Error.Code != codeValidation {
		t.Errorf("orchestrator rejection = %d %+v", rec.Code, env.Error)
	}
}

func TestPosterSyncAsync(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodPost, "/api/v1/poster/sync?async=true", `{"sales":true}`, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(env.Data, &body)
	if body["run_id"] != "run-async" || body["status"] != models.SyncStatusProcessing {
		t.Errorf("body = %v", body)
	}

	a.sync.err = models.ErrAlreadyInProgress
	rec, env = a.do(t, http.MethodPost, "/api/v1/poster/sync?async=true", "", true)
	if rec.Code != http.StatusConflict || env.Error.Code != "ALREADY_IN_PROGRESS" {
		t.Errorf("busy = %d %+v", rec.Code, env.Error)
	}
}

func TestSyncErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		reconnect bool
	}{
		{"not connected", models.ErrNotConnected, http.StatusNotFound, "NOT_CONNECTED", false},
		{"reauth", fmt.Errorf("refresh: %w", models.ErrReauthRequired), http.StatusUnauthorized, "REAUTH_REQUIRED", true},
		{"busy", models.ErrAlreadyInProgress, http.StatusConflict, "ALREADY_IN_PROGRESS", false},
		{"upstream 5xx", fmt.Errorf("sales: %w", models.ErrAPIUnavailable), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", false},
		{"unreachable", models.ErrUnreachable, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", false},
		{"storage", fmt.Errorf("%w: put", models.ErrStorageFailure), http.StatusInternalServerError, "STORAGE_FAILURE", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t, nil)
			a.sync.err = tt.err
			a.sync.result = &models.SyncResult{Success: false, RunID: "run-x", Code: models.ErrorCode(tt.err)}

			rec, env := a.do(t, http.MethodPost, "/api/v1/poster/sync", "", true)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.code)
			}
			if env.Error.Message == "" {
				t.Error("empty message")
			}
			if got, _ := env.Error.Details["needs_reconnect"].(bool); got != tt.reconnect {
				t.Errorf("needs_reconnect = %v", got)
			}
			if _, ok := env.Error.Details["result"]; !ok {
				t.Error("partial result missing from details")
			}
		})
	}
}

func TestPosterStatusAndDisconnect(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)
	now := time.Now().UTC().Truncate(time.Second)
	a.conn.status = &models.ConnectionStatus{Connected: true, LastSync: &now, NeedsReconnect: true}

	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/status", "", true)
	var status models.ConnectionStatus
	_ = json.Unmarshal(env.Data, &status)
	if rec.Code != http.StatusOK || !status.Connected || !status.NeedsReconnect || !status.LastSync.Equal(now) {
		t.Errorf("status = %d %+v", rec.Code, status)
	}

	rec, env = a.do(t, http.MethodPost, "/api/v1/poster/disconnect", "", true)
	var res models.ActionResult
	_ = json.Unmarshal(env.Data, &res)
	if rec.Code != http.StatusOK || !res.Success {
		t.Errorf("disconnect = %d %+v", rec.Code, res)
	}

	rec, _ = a.do(t, http.MethodGet, "/api/v1/poster/disconnect", "", true)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET disconnect = %d", rec.Code)
	}
}

func TestDataEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/data/menu", "", true)
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("menu = %d %+v", rec.Code, env.Metadata)
	}
	var items []models.MenuItem
	_ = json.Unmarshal(env.Data, &items)
	if len(items) != 1 || items[0].Name != "Taco" {
		t.Errorf("items = %+v", items)
	}

	for _, path := range []string{"/api/v1/data/inventory", "/api/v1/data/sales", "/api/v1/data/alerts"} {
		rec, env := a.do(t, http.MethodGet, path, "", true)
		if rec.Code != http.StatusOK || env.Status != "success" {
			t.Errorf("%s = %d %+v", path, rec.Code, env.Error)
		}
	}
	for _, tenant := range a.data.tenants {
		if tenant != "t1" {
			t.Errorf("query for tenant %q", tenant)
		}
	}

	a.data.err = models.ErrNotSynced
	rec, env = a.do(t, http.MethodGet, "/api/v1/data/menu", "", true)
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_SYNCED" {
		t.Errorf("not synced = %d %+v", rec.Code, env.Error)
	}
}

func TestRestaurantEndpoint(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/data/restaurant", "", true)
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_SYNCED" {
		t.Errorf("before sync = %d %+v", rec.Code, env.Error)
	}

	a.data.restaurant = &models.Restaurant{ID: "1", TenantID: "t1", Name: "Centro", Currency: "MXN"}
	rec, env = a.do(t, http.MethodGet, "/api/v1/data/restaurant", "", true)
	var got models.Restaurant
	_ = json.Unmarshal(env.Data, &got)
	if rec.Code != http.StatusOK || got.Name != "Centro" || got.Currency != "MXN" {
		t.Errorf("restaurant = %d %+v", rec.Code, got)
	}
}

func TestPosterRunDetail(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)
	a.data.runs = map[string]*models.SyncRun{
		"r1":    {ID: "r1", TenantID: "t1", Status: models.SyncStatusError, Error: "boom"},
		"other": {ID: "other", TenantID: "t2"},
	}
	a.data.controls = []models.ResourceControl{
		{RunID: "r1", TenantID: "t1", Resource: models.ResourceMenu, Status: models.SyncStatusCompleted, ItemCount: 4},
		{RunID: "r1", TenantID: "t1", Resource: models.ResourceSales, Status: models.SyncStatusError, Error: "boom"},
	}

	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/runs/r1", "", true)
	var detail RunDetail
	_ = json.Unmarshal(env.Data, &detail)
	if rec.Code != http.StatusOK || detail.ID != "r1" || detail.Error != "boom" || len(detail.Controls) != 2 {
		t.Errorf("run detail = %d %+v", rec.Code, detail)
	}

	for _, id := range []string{"missing", "other"} {
		rec, env = a.do(t, http.MethodGet, "/api/v1/poster/runs/"+id, "", true)
		if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
			t.Errorf("run %s = %d %+v", id, rec.Code, env.Error)
		}
	}
}

func TestPosterErrors(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)
	a.data.errorLogs = []models.ErrorLog{{TenantID: "t1", Operation: "sync", Code: "UPSTREAM_UNAVAILABLE"}}

	rec, env := a.do(t, http.MethodGet, "/api/v1/poster/errors", "", true)
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 || a.data.limit != defaultErrorsLimit {
		t.Errorf("errors = %d %+v, limit %d", rec.Code, env.Metadata, a.data.limit)
	}
	rec, _ = a.do(t, http.MethodGet, "/api/v1/poster/errors?limit=500", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=500 = %d", rec.Code)
	}
	rec, _ = a.do(t, http.MethodGet, "/api/v1/poster/errors", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d", rec.Code)
	}
}

func TestSalesQueryValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"no filter", "", http.StatusOK},
		{"full filter", "?date_from=2026-03-01&date_to=2026-03-31&status=completed&limit=50", http.StatusOK},
		{"bad date", "?date_from=03-01-2026", http.StatusBadRequest},
		{"reversed range", "?date_from=2026-03-31&date_to=2026-03-01", http.StatusBadRequest},
		{"bad status", "?status=refunded", http.StatusBadRequest},
		{"limit not a number", "?limit=ten", http.StatusBadRequest},
		{"limit too large", "?limit=10001", http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t, nil)
			rec, env := a.do(t, http.MethodGet, "/api/v1/data/sales"+tt.query, "", true)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%+v)", rec.Code, tt.want, env.Error)
			}
			if tt.want == http.StatusBadRequest && env.Error.Code != codeValidation {
				t.Errorf("code = %s", env.Error.Code)
			}
		})
	}
}

func TestSalesFilterCoversWholeDay(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)
	_, _ = a.do(t, http.MethodGet, "/api/v1/data/sales?date_from=2026-03-01&date_to=2026-03-01&status=pending&limit=5", "", true)

	f := a.data.filter
	if f.DateFrom == nil || f.DateTo == nil {
		t.Fatalf("filter = %+v", f)
	}
	late := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	if f.DateTo.Before(late) || !f.DateFrom.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %v..%v", f.DateFrom, f.DateTo)
	}
	if f.Status != models.TransactionPending || f.Limit != 5 {
		t.Errorf("filter = %+v", f)
	}
}

func TestPosterRunsLimit(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, _ := a.do(t, http.MethodGet, "/api/v1/poster/runs", "", true)
	if rec.Code != http.StatusOK || a.data.limit != defaultRunsLimit {
		t.Errorf("default = %d, limit %d", rec.Code, a.data.limit)
	}
	rec, _ = a.do(t, http.MethodGet, "/api/v1/poster/runs?limit=0", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	rec, _ := a.do(t, http.MethodGet, "/api/v1/health/live", "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
	rec, _ = a.do(t, http.MethodGet, "/api/v1/health/ready", "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	down := newTestAPI(t, models.ErrStorageFailure)
	rec, env := down.do(t, http.MethodGet, "/api/v1/health/ready", "", false)
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != codeUnavailable {
		t.Errorf("ready with store down = %d %+v", rec.Code, env.Error)
	}
}

func TestNotFoundAndMetrics(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, env := a.do(t, http.MethodGet, "/api/v1/nope", "", false)
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route = %d %+v", rec.Code, env.Error)
	}

	rec, _ = a.do(t, http.MethodGet, "/metrics", "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics = %d", rec.Code)
	}
}

func TestSwaggerDocs(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t, nil)

	rec, _ := a.do(t, http.MethodGet, "/swagger/index.html", "", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Errorf("index = %d", rec.Code)
	}

	rec, _ = a.do(t, http.MethodGet, "/swagger/doc.json", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("doc.json = %d", rec.Code)
	}
	var doc struct {
		Info  struct{ Title string } `json:"info"`
		Paths map[string]json.RawMessage
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	for _, path := range []string{"/poster/sync", "/poster/runs/{id}", "/poster/errors", "/data/restaurant"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("doc.json missing %s", path)
		}
	}
	if doc.Info.Title != "Fudi API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
}

func TestStatusForError(t *testing.T) {
	t.Parallel()
	if got := statusForError(fmt.Errorf("x: %w", syncpkg.ErrInvalidState)); got != http.StatusBadRequest {
		t.Errorf("invalid state = %d", got)
	}
	if got := statusForError(models.ErrUpstreamDataMissing); got != http.StatusBadGateway {
		t.Errorf("data missing = %d", got)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
