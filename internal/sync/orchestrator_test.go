// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
	"github.com/fudi-pos/fudi/internal/store"
)

func TestSyncAllSuccess(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	ctx := context.Background()

	res, err := h.orch.SyncAll(ctx, "t1")
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if !res.Success || res.Counts != (models.Counts{Products: 2, Inventory: 2, Sales: 2, Restaurant: 1}) {
		t.Errorf("result = %+v", res)
	}
	for _, tok := range h.api.tokens {
		if tok != "access-t1" {
			t.Fatalf("fetch used token %q", tok)
		}
	}

	cred := h.credential(t, "t1")
	if cred.SyncInProgress || cred.LastSync == nil || cred.SyncError != "" {
		t.Errorf("credential = %+v", cred)
	}
	if cred.SyncCounts == nil || cred.SyncCounts.Transactions != 2 {
		t.Errorf("credential counts = %+v", cred.SyncCounts)
	}

	run, err := h.facade.LatestRun(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != res.RunID || run.Status != models.SyncStatusCompleted || run.CompletedAt == nil || run.Trigger != models.TriggerManual {
		t.Errorf("run = %+v", run)
	}
	controls, _ := h.facade.GetControls(ctx, "t1", run.ID)
	if len(controls) != len(models.AllResources) {
		t.Errorf("controls = %d, want %d", len(controls), len(models.AllResources))
	}
	for _, c := range controls {
		if c.Status != models.SyncStatusCompleted {
			t.Errorf("control %s = %s", c.Resource, c.Status)
		}
	}

	types := h.hub.types()
	if types[0] != "sync_started" || types[len(types)-1] != "sync_completed" {
		t.Errorf("hub messages = %v", types)
	}

	if _, err := h.facade.GetMenu(ctx, "t1"); err != nil {
		t.Errorf("GetMenu() after sync error = %v", err)
	}
	if r, err := h.facade.GetRestaurant(ctx, "t1"); err != nil || r.Name != "Centro" {
		t.Errorf("GetRestaurant() after sync = %+v, %v", r, err)
	}
}

func TestSyncSelective(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()

	res, err := h.orch.SyncSelective(context.Background(), "t1", Options{Inventory: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Counts != (models.Counts{Inventory: 2}) {
		t.Errorf("counts = %+v", res.Counts)
	}
	if h.api.callCount(poster.MethodProducts) != 0 || h.api.callCount(poster.MethodTransactions) != 0 || h.api.callCount(poster.MethodSpots) != 0 {
		t.Error("unselected resources were fetched")
	}
}

func TestSyncEmptySelectionRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	ctx := context.Background()

	res, err := h.orch.SyncSelective(ctx, "t1", Options{})
	if !errors.Is(err, ErrNoResources) || res.Success {
		t.Fatalf("SyncSelective(none) = %+v, %v", res, err)
	}
	if len(h.api.tokens) != 0 {
		t.Error("Poster was called for an empty selection")
	}
	if h.credential(t, "t1").SyncInProgress {
		t.Error("empty selection left the in-progress flag set")
	}
	if logs, _ := h.facade.GetErrorLogs(ctx, "t1", 0); len(logs) != 0 {
		t.Errorf("error logs = %+v", logs)
	}
}

func TestSyncAlreadyInProgress(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	ctx := context.Background()

	_, err := h.tokens.UpdateSyncState(ctx, "t1", func(c *models.Credential) error {
		c.SyncInProgress = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.orch.SyncAll(ctx, "t1")
	if !errors.Is(err, models.ErrAlreadyInProgress) {
		t.Fatalf("error = %v, want ErrAlreadyInProgress", err)
	}
	if res.Success || res.Code != "ALREADY_IN_PROGRESS" {
		t.Errorf("result = %+v", res)
	}
	if len(h.api.tokens) != 0 {
		t.Error("Poster was called while a run was in progress")
	}
	if _, err := h.facade.LatestRun(ctx, "t1"); err == nil {
		t.Error("a rejected run must not be recorded")
	}
}

func TestConcurrentSyncsOnlyOneRuns(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.orch.SyncAll(context.Background(), "t1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrAlreadyInProgress):
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if succeeded < 1 {
		t.Error("no run succeeded")
	}
	if h.credential(t, "t1").SyncInProgress {
		t.Error("in-progress flag left set")
	}
}

func TestSyncPartialFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	h.api.set(poster.MethodTransactions, fakeResponse{err: errUnavailable(poster.MethodTransactions)})
	ctx := context.Background()

	res, err := h.orch.SyncAll(ctx, "t1")
	if !errors.Is(err, models.ErrAPIUnavailable) {
		t.Fatalf("error = %v, want ErrAPIUnavailable", err)
	}
	if res.Success || res.Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("result = %+v", res)
	}
	if res.Counts.Products != 2 || res.Counts.Inventory != 2 || res.Counts.Sales != 0 {
		t.Errorf("counts = %+v", res.Counts)
	}

	if n, _ := h.db.Count(ctx, store.Prefix("menu", "t1")); n != 2 {
		t.Errorf("menu docs = %d, completed resources must be kept", n)
	}
	if n, _ := h.db.Count(ctx, store.Prefix("inventory", "t1")); n != 2 {
		t.Errorf("inventory docs = %d", n)
	}

	run, _ := h.facade.LatestRun(ctx, "t1")
	if run.Status != models.SyncStatusError || !strings.Contains(run.Error, "service unavailable") {
		t.Errorf("run = %+v", run)
	}
	if _, ok := run.ResourceErrors[models.ResourceSales]; !ok || len(run.ResourceErrors) != 1 {
		t.Errorf("resource errors = %v", run.ResourceErrors)
	}

	cred := h.credential(t, "t1")
	if cred.SyncInProgress || cred.LastSync != nil || !strings.Contains(cred.SyncError, "service unavailable") {
		t.Errorf("credential = %+v", cred)
	}
	if cred.SyncCounts == nil || cred.SyncCounts.Menu != 2 {
		t.Errorf("credential counts = %+v", cred.SyncCounts)
	}

	logs, _ := h.facade.GetErrorLogs(ctx, "t1", 0)
	if len(logs) != 1 || logs[0].Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("error logs = %+v", logs)
	}
	if types := h.hub.types(); types[len(types)-1] != "sync_failed" {
		t.Errorf("hub messages = %v", types)
	}

	// The failed state is re-enterable.
	h.api.ok(poster.MethodTransactions, `[]`)
	if _, err := h.orch.SyncAll(ctx, "t1"); err != nil {
		t.Errorf("retry after failure error = %v", err)
	}
	if cred := h.credential(t, "t1"); cred.SyncError != "" || cred.LastSync == nil {
		t.Errorf("credential after recovery = %+v", cred)
	}
}

func TestSyncNotConnected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.orch.SyncAll(ctx, "ghost"); !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("unknown tenant error = %v", err)
	}

	h.connect(t, "t1")
	if err := h.tokens.Revoke(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	res, err := h.orch.SyncAll(ctx, "t1")
	if !errors.Is(err, models.ErrNotConnected) || res.Code != "NOT_CONNECTED" {
		t.Errorf("revoked tenant = %+v, %v", res, err)
	}
}

func TestSyncReauthRequired(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.tokens.StoreFromExchange(ctx, "t1", &poster.ExchangeResult{
		AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	h.oauth.refreshErr = &poster.APIError{Method: "auth/refresh", Status: 401, Message: "expired"}

	res, err := h.orch.SyncAll(ctx, "t1")
	if !errors.Is(err, models.ErrReauthRequired) || res.Code != "REAUTH_REQUIRED" {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if len(h.api.tokens) != 0 {
		t.Error("fetch attempted without a valid token")
	}
	cred := h.credential(t, "t1")
	if cred.SyncInProgress || cred.SyncErrorCode != "REAUTH_REQUIRED" || !cred.NeedsReconnect {
		t.Errorf("credential = %+v", cred)
	}
	run, _ := h.facade.LatestRun(ctx, "t1")
	if run.Status != models.SyncStatusError {
		t.Errorf("run status = %s", run.Status)
	}
}

func TestSyncRefreshesExpiredToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.stockPoster()
	ctx := context.Background()
	_, err := h.tokens.StoreFromExchange(ctx, "t1", &poster.ExchangeResult{
		AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.orch.SyncAll(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	for _, tok := range h.api.tokens {
		if tok != "refreshed" {
			t.Fatalf("fetch used token %q, want refreshed", tok)
		}
	}
}

func TestStartAsync(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	ctx, cancel := context.WithCancel(context.Background())

	runID, err := h.orch.StartAsync(ctx, "t1", AllResources(), models.TriggerCallback)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	h.orch.Wait()

	run, err := h.facade.LatestRun(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != runID || run.Status != models.SyncStatusCompleted || run.Trigger != models.TriggerCallback {
		t.Errorf("run = %+v; a canceled caller must not abandon the run", run)
	}
}

func TestNeedsSync(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	ctx := context.Background()

	if ok, err := h.orch.NeedsSync(ctx, "t1", time.Hour); err != nil || !ok {
		t.Errorf("never synced NeedsSync() = %v, %v", ok, err)
	}

	recent := time.Now().Add(-30 * time.Minute)
	_, _ = h.tokens.UpdateSyncState(ctx, "t1", func(c *models.Credential) error {
		c.LastSync = &recent
		return nil
	})
	if ok, _ := h.orch.NeedsSync(ctx, "t1", time.Hour); ok {
		t.Error("fresh data reported stale")
	}
	if ok, _ := h.orch.NeedsSync(ctx, "t1", 10*time.Minute); !ok {
		t.Error("old data reported fresh")
	}
}

func TestResetInterrupted(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.connect(t, "t2")
	ctx := context.Background()

	run := &models.SyncRun{ID: "r1", TenantID: "t1", Status: models.SyncStatusProcessing, StartedAt: time.Now()}
	if err := h.facade.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	_, _ = h.tokens.UpdateSyncState(ctx, "t1", func(c *models.Credential) error {
		c.SyncInProgress = true
		c.LastRunID = "r1"
		return nil
	})

	n, err := h.orch.ResetInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ResetInterrupted() = %d, %v", n, err)
	}
	if h.credential(t, "t1").SyncInProgress {
		t.Error("flag not cleared")
	}
	latest, _ := h.facade.LatestRun(ctx, "t1")
	if latest.Status != models.SyncStatusError || latest.CompletedAt == nil {
		t.Errorf("interrupted run = %+v", latest)
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	runs []*models.SyncRun
	err  error
}

func (p *recordingPublisher) PublishSyncRun(_ context.Context, run *models.SyncRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run)
	return p.err
}

func TestEventPublisherReplacesDirectBroadcast(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")
	h.stockPoster()
	pub := &recordingPublisher{}
	h.orch.SetEventPublisher(pub)

	if _, err := h.orch.SyncAll(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if len(pub.runs) != 1 || pub.runs[0].Status != models.SyncStatusCompleted {
		t.Errorf("published = %+v", pub.runs)
	}
	for _, typ := range h.hub.types() {
		if typ == "sync_completed" {
			t.Error("terminal message broadcast directly while an event bus is set")
		}
	}

	pub.err = errBoom
	if _, err := h.orch.SyncAll(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	types := h.hub.types()
	if types[len(types)-1] != "sync_completed" {
		t.Errorf("publish failure should fall back to the hub, got %v", types)
	}
}

// gatedSyncer finishes only when release is closed.
type gatedSyncer struct {
	resource models.Resource
	release  chan struct{}
	err      error
}

func (g *gatedSyncer) Resource() models.Resource { return g.resource }

func (g *gatedSyncer) Sync(context.Context, string, string) (Result, error) {
	<-g.release
	return Result{}, g.err
}

func TestRunErrorIsFirstToComplete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.connect(t, "t1")

	errMenu := errors.New("menu failed")
	errSales := errors.New("sales failed")
	menu := &gatedSyncer{resource: models.ResourceMenu, release: make(chan struct{}), err: errMenu}
	sales := &gatedSyncer{resource: models.ResourceSales, release: make(chan struct{}), err: errSales}
	orch := NewOrchestrator(h.tokens, h.facade, []ResourceSyncer{menu, sales})

	done := make(chan error, 1)
	go func() {
		_, err := orch.SyncSelective(context.Background(), "t1", Options{Products: true, Sales: true})
		done <- err
	}()

	close(sales.release)
	// Wait until the sales control is recorded as finished before letting
	// the menu syncer return.
	deadline := time.Now().Add(5 * time.Second)
	for {
		cred := h.credential(t, "t1")
		controls, _ := h.facade.GetControls(context.Background(), "t1", cred.LastRunID)
		finished := false
		for _, c := range controls {
			if c.Resource == models.ResourceSales && c.CompletedAt != nil {
				finished = true
			}
		}
		if finished {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sales syncer never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(menu.release)

	err := <-done
	if !errors.Is(err, errSales) {
		t.Fatalf("run error = %v, want the sales error that completed first", err)
	}
	run, _ := h.facade.LatestRun(context.Background(), "t1")
	if run.Error != errSales.Error() || len(run.ResourceErrors) != 2 {
		t.Errorf("run = %+v", run)
	}
}
