// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
	"github.com/fudi-pos/fudi/internal/models"
)

// DefaultStaleAfter is the age after which NeedsSync reports true.
const DefaultStaleAfter = 24 * time.Hour

// TokenSource is the credential side of the orchestrator.
// *tokenstore.Store implements it.
type TokenSource interface {
	Get(ctx context.Context, tenantID string) (*models.Credential, error)
	GetValidToken(ctx context.Context, tenantID string) (*models.Credential, error)
	UpdateSyncState(ctx context.Context, tenantID string, fn func(*models.Credential) error) (*models.Credential, error)
	ListConnected(ctx context.Context) ([]string, error)
}

// ErrorLogger writes best-effort error log entries.
type ErrorLogger interface {
	LogError(ctx context.Context, entry *models.ErrorLog)
}

// RunRecorder persists run history. *data.Facade implements it.
type RunRecorder interface {
	ErrorLogger
	SaveRun(ctx context.Context, run *models.SyncRun) error
	SaveControl(ctx context.Context, c *models.ResourceControl) error
	LatestRun(ctx context.Context, tenantID string) (*models.SyncRun, error)
}

// EventPublisher publishes terminal run events.
// Implemented by internal/events.Publisher.
type EventPublisher interface {
	PublishSyncRun(ctx context.Context, run *models.SyncRun) error
}

// WebSocketHub broadcasts messages to connected browsers.
// Implemented by internal/websocket.Hub.
type WebSocketHub interface {
	BroadcastToTenant(tenantID, messageType string, data interface{})
}

// ErrNoResources rejects a run whose options select nothing.
var ErrNoResources = errors.New("no resources selected")

// Options selects the resources of a run.
type Options struct {
	Products   bool `json:"products"`
	Inventory  bool `json:"inventory"`
	Sales      bool `json:"sales"`
	Restaurant bool `json:"restaurant"`
}

// AllResources selects every resource.
func AllResources() Options {
	return Options{Products: true, Inventory: true, Sales: true, Restaurant: true}
}

// Resources lists the selected resources in reporting order.
func (o Options) Resources() []models.Resource {
	var out []models.Resource
	if o.Products {
		out = append(out, models.ResourceMenu)
	}
	if o.Inventory {
		out = append(out, models.ResourceInventory)
	}
	if o.Sales {
		out = append(out, models.ResourceSales)
	}
	if o.Restaurant {
		out = append(out, models.ResourceRestaurant)
	}
	return out
}

// Orchestrator runs the resource syncers for a tenant.
type Orchestrator struct {
	tokens  TokenSource
	runs    RunRecorder
	syncers map[models.Resource]ResourceSyncer

	mu        sync.RWMutex
	publisher EventPublisher
	hub       WebSocketHub

	now   func() time.Time
	newID func() string

	// background tracks runs started with StartAsync.
	background sync.WaitGroup
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorClock sets the time source.
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunIDs sets the run id generator.
func WithRunIDs(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = fn }
}

// NewOrchestrator wires the syncers. A resource without a syncer fails
// when selected.
func NewOrchestrator(tokens TokenSource, runs RunRecorder, syncers []ResourceSyncer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		tokens:  tokens,
		runs:    runs,
		syncers: make(map[models.Resource]ResourceSyncer, len(syncers)),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, s := range syncers {
		o.syncers[s.Resource()] = s
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetEventPublisher sets the optional event publisher.
func (o *Orchestrator) SetEventPublisher(p EventPublisher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publisher = p
}

// SetWebSocketHub sets the optional websocket hub.
func (o *Orchestrator) SetWebSocketHub(h WebSocketHub) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hub = h
}

// SyncAll runs every resource for the tenant.
func (o *Orchestrator) SyncAll(ctx context.Context, tenantID string) (*models.SyncResult, error) {
	return o.Run(ctx, tenantID, AllResources(), models.TriggerManual)
}

// SyncSelective runs the selected resources for the tenant.
func (o *Orchestrator) SyncSelective(ctx context.Context, tenantID string, opts Options) (*models.SyncResult, error) {
	return o.Run(ctx, tenantID, opts, models.TriggerManual)
}

// Run performs a complete run and returns its outcome. The returned
// result is never nil; err is non-nil exactly when the result reports
// failure.
func (o *Orchestrator) Run(ctx context.Context, tenantID string, opts Options, trigger string) (*models.SyncResult, error) {
	ctx = context.WithoutCancel(ctx)
	run, err := o.begin(ctx, tenantID, opts, trigger)
	if err != nil {
		return o.rejected(ctx, tenantID, err), err
	}
	return o.execute(ctx, run)
}

// StartAsync performs the start transition synchronously, so an
// overlapping run is reported to the caller, then runs the syncers in the
// background. It returns the new run's id.
func (o *Orchestrator) StartAsync(ctx context.Context, tenantID string, opts Options, trigger string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	run, err := o.begin(ctx, tenantID, opts, trigger)
	if err != nil {
		o.rejected(ctx, tenantID, err)
		return "", err
	}

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		if _, err := o.execute(ctx, run); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("run_id", run.ID).Msg("background sync finished with error")
		}
	}()
	return run.ID, nil
}

// Wait blocks until every background run has finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// NeedsSync reports whether the tenant has never synced or its last
// successful sync is older than maxAge.
func (o *Orchestrator) NeedsSync(ctx context.Context, tenantID string, maxAge time.Duration) (bool, error) {
	if maxAge <= 0 {
		maxAge = DefaultStaleAfter
	}
	cred, err := o.tokens.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if cred.LastSync == nil {
		return true, nil
	}
	return o.now().Sub(*cred.LastSync) > maxAge, nil
}

// ResetInterrupted clears in-progress flags left behind by a process that
// stopped mid-run and marks those runs as failed. It is called once at
// startup, before any run can begin.
func (o *Orchestrator) ResetInterrupted(ctx context.Context) (int, error) {
	tenants, err := o.tokens.ListConnected(ctx)
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, tenantID := range tenants {
		var runID string
		_, err := o.tokens.UpdateSyncState(ctx, tenantID, func(c *models.Credential) error {
			if !c.SyncInProgress {
				return errNothingToReset
			}
			now := o.now()
			runID = c.LastRunID
			c.SyncInProgress = false
			c.SyncStartedAt = nil
			c.SyncError = errInterrupted.Error()
			c.SyncErrorCode = models.ErrorCode(errInterrupted)
			c.SyncErrorAt = &now
			return nil
		})
		switch {
		case errors.Is(err, errNothingToReset):
			continue
		case err != nil:
			logging.Ctx(ctx).Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to reset interrupted sync")
			continue
		}
		reset++

		if run, err := o.runs.LatestRun(ctx, tenantID); err == nil && run.ID == runID && run.Status == models.SyncStatusProcessing {
			now := o.now()
			run.Status = models.SyncStatusError
			run.CompletedAt = &now
			run.Error = errInterrupted.Error()
			run.ErrorCode = models.ErrorCode(errInterrupted)
			if err := o.runs.SaveRun(ctx, run); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("failed to close interrupted run")
			}
		}
		logging.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("run_id", runID).Msg("reset interrupted sync")
	}
	return reset, nil
}

var (
	errNothingToReset = errors.New("no run in progress")
	errInterrupted    = errors.New("sync interrupted by shutdown")
)

// begin is the idle -> starting transition.
func (o *Orchestrator) begin(ctx context.Context, tenantID string, opts Options, trigger string) (*models.SyncRun, error) {
	resources := opts.Resources()
	if len(resources) == 0 {
		return nil, ErrNoResources
	}

	now := o.now()
	run := &models.SyncRun{
		ID:        o.newID(),
		TenantID:  tenantID,
		Trigger:   trigger,
		Status:    models.SyncStatusProcessing,
		Resources: resources,
		StartedAt: now,
	}

	_, err := o.tokens.UpdateSyncState(ctx, tenantID, func(c *models.Credential) error {
		if !c.Connected {
			return models.ErrNotConnected
		}
		if c.SyncInProgress {
			return models.ErrAlreadyInProgress
		}
		c.SyncInProgress = true
		c.SyncStartedAt = &now
		c.LastRunID = run.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyInProgress) {
			metrics.SyncInProgressRejections.Inc()
		}
		return nil, err
	}

	if err := o.runs.SaveRun(ctx, run); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("failed to record sync run start")
	}
	o.broadcast(tenantID, "sync_started", run)

	logging.Ctx(ctx).Info().
		Str("tenant_id", tenantID).
		Str("run_id", run.ID).
		Str("trigger", trigger).
		Interface("resources", resources).
		Msg("sync started")
	return run, nil
}

type outcome struct {
	resource models.Resource
	result   Result
	err      error
	// seq is the order in which the resource finished, starting at 1.
	seq int64
}

// execute is starting -> running -> completed|error.
func (o *Orchestrator) execute(ctx context.Context, run *models.SyncRun) (*models.SyncResult, error) {
	ctx = logging.ContextWithTenantID(ctx, run.TenantID)

	cred, err := o.tokens.GetValidToken(ctx, run.TenantID)
	if err != nil {
		return o.finish(ctx, run, nil, err)
	}

	outcomes := make([]outcome, len(run.Resources))
	var (
		wg       sync.WaitGroup
		finished atomic.Int64
	)
	for i, r := range run.Resources {
		wg.Add(1)
		go func(i int, r models.Resource) {
			defer wg.Done()
			outcomes[i] = o.syncResource(ctx, run, r, cred.AccessToken, &finished)
		}(i, r)
	}
	wg.Wait()

	return o.finish(ctx, run, outcomes, nil)
}

func (o *Orchestrator) syncResource(ctx context.Context, run *models.SyncRun, r models.Resource, token string, finished *atomic.Int64) outcome {
	control := &models.ResourceControl{
		RunID:     run.ID,
		TenantID:  run.TenantID,
		Resource:  r,
		Status:    models.SyncStatusProcessing,
		StartedAt: o.now(),
	}
	o.saveControl(ctx, control)

	out := outcome{resource: r}
	if s, ok := o.syncers[r]; ok {
		out.result, out.err = s.Sync(ctx, run.TenantID, token)
	} else {
		out.err = errors.New("no syncer configured for " + string(r))
	}
	out.seq = finished.Add(1)

	done := o.now()
	control.CompletedAt = &done
	control.ItemCount = out.result.Count
	if out.err != nil {
		control.Status = models.SyncStatusError
		control.Error = out.err.Error()
		logging.Ctx(ctx).Warn().Err(out.err).Str("resource", string(r)).Str("run_id", run.ID).Msg("resource sync failed")
	} else {
		control.Status = models.SyncStatusCompleted
		logging.Ctx(ctx).Info().
			Str("resource", string(r)).
			Int("count", out.result.Count).
			Int("written", out.result.Written).
			Int("skipped", out.result.Skipped).
			Msg("resource synced")
	}
	o.saveControl(ctx, control)
	metrics.RecordResourceSync(string(r), out.result.Count, out.err)
	o.broadcast(run.TenantID, "sync_progress", control)
	return out
}

func (o *Orchestrator) saveControl(ctx context.Context, c *models.ResourceControl) {
	if err := o.runs.SaveControl(ctx, c); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("resource", string(c.Resource)).Msg("failed to record resource control")
	}
}

// finish persists the terminal state. fatal is set when no syncer ran.
// Otherwise the run error is the first resource error to complete.
func (o *Orchestrator) finish(ctx context.Context, run *models.SyncRun, outcomes []outcome, fatal error) (*models.SyncResult, error) {
	runErr := fatal
	var firstSeq int64
	for _, out := range outcomes {
		if out.err != nil {
			if run.ResourceErrors == nil {
				run.ResourceErrors = make(map[models.Resource]string)
			}
			run.ResourceErrors[out.resource] = out.err.Error()
			if fatal == nil && (runErr == nil || out.seq < firstSeq) {
				runErr, firstSeq = out.err, out.seq
			}
			continue
		}
		run.Counts.Set(out.resource, out.result.Count)
	}

	completed := o.now()
	run.CompletedAt = &completed
	if runErr != nil {
		run.Status = models.SyncStatusError
		run.Error = runErr.Error()
		run.ErrorCode = models.ErrorCode(runErr)
	} else {
		run.Status = models.SyncStatusCompleted
	}

	_, err := o.tokens.UpdateSyncState(ctx, run.TenantID, func(c *models.Credential) error {
		c.SyncInProgress = false
		c.SyncStartedAt = nil
		counts := models.SyncCounts{}
		if c.SyncCounts != nil {
			counts = *c.SyncCounts
		}
		for _, out := range outcomes {
			if out.err == nil {
				counts.Set(out.resource, out.result.Count)
			}
		}
		if len(outcomes) > 0 {
			c.SyncCounts = &counts
		}

		if runErr != nil {
			c.SyncError = runErr.Error()
			c.SyncErrorCode = run.ErrorCode
			c.SyncErrorAt = &completed
			c.NeedsReconnect = models.NeedsReconnect(runErr)
			return nil
		}
		c.LastSync = &completed
		c.SyncError = ""
		c.SyncErrorCode = ""
		c.SyncErrorAt = nil
		c.NeedsReconnect = false
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("run_id", run.ID).Msg("failed to persist sync state")
	}
	if err := o.runs.SaveRun(ctx, run); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("run_id", run.ID).Msg("failed to record sync run")
	}

	metrics.RecordSyncRun(run.Trigger, run.Status, run.Duration())
	o.notify(ctx, run)

	result := &models.SyncResult{
		Success: runErr == nil,
		RunID:   run.ID,
		Counts:  run.Counts.Outbound(),
	}
	if runErr != nil {
		o.logError(ctx, run.TenantID, "sync", runErr)
		result.Message = models.FriendlyMessage(runErr)
		result.Error = runErr.Error()
		result.Code = run.ErrorCode
		logging.Ctx(ctx).Warn().Err(runErr).Str("run_id", run.ID).Dur("duration", run.Duration()).Msg("sync failed")
		return result, runErr
	}

	result.Message = "Synchronization completed"
	logging.Ctx(ctx).Info().
		Str("run_id", run.ID).
		Dur("duration", run.Duration()).
		Int("products", run.Counts.Menu).
		Int("inventory", run.Counts.Inventory).
		Int("sales", run.Counts.Transactions).
		Int("restaurant", run.Counts.Restaurant).
		Msg("sync completed")
	return result, nil
}

// rejected builds the result for a run that never started.
func (o *Orchestrator) rejected(ctx context.Context, tenantID string, err error) *models.SyncResult {
	if !errors.Is(err, models.ErrAlreadyInProgress) && !errors.Is(err, ErrNoResources) {
		o.logError(ctx, tenantID, "sync", err)
	}
	return &models.SyncResult{
		Success: false,
		Message: models.FriendlyMessage(err),
		Error:   err.Error(),
		Code:    models.ErrorCode(err),
	}
}

func (o *Orchestrator) logError(ctx context.Context, tenantID, operation string, err error) {
	o.runs.LogError(ctx, &models.ErrorLog{
		TenantID:        tenantID,
		Source:          models.SourcePoster,
		Operation:       operation,
		Code:            models.ErrorCode(err),
		Message:         err.Error(),
		FriendlyMessage: models.FriendlyMessage(err),
		Timestamp:       o.now(),
	})
}

// notify announces a terminal run. With an event bus the websocket bridge
// relays it; without one the hub is told directly.
func (o *Orchestrator) notify(ctx context.Context, run *models.SyncRun) {
	o.mu.RLock()
	publisher := o.publisher
	o.mu.RUnlock()

	if publisher != nil {
		if err := publisher.PublishSyncRun(ctx, run); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("failed to publish sync event")
			o.broadcast(run.TenantID, TerminalMessageType(run), run)
		}
		return
	}
	o.broadcast(run.TenantID, TerminalMessageType(run), run)
}

// TerminalMessageType is the websocket message type for a finished run.
func TerminalMessageType(run *models.SyncRun) string {
	if run.Status == models.SyncStatusCompleted {
		return "sync_completed"
	}
	return "sync_failed"
}

func (o *Orchestrator) broadcast(tenantID, messageType string, payload interface{}) {
	o.mu.RLock()
	hub := o.hub
	o.mu.RUnlock()
	if hub != nil {
		hub.BroadcastToTenant(tenantID, messageType, payload)
	}
}
