// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/store"
)

// errorLogRetention bounds how long error log entries are kept.
const errorLogRetention = 30 * 24 * time.Hour

// SaveRun writes the run under its id and as the tenant's latest run in
// one transaction.
func (f *Facade) SaveRun(ctx context.Context, run *models.SyncRun) error {
	return f.db.PutBatch(ctx, []store.Doc{
		{Key: store.Key(prefixRun, run.TenantID, run.ID), Value: run},
		{Key: store.Key(prefixRunLatest, run.TenantID), Value: run},
	})
}

// LatestRun returns the tenant's most recent run, or store.ErrNotFound.
func (f *Facade) LatestRun(ctx context.Context, tenantID string) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := f.db.Get(ctx, store.Key(prefixRunLatest, tenantID), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun returns one run of the tenant, or store.ErrNotFound.
func (f *Facade) GetRun(ctx context.Context, tenantID, runID string) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := f.db.Get(ctx, store.Key(prefixRun, tenantID, runID), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetSyncRuns returns up to limit runs for the tenant, newest first.
func (f *Facade) GetSyncRuns(ctx context.Context, tenantID string, limit int) ([]models.SyncRun, error) {
	runs, err := store.List[models.SyncRun](ctx, f.db, store.Prefix(prefixRun, tenantID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return nonNil(runs), nil
}

// SaveControl records the state of one resource within a run.
func (f *Facade) SaveControl(ctx context.Context, c *models.ResourceControl) error {
	return f.db.Put(ctx, store.Key(prefixControl, c.TenantID, c.RunID, string(c.Resource)), c)
}

// GetControls returns the per-resource records of one run.
func (f *Facade) GetControls(ctx context.Context, tenantID, runID string) ([]models.ResourceControl, error) {
	controls, err := store.List[models.ResourceControl](ctx, f.db, store.Prefix(prefixControl, tenantID, runID))
	return nonNil(controls), err
}

// LogError persists an error log entry. It never fails: storage problems
// are logged and dropped.
func (f *Facade) LogError(ctx context.Context, entry *models.ErrorLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	key := store.Key(prefixErrorLog, entry.TenantID, entry.Timestamp.UTC().Format(time.RFC3339Nano))
	if err := f.db.PutWithTTL(ctx, key, entry, errorLogRetention); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("tenant_id", entry.TenantID).
			Str("operation", entry.Operation).
			Msg("failed to write error log")
	}
}

// GetErrorLogs returns the tenant's recent error log entries, newest first.
func (f *Facade) GetErrorLogs(ctx context.Context, tenantID string, limit int) ([]models.ErrorLog, error) {
	logs, err := store.List[models.ErrorLog](ctx, f.db, store.Prefix(prefixErrorLog, tenantID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return nonNil(logs), nil
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func unmarshal(key string, val []byte, v interface{}) error {
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
