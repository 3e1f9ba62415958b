// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
)

// APIClient fetches one Poster API method. *poster.Client implements it.
type APIClient interface {
	Get(ctx context.Context, method, token string, params url.Values) (json.RawMessage, error)
}

// BatchWriter persists one atomic batch. *data.Facade implements it.
type BatchWriter interface {
	WriteBatch(ctx context.Context, tenantID string, b data.Batch) (int, error)
}

// Result is the outcome of one syncer run.
type Result struct {
	// Count is the number of records normalized and upserted.
	Count int
	// Written is how many documents actually changed.
	Written int
	// Skipped counts upstream elements that could not be mapped.
	Skipped int
	// Alerts is the number of low-stock alerts in the batch.
	Alerts int
}

// ResourceSyncer fetches and stores one resource type for a tenant.
type ResourceSyncer interface {
	Resource() models.Resource
	Sync(ctx context.Context, tenantID, token string) (Result, error)
}

// RetryPolicy controls FetchWithRetry for every vendor call of a syncer.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Sleep replaces the real wait; tests use it to record delays.
	Sleep poster.SleepFunc
}

// DefaultRetryPolicy is 3 attempts with 1s then 2s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: poster.DefaultRetryAttempts, Backoff: poster.DefaultRetryBackoff}
}

// base holds what every syncer shares.
type base struct {
	api    APIClient
	writer BatchWriter
	retry  RetryPolicy
	now    func() time.Time
}

func newBase(api APIClient, writer BatchWriter, retry RetryPolicy) base {
	if retry.Attempts <= 0 {
		retry.Attempts = poster.DefaultRetryAttempts
	}
	if retry.Backoff <= 0 {
		retry.Backoff = poster.DefaultRetryBackoff
	}
	return base{api: api, writer: writer, retry: retry, now: time.Now}
}

func (b *base) fetch(ctx context.Context, method, token string, params url.Values) (json.RawMessage, error) {
	opts := []poster.RetryOption{poster.WithLabel(method)}
	if b.retry.Sleep != nil {
		opts = append(opts, poster.WithSleep(b.retry.Sleep))
	}
	return poster.FetchWithRetry(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return b.api.Get(ctx, method, token, params)
	}, b.retry.Attempts, b.retry.Backoff, opts...)
}

// decode turns a payload into records; a payload of the wrong shape counts
// as missing upstream data.
func decode[T any](ctx context.Context, method string, payload json.RawMessage) ([]poster.Record[T], int, error) {
	page, err := decodePage[T](ctx, method, payload)
	return page.Records, page.Skipped, err
}

func decodePage[T any](ctx context.Context, method string, payload json.RawMessage) (poster.Page[T], error) {
	page, err := poster.DecodePage[T](payload)
	if err != nil {
		return page, fmt.Errorf("%w: %s: %w", models.ErrUpstreamDataMissing, method, err)
	}
	if page.Skipped > 0 {
		logging.Ctx(ctx).Warn().Str("method", method).Int("skipped", page.Skipped).Msg("skipped malformed poster records")
	}
	return page, nil
}
