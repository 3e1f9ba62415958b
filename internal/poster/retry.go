// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"context"
	"time"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
)

// Defaults for FetchWithRetry: three attempts, waiting 1s then 2s.
const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type retryOptions struct {
	sleep SleepFunc
	label string
}

// RetryOption customizes FetchWithRetry.
type RetryOption func(*retryOptions)

// WithSleep replaces the wait between attempts. Tests use it to record delays.
func WithSleep(fn SleepFunc) RetryOption {
	return func(o *retryOptions) { o.sleep = fn }
}

// WithLabel names the operation in logs and the retry metric.
func WithLabel(label string) RetryOption {
	return func(o *retryOptions) { o.label = label }
}

// FetchWithRetry calls fn up to maxAttempts times. After a failure it waits
// backoff, doubles it, and tries again; there is no wait after the last
// attempt and no jitter. When every attempt fails the last error is
// returned inside a *RetryExhaustedError. A canceled ctx stops the loop
// with ctx.Err().
func FetchWithRetry[T any](ctx context.Context, fn func(context.Context) (T, error), maxAttempts int, backoff time.Duration, opts ...RetryOption) (T, error) {
	o := retryOptions{sleep: sleepContext, label: "unknown"}
	for _, opt := range opts {
		opt(&o)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	delay := backoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		logging.Ctx(ctx).Warn().
			Err(err).
			Str("operation", o.label).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("poster request failed, retrying")
		metrics.PosterRetries.WithLabelValues(o.label).Inc()

		if err := o.sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay *= 2
	}
	return zero, &RetryExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
