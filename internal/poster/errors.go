// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fudi-pos/fudi/internal/models"
)

// APIError is a non-2xx response from Poster.
type APIError struct {
	Method  string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("poster %s: HTTP %d: %s", e.Method, e.Status, e.Message)
}

// StatusCode implements models.StatusCoder.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Unwrap classifies the status: 5xx is unavailable, everything else rejected.
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return models.ErrAPIUnavailable
	}
	return models.ErrAPIRejected
}

// RetryExhaustedError is returned by FetchWithRetry when every attempt failed.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// unreachable wraps a transport failure. *url.Error is unpacked because its
// message carries the request URL, which includes the access token.
func unreachable(method string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrUnreachable, method, err)
}

func dataMissing(method, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %s", models.ErrUpstreamDataMissing, method)
	}
	return fmt.Errorf("%w: %s: %s", models.ErrUpstreamDataMissing, method, detail)
}

// outcome labels an error for the request metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isBreakerRejection(err):
		return "breaker_open"
	case models.ErrorCode(err) == "UPSTREAM_UNREACHABLE":
		return "unreachable"
	case models.ErrorCode(err) == "UPSTREAM_REJECTED":
		return "rejected"
	case models.ErrorCode(err) == "UPSTREAM_UNAVAILABLE":
		return "unavailable"
	case models.ErrorCode(err) == "UPSTREAM_DATA_MISSING":
		return "data_missing"
	default:
		return "error"
	}
}
