// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the token store, the Poster client, the
// syncers, and the read path. Concrete error types elsewhere unwrap to
// one of these so callers can branch with errors.Is.
var (
	// ErrNotConnected means the tenant has no live Poster credential.
	ErrNotConnected = errors.New("poster account not connected")

	// ErrReauthRequired means the refresh grant failed; the tenant must
	// go through OAuth again.
	ErrReauthRequired = errors.New("poster reauthorization required")

	// ErrAlreadyInProgress means a sync run for the tenant is still processing.
	ErrAlreadyInProgress = errors.New("sync already in progress")

	// ErrUnreachable means the request never produced an HTTP response.
	ErrUnreachable = errors.New("poster api unreachable")

	// ErrAPIRejected covers 4xx responses.
	ErrAPIRejected = errors.New("poster api rejected request")

	// ErrAPIUnavailable covers 5xx responses.
	ErrAPIUnavailable = errors.New("poster api unavailable")

	// ErrUpstreamDataMissing means the response envelope lacked its payload.
	ErrUpstreamDataMissing = errors.New("poster response missing data")

	// ErrNotSynced means the tenant's data has never been synchronized.
	ErrNotSynced = errors.New("data not synced yet")

	// ErrStorageFailure wraps document store errors.
	ErrStorageFailure = errors.New("storage failure")
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotConnected, "NOT_CONNECTED"},
	{ErrReauthRequired, "REAUTH_REQUIRED"},
	{ErrAlreadyInProgress, "ALREADY_IN_PROGRESS"},
	{ErrNotSynced, "NOT_SYNCED"},
	{ErrUnreachable, "UPSTREAM_UNREACHABLE"},
	{ErrAPIRejected, "UPSTREAM_REJECTED"},
	{ErrAPIUnavailable, "UPSTREAM_UNAVAILABLE"},
	{ErrUpstreamDataMissing, "UPSTREAM_DATA_MISSING"},
	{ErrStorageFailure, "STORAGE_FAILURE"},
}

// ErrorCode returns the machine-readable code for err, or INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL_ERROR"
}

// FriendlyMessage turns err into text suitable for showing to a restaurant
// owner. Upstream HTTP statuses take precedence over the taxonomy.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch status := sc.StatusCode(); {
		case status == http.StatusUnauthorized:
			return "Unauthorized. Please reconnect your Poster account."
		case status == http.StatusForbidden:
			return "Access denied. Your Poster account lacks the required permissions."
		case status == http.StatusNotFound:
			return "Resource not found. Please check the integration settings."
		case status == http.StatusTooManyRequests:
			return "Too many requests. Please try again later."
		case status >= 500:
			return "Poster server error. Please try again later."
		case status >= 400:
			return fmt.Sprintf("Poster API error (%d).", status)
		}
	}

	switch {
	case errors.Is(err, ErrNotConnected):
		return "Your Poster account is not connected."
	case errors.Is(err, ErrReauthRequired):
		return "Your Poster connection expired. Please reconnect your account."
	case errors.Is(err, ErrAlreadyInProgress):
		return "A synchronization is already running."
	case errors.Is(err, ErrUnreachable):
		return "Could not reach Poster. Check your internet connection."
	case errors.Is(err, ErrUpstreamDataMissing):
		return "Poster returned an unexpected response."
	case errors.Is(err, ErrNotSynced):
		return "No data yet. Run a synchronization first."
	case errors.Is(err, ErrStorageFailure):
		return "Could not save data. Please try again."
	default:
		return err.Error()
	}
}

// NeedsReconnect reports whether err should send the user back through OAuth.
func NeedsReconnect(err error) bool {
	if errors.Is(err, ErrReauthRequired) {
		return true
	}
	var sc StatusCoder
	return errors.As(err, &sc) && sc.StatusCode() == http.StatusUnauthorized
}
