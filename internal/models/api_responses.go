// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package models

import "time"

// APIResponse is the envelope returned by every HTTP endpoint.
//
//	{
//	  "status": "success",
//	  "data": {"connected": true, "last_sync": "2026-01-10T09:00:00Z"},
//	  "metadata": {"timestamp": "2026-01-10T09:00:01Z"}
//	}
//
// Failed requests carry status "error" and a populated Error:
//
//	{
//	  "status": "error",
//	  "error": {"code": "REAUTH_REQUIRED", "message": "Unauthorized. Please reconnect your Poster account."},
//	  "metadata": {"timestamp": "2026-01-10T09:00:01Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// APIError is the machine-readable error body.
//
// Codes in use:
//   - VALIDATION_ERROR: malformed request parameters
//   - AUTHENTICATION_ERROR: missing or invalid bearer token
//   - NOT_CONNECTED, REAUTH_REQUIRED, ALREADY_IN_PROGRESS, NOT_SYNCED
//   - UPSTREAM_UNREACHABLE, UPSTREAM_REJECTED, UPSTREAM_UNAVAILABLE, UPSTREAM_DATA_MISSING
//   - STORAGE_FAILURE, INTERNAL_ERROR
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
