// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package api provides the HTTP REST API for Fudi.

Routes are served by a chi router. Every response uses the
models.APIResponse envelope.

Poster connection (/api/v1/poster):

  - GET  /connect      returns the Poster authorization URL (?redirect=true issues a 302)
  - GET  /callback     OAuth redirect target; not authenticated
  - GET  /status       connection and last sync state
  - POST /sync         runs a sync; optional body {"products","inventory","sales","restaurant"}, omitted keys count as true; ?async=true returns 202
  - POST /disconnect   revokes the Poster credential
  - GET  /runs         recent sync runs
  - GET  /runs/{id}    one run with its per-resource records
  - GET  /errors       recent error log entries

Synchronized data (/api/v1/data):

  - GET /menu
  - GET /inventory
  - GET /sales         ?date_from=YYYY-MM-DD&date_to=YYYY-MM-DD&status=completed|pending&limit=N
  - GET /alerts
  - GET /restaurant    restaurant profile

Other:

  - GET /api/v1/ws            websocket sync progress (token may be passed as ?token=)
  - GET /api/v1/health/live
  - GET /api/v1/health/ready
  - GET /metrics
  - GET /swagger/*     OpenAPI document and UI

Everything under /api/v1/poster and /api/v1/data except the callback
requires a bearer JWT whose subject is the tenant ID.

Error mapping:

	NOT_CONNECTED, NOT_SYNCED       404
	REAUTH_REQUIRED                 401 (details.needs_reconnect = true)
	ALREADY_IN_PROGRESS             409
	UPSTREAM_*                      502
	VALIDATION_ERROR, INVALID_STATE 400
	STORAGE_FAILURE, INTERNAL_ERROR 500
*/
package api
