// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package sync pulls a tenant's restaurant data out of Poster and stores it.

Components:

  - MenuSyncer, InventorySyncer, SalesSyncer: each fetches one Poster
    resource with retry, normalizes it, and writes it in one batch.
  - Orchestrator: runs the selected syncers for a tenant concurrently,
    guards against overlapping runs, and records the outcome on the
    credential, as a SyncRun, and as per-resource control records.
  - Connector: the OAuth side (connect, callback, status, disconnect).
  - Scheduler: a supervised service that periodically syncs every
    connected tenant whose data has gone stale.

Run lifecycle:

	idle -> starting -> running -> completed
	                           \-> error

A run that cannot obtain a token goes straight from starting to error.
Both terminal states may start a new run. Resources that finished before
another one failed are kept; nothing is rolled back.

Runs are detached from the caller's context so a dropped HTTP request
does not abandon a half-written sync. The Poster client's timeout and
the bounded retries end every run.
*/
package sync
