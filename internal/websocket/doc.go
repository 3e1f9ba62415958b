// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package websocket pushes sync progress to browsers.

A Hub owns every connected Client. Each client belongs to the tenant whose
JWT opened the connection, and BroadcastToTenant only reaches that
tenant's clients. The hub runs under the supervisor via RunWithContext.

Messages are JSON objects with a type and a data payload:

	{"type": "sync_started",   "data": <SyncRun>}
	{"type": "sync_progress",  "data": <ResourceControl>}
	{"type": "sync_completed", "data": <SyncRun>}
	{"type": "sync_failed",    "data": <SyncRun>}

Clients may send {"type": "ping"} and receive {"type": "pong"}. Each
client has a read pump and a write pump goroutine; a client whose send
buffer fills up is disconnected.
*/
package websocket
