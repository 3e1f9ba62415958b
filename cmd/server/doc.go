// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package main is the Fudi server.

Fudi connects restaurants' Poster POS accounts over OAuth and keeps a
normalized copy of their menu, stock levels, and sales in a local BadgerDB
document store. Restaurant owners trigger syncs over the REST API and
watch progress over a websocket; an optional scheduler refreshes stale
tenants in the background.

Process layout:

	fudi
	├── data-layer       store GC
	├── messaging-layer  websocket hub, event bridge, sync scheduler
	└── api-layer        HTTP server

Startup order: configuration (koanf), logging (zerolog), document store,
token encryption and JWT validation, Poster client, token store, data
facade, syncers and orchestrator (interrupted runs are reset), websocket
hub, event bus, connector, HTTP router, then the supervisor tree starts
the store GC, hub, event bridge, scheduler and HTTP server.

Configuration comes from defaults, then config.yaml (or CONFIG_PATH), then
environment variables:

	POSTER_APPLICATION_ID=...
	POSTER_APPLICATION_SECRET=...
	POSTER_REDIRECT_URI=https://fudi.example/api/v1/poster/callback
	JWT_SECRET=$(openssl rand -base64 32)
	TOKEN_ENCRYPTION_KEY=$(openssl rand -base64 32)
	STORE_PATH=/data/fudi
	./fudi

SIGINT and SIGTERM stop the tree; in-flight background syncs are waited
for before the store is closed.
*/
package main
