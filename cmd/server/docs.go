// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package main provides the Fudi HTTP server
//
// @title Fudi API
// @version 1.0
// @description Connects Poster POS accounts and serves a synchronized copy of
// @description each restaurant's menu, stock, sales and profile.
// @description
// @description ## Authentication
// @description
// @description Every route except the OAuth callback, health and metrics requires
// @description a bearer JWT whose subject is the tenant ID.
// @description
// @description ## Error Responses
// @description
// @description Errors use the standard envelope with a machine-readable code:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "error": {"code": "NOT_SYNCED", "message": "No data yet. Run a synchronization first."},
// @description   "metadata": {"timestamp": "2026-04-01T12:00:00Z"}
// @description }
// @description ```
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer JWT. The subject claim is the tenant ID.
//
// @tag.name Poster
// @tag.description Poster connection, sync runs and error history
//
// @tag.name Data
// @tag.description Synchronized restaurant data
//
// @tag.name Health
// @tag.description Liveness and readiness
package main
