// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package middleware holds the HTTP middleware shared by every route group.

  - RequestID: reuses or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: request count, duration, and in-flight gauge,
    labeled by chi route pattern so path parameters do not explode
    cardinality
  - Compression: chi's compressor for JSON and text, skipped for websocket
    upgrades

All middleware has the func(http.Handler) http.Handler shape chi expects:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
