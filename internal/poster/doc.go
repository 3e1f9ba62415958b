// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package poster is the HTTP client for the Poster POS REST API and its OAuth
endpoints.

API methods are called as GET {api_url}/{method}?token=...; the payload is
returned under the envelope's "response" key:

	{"response": [{"product_id": "12", "product_name": "Tacos al pastor", ...}]}

Errors map onto the shared taxonomy in internal/models:

  - transport failures (DNS, refused, timeout): models.ErrUnreachable
  - 4xx: *APIError unwrapping to models.ErrAPIRejected
  - 5xx: *APIError unwrapping to models.ErrAPIUnavailable
  - 200 without "response": models.ErrUpstreamDataMissing

The client itself never retries. Callers wrap fetches in FetchWithRetry,
which applies the pipeline's bounded exponential backoff.

Outbound calls share a token-bucket limiter (golang.org/x/time/rate) and,
when poster.circuit_breaker.enabled is set, a sony/gobreaker breaker whose
state is exported to Prometheus.

Vendor payloads are decoded into the raw types in types.go. Numeric fields
use FlexFloat, which accepts numbers, numeric strings, and null, and falls
back to 0 for anything malformed.
*/
package poster
