// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package auth identifies tenants and protects Poster credentials at rest.

Fudi does not issue user sessions. Requests carry a bearer JWT minted by the
restaurant's identity provider; the token's subject claim is the tenant ID
every other package keys its data by.

Key Components:

  - JWTManager: HS256 validation (and issuance, for tooling and tests)
  - Middleware: chi-compatible handler that rejects unauthenticated
    requests and stores the tenant in the request context
  - TokenEncryptor: AES-256-GCM with an HKDF-derived key for Poster
    access and refresh tokens

Usage:

	jwtm, err := auth.NewJWTManager(cfg.Security.JWTSecret, 24*time.Hour)
	if err != nil {
	    return err
	}
	r.With(auth.NewMiddleware(jwtm).Authenticate).Get("/api/v1/poster/status", h.Status)

	tenantID := auth.TenantFromContext(r.Context())
*/
package auth
