// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/fudi-pos/fudi/internal/auth"
	"github.com/fudi-pos/fudi/internal/middleware"
	"github.com/fudi-pos/fudi/internal/models"
)

// Router assembles the handler and middleware into an http.Handler.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		auth:          authMW,
		chiMiddleware: NewChiMiddleware(cfg),
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/poster", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Get("/callback", h.PosterCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compression)
			r.Use(router.auth.Authenticate)
			r.Get("/connect", h.PosterConnect)
			r.Get("/status", h.PosterStatus)
			r.Post("/sync", h.PosterSync)
			r.Post("/disconnect", h.PosterDisconnect)
			r.Get("/runs", h.PosterRuns)
			r.Get("/runs/{id}", h.PosterRun)
			r.Get("/errors", h.PosterErrors)
		})
	})

	r.Route("/api/v1/data", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)
		r.Use(router.auth.Authenticate)
		r.Get("/menu", h.Menu)
		r.Get("/inventory", h.Inventory)
		r.Get("/sales", h.Sales)
		r.Get("/alerts", h.Alerts)
		r.Get("/restaurant", h.Restaurant)
	})

	r.With(router.chiMiddleware.RateLimit(), tokenFromQuery, router.auth.Authenticate).
		Get("/api/v1/ws", h.WebSocket)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
