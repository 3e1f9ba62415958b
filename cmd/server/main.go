// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/fudi-pos/fudi/docs" // registers the OpenAPI document
	"github.com/fudi-pos/fudi/internal/api"
	"github.com/fudi-pos/fudi/internal/auth"
	"github.com/fudi-pos/fudi/internal/config"
	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/events"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/poster"
	"github.com/fudi-pos/fudi/internal/store"
	"github.com/fudi-pos/fudi/internal/supervisor"
	"github.com/fudi-pos/fudi/internal/supervisor/services"
	"github.com/fudi-pos/fudi/internal/sync"
	"github.com/fudi-pos/fudi/internal/tokenstore"
	ws "github.com/fudi-pos/fudi/internal/websocket"
)

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Bool("schedule_enabled", cfg.Sync.ScheduleEnabled).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("starting fudi")

	// === Storage ===
	db, err := store.Open(store.Options{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open document store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing document store")
		}
	}()

	// === Security ===
	encryptor, err := auth.NewTokenEncryptor(cfg.Security.TokenEncryptionKey)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid token encryption key")
	}
	if encryptor == nil {
		logging.Warn().Msg("TOKEN_ENCRYPTION_KEY not set, Poster tokens are stored unencrypted")
	}

	jwtSecret := cfg.Security.JWTSecret
	if jwtSecret == "" {
		jwtSecret = ephemeralSecret()
		logging.Warn().Msg("JWT_SECRET not set, using a random secret; issued tokens will not survive a restart")
	}
	jwtManager, err := auth.NewJWTManager(jwtSecret, 0)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create JWT manager")
	}

	// === Sync pipeline ===
	posterClient := poster.NewClient(&cfg.Poster)
	tokens := tokenstore.New(db, posterClient, encryptor)
	facade := data.New(db, tokens)

	retry := sync.RetryPolicy{Attempts: cfg.Sync.RetryAttempts, Backoff: cfg.Sync.RetryDelay}
	orchestrator := sync.NewOrchestrator(tokens, facade, []sync.ResourceSyncer{
		sync.NewMenuSyncer(posterClient, facade, retry),
		sync.NewInventorySyncer(posterClient, facade, retry, cfg.Sync.LowStockAlerts),
		sync.NewSalesSyncer(posterClient, facade, retry, cfg.Sync.MaxSyncDays),
		sync.NewRestaurantSyncer(posterClient, facade, retry),
	})

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if n, err := orchestrator.ResetInterrupted(startupCtx); err != nil {
		logging.Error().Err(err).Msg("failed to reset interrupted sync runs")
	} else if n > 0 {
		logging.Warn().Int("runs", n).Msg("reset sync runs interrupted by the previous shutdown")
	}
	cancelStartup()

	wsHub := ws.NewHub()
	orchestrator.SetWebSocketHub(wsHub)

	var bus *events.Bus
	if cfg.Events.Enabled {
		bus = events.NewBus(cfg.Events.BufferSize)
		orchestrator.SetEventPublisher(bus)
	}

	connector := sync.NewConnector(posterClient, tokens, db, orchestrator, facade, sync.ConnectorConfig{
		StateTTL:      cfg.Security.OAuthStateTTL,
		SyncOnConnect: cfg.Sync.SyncOnConnect,
		StaleAfter:    cfg.Sync.StaleAfter,
	})

	// === HTTP ===
	handler := api.NewHandler(api.Dependencies{
		Connector:   connector,
		Sync:        orchestrator,
		Data:        facade,
		Store:       db,
		Hub:         wsHub,
		CORSOrigins: cfg.Security.CORSOrigins,
	})
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager), &api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === Supervisor tree ===
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddDataService(store.NewGCService(db, cfg.Store.GCInterval))
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if bus != nil {
		tree.AddMessagingService(events.NewWebSocketBridge(bus.Subscriber(), wsHub))
	}
	if cfg.Sync.ScheduleEnabled {
		scheduler := sync.NewScheduler(orchestrator, cfg.Sync.ScheduleInterval, cfg.Sync.StaleAfter)
		tree.AddMessagingService(services.NewSchedulerService(scheduler))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree stopped with error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("waiting for background syncs")
	orchestrator.Wait()
	if bus != nil {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("error closing event bus")
		}
	}
	logging.Info().Msg("fudi stopped")
}

// ephemeralSecret returns a random HMAC secret for development runs.
func ephemeralSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logging.Fatal().Err(err).Msg("failed to generate JWT secret")
	}
	return base64.StdEncoding.EncodeToString(b)
}
