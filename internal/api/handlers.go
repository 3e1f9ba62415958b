// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"context"
	"time"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/models"
	syncpkg "github.com/fudi-pos/fudi/internal/sync"
	ws "github.com/fudi-pos/fudi/internal/websocket"
)

// ConnectionService is the OAuth and connection surface.
// *sync.Connector implements it.
type ConnectionService interface {
	Connect(ctx context.Context, tenantID string) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*models.ActionResult, error)
	CheckConnection(ctx context.Context, tenantID string) (*models.ConnectionStatus, error)
	Disconnect(ctx context.Context, tenantID string) (*models.ActionResult, error)
}

// SyncService starts sync runs. *sync.Orchestrator implements it.
type SyncService interface {
	Run(ctx context.Context, tenantID string, opts syncpkg.Options, trigger string) (*models.SyncResult, error)
	StartAsync(ctx context.Context, tenantID string, opts syncpkg.Options, trigger string) (string, error)
}

// DataReader serves synchronized documents. *data.Facade implements it.
type DataReader interface {
	GetMenu(ctx context.Context, tenantID string) ([]models.MenuItem, error)
	GetInventory(ctx context.Context, tenantID string) ([]models.InventoryItem, error)
	GetSales(ctx context.Context, tenantID string, filter data.SalesFilter) ([]models.Transaction, error)
	GetLowStockAlerts(ctx context.Context, tenantID string) ([]models.LowStockAlert, error)
	GetRestaurant(ctx context.Context, tenantID string) (*models.Restaurant, error)
	GetSyncRuns(ctx context.Context, tenantID string, limit int) ([]models.SyncRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (*models.SyncRun, error)
	GetControls(ctx context.Context, tenantID, runID string) ([]models.ResourceControl, error)
	GetErrorLogs(ctx context.Context, tenantID string, limit int) ([]models.ErrorLog, error)
}

// Pinger reports storage health. *store.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ ConnectionService = (*syncpkg.Connector)(nil)
	_ SyncService       = (*syncpkg.Orchestrator)(nil)
	_ DataReader        = (*data.Facade)(nil)
)

// Dependencies wires a Handler.
type Dependencies struct {
	Connector   ConnectionService
	Sync        SyncService
	Data        DataReader
	Store       Pinger
	Hub         *ws.Hub
	CORSOrigins []string
}

// Handler contains the dependencies of the API handlers.
//
// Handler methods are split across files:
//   - handlers_poster.go: connection and sync endpoints
//   - handlers_data.go: synchronized data endpoints
//   - handlers_health.go: liveness and readiness
//   - handlers_websocket.go: websocket upgrade
type Handler struct {
	connector   ConnectionService
	sync        SyncService
	data        DataReader
	store       Pinger
	wsHub       *ws.Hub
	corsOrigins []string
	startTime   time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		connector:   deps.Connector,
		sync:        deps.Sync,
		data:        deps.Data,
		store:       deps.Store,
		wsHub:       deps.Hub,
		corsOrigins: deps.CORSOrigins,
		startTime:   time.Now(),
	}
}
