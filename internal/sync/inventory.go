// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"time"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
)

// InventorySyncer syncs ingredient stock levels and, optionally, raises
// low-stock alerts in the same batch.
type InventorySyncer struct {
	base
	alerts bool
}

// NewInventorySyncer creates an inventory syncer. With alerts enabled,
// every ingredient below its minimum gets an active alert keyed by the
// ingredient id. Alerts are never cleared here.
func NewInventorySyncer(api APIClient, writer BatchWriter, retry RetryPolicy, alerts bool) *InventorySyncer {
	return &InventorySyncer{base: newBase(api, writer, retry), alerts: alerts}
}

// Resource implements ResourceSyncer.
func (s *InventorySyncer) Resource() models.Resource { return models.ResourceInventory }

// Sync implements ResourceSyncer.
func (s *InventorySyncer) Sync(ctx context.Context, tenantID, token string) (Result, error) {
	raw, err := s.fetch(ctx, poster.MethodStorageInventory, token, nil)
	if err != nil {
		return Result{}, err
	}
	records, skipped, err := decode[poster.Ingredient](ctx, poster.MethodStorageInventory, raw)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	batch := data.Batch{}
	count, alerts := 0, 0
	for _, rec := range records {
		item, ok := normalizeIngredient(tenantID, rec, now)
		if !ok {
			skipped++
			continue
		}
		batch.Add(data.CollectionInventory, item.ID, item)
		count++

		if s.alerts && item.LowStock() {
			batch.Add(data.CollectionAlerts, item.ID, lowStockAlert(&item, now))
			alerts++
		}
	}

	written, err := s.writer.WriteBatch(ctx, tenantID, batch)
	if err != nil {
		return Result{}, err
	}
	if alerts > 0 {
		metrics.LowStockAlertsWritten.Add(float64(alerts))
		logging.Ctx(ctx).Info().Int("alerts", alerts).Msg("low stock detected")
	}

	return Result{Count: count, Written: written, Skipped: skipped, Alerts: alerts}, nil
}

func normalizeIngredient(tenantID string, rec poster.Record[poster.Ingredient], now time.Time) (models.InventoryItem, bool) {
	in := &rec.Value
	id := in.IngredientID.String()
	if id == "" {
		return models.InventoryItem{}, false
	}
	category := in.CategoryName.String()
	if category == "" {
		category = models.UncategorizedName
	}
	return models.InventoryItem{
		ID:           id,
		TenantID:     tenantID,
		Name:         in.IngredientName.String(),
		Category:     category,
		Unit:         in.UnitLabel(),
		Quantity:     in.Quantity(),
		MinimumLevel: in.Minimum(),
		Cost:         in.UnitCost(),
		SourceSystem: models.SourcePoster,
		SourceData:   rec.Raw,
		UpdatedAt:    now,
	}, true
}

func lowStockAlert(item *models.InventoryItem, now time.Time) models.LowStockAlert {
	return models.LowStockAlert{
		ID:             item.ID,
		TenantID:       item.TenantID,
		IngredientID:   item.ID,
		IngredientName: item.Name,
		CurrentLevel:   item.Quantity,
		MinimumLevel:   item.MinimumLevel,
		Status:         models.AlertStatusActive,
		UpdatedAt:      now,
	}
}
