// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package data

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/store"
)

// SalesFilter narrows GetSales. Nil bounds are open; both bounds are
// inclusive. Limit <= 0 means no limit.
type SalesFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Status   string
	Limit    int
}

func (f SalesFilter) match(t *models.Transaction) bool {
	if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.Date.After(*f.DateTo) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// GetMenu returns the tenant's menu items ordered by category then name.
func (f *Facade) GetMenu(ctx context.Context, tenantID string) ([]models.MenuItem, error) {
	if err := f.ensureSynced(ctx, CollectionMenu, tenantID); err != nil {
		return nil, err
	}
	items, err := store.List[models.MenuItem](ctx, f.db, store.Prefix(string(CollectionMenu), tenantID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CategoryName != items[j].CategoryName {
			return items[i].CategoryName < items[j].CategoryName
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return nonNil(items), nil
}

// GetInventory returns the tenant's stock levels ordered by name.
func (f *Facade) GetInventory(ctx context.Context, tenantID string) ([]models.InventoryItem, error) {
	if err := f.ensureSynced(ctx, CollectionInventory, tenantID); err != nil {
		return nil, err
	}
	items, err := store.List[models.InventoryItem](ctx, f.db, store.Prefix(string(CollectionInventory), tenantID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return nonNil(items), nil
}

// GetSales returns transactions matching filter, newest first.
func (f *Facade) GetSales(ctx context.Context, tenantID string, filter SalesFilter) ([]models.Transaction, error) {
	if err := f.ensureSynced(ctx, CollectionTransactions, tenantID); err != nil {
		return nil, err
	}

	var out []models.Transaction
	err := f.db.Scan(ctx, store.Prefix(string(CollectionTransactions), tenantID), func(key string, val []byte) error {
		var t models.Transaction
		if err := unmarshal(key, val, &t); err != nil {
			return err
		}
		if filter.match(&t) {
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return nonNil(out), nil
}

// GetLowStockAlerts returns the tenant's alerts, lowest stock ratio first.
// An empty list is not an error.
func (f *Facade) GetLowStockAlerts(ctx context.Context, tenantID string) ([]models.LowStockAlert, error) {
	alerts, err := store.List[models.LowStockAlert](ctx, f.db, store.Prefix(string(CollectionAlerts), tenantID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return ratio(&alerts[i]) < ratio(&alerts[j])
	})
	return nonNil(alerts), nil
}

func ratio(a *models.LowStockAlert) float64 {
	if a.MinimumLevel <= 0 {
		return 1
	}
	return a.CurrentLevel / a.MinimumLevel
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// GetRestaurant returns the tenant's restaurant profile, or
// models.ErrNotSynced before the first restaurant sync.
func (f *Facade) GetRestaurant(ctx context.Context, tenantID string) (*models.Restaurant, error) {
	var r models.Restaurant
	err := f.db.Get(ctx, store.Key(string(CollectionRestaurant), tenantID, models.RestaurantProfileID), &r)
	switch {
	case IsNotFound(err):
		return nil, models.ErrNotSynced
	case err != nil:
		return nil, err
	}
	if r.AccountID == "" && f.state != nil {
		if cred, err := f.state.Get(ctx, tenantID); err == nil {
			r.AccountID = cred.AccountID
		}
	}
	return &r, nil
}
