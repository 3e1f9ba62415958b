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
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
)

// MenuSyncer syncs products, joined with their category names.
type MenuSyncer struct {
	base
}

// NewMenuSyncer creates a menu syncer.
func NewMenuSyncer(api APIClient, writer BatchWriter, retry RetryPolicy) *MenuSyncer {
	return &MenuSyncer{base: newBase(api, writer, retry)}
}

// Resource implements ResourceSyncer.
func (s *MenuSyncer) Resource() models.Resource { return models.ResourceMenu }

// Sync implements ResourceSyncer.
func (s *MenuSyncer) Sync(ctx context.Context, tenantID, token string) (Result, error) {
	productsRaw, err := s.fetch(ctx, poster.MethodProducts, token, nil)
	if err != nil {
		return Result{}, err
	}
	categoriesRaw, err := s.fetch(ctx, poster.MethodCategories, token, nil)
	if err != nil {
		return Result{}, err
	}

	products, skipped, err := decode[poster.Product](ctx, poster.MethodProducts, productsRaw)
	if err != nil {
		return Result{}, err
	}
	categories, _, err := decode[poster.Category](ctx, poster.MethodCategories, categoriesRaw)
	if err != nil {
		return Result{}, err
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		if id := c.Value.CategoryID.String(); id != "" {
			names[id] = c.Value.CategoryName.String()
		}
	}

	now := s.now()
	batch := data.Batch{}
	for _, rec := range products {
		item, ok := normalizeProduct(tenantID, rec, names, now)
		if !ok {
			skipped++
			continue
		}
		batch.Add(data.CollectionMenu, item.ID, item)
	}

	written, err := s.writer.WriteBatch(ctx, tenantID, batch)
	if err != nil {
		return Result{}, err
	}

	res := Result{Count: batch.Len(), Written: written, Skipped: skipped}
	logging.Ctx(ctx).Debug().
		Int("products", res.Count).
		Int("categories", len(names)).
		Int("written", written).
		Msg("menu synced")
	return res, nil
}

func normalizeProduct(tenantID string, rec poster.Record[poster.Product], categories map[string]string, now time.Time) (models.MenuItem, bool) {
	p := &rec.Value
	id := p.ProductID.String()
	if id == "" {
		return models.MenuItem{}, false
	}

	categoryID := p.MenuCategoryID.String()
	categoryName := categories[categoryID]
	if categoryName == "" {
		categoryName = p.CategoryName.String()
	}
	if categoryName == "" {
		categoryName = models.UncategorizedName
	}

	return models.MenuItem{
		ID:           id,
		TenantID:     tenantID,
		Name:         p.ProductName.String(),
		Description:  p.ProductDescription.String(),
		Price:        float64(p.Price),
		CategoryID:   categoryID,
		CategoryName: categoryName,
		ImageURL:     p.ImageURL(),
		IsActive:     int(p.Hidden) == 0,
		SourceSystem: models.SourcePoster,
		SourceData:   rec.Raw,
		UpdatedAt:    now,
	}, true
}
