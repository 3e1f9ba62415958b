// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
)

// RestaurantSyncer syncs the venue profile: the first spot of the account
// combined with the account settings.
type RestaurantSyncer struct {
	base
}

// NewRestaurantSyncer creates a restaurant profile syncer.
func NewRestaurantSyncer(api APIClient, writer BatchWriter, retry RetryPolicy) *RestaurantSyncer {
	return &RestaurantSyncer{base: newBase(api, writer, retry)}
}

// Resource implements ResourceSyncer.
func (s *RestaurantSyncer) Resource() models.Resource { return models.ResourceRestaurant }

// Sync implements ResourceSyncer.
func (s *RestaurantSyncer) Sync(ctx context.Context, tenantID, token string) (Result, error) {
	spotsRaw, err := s.fetch(ctx, poster.MethodSpots, token, nil)
	if err != nil {
		return Result{}, err
	}
	settingsRaw, err := s.fetch(ctx, poster.MethodSettings, token, nil)
	if err != nil {
		return Result{}, err
	}

	spots, skipped, err := decode[poster.Spot](ctx, poster.MethodSpots, spotsRaw)
	if err != nil {
		return Result{}, err
	}
	var settings poster.Settings
	if err := json.Unmarshal(settingsRaw, &settings); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", models.ErrUpstreamDataMissing, poster.MethodSettings, err)
	}

	spot, ok := firstSpot(spots)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s: no spot with an id", models.ErrUpstreamDataMissing, poster.MethodSpots)
	}

	profile := normalizeRestaurant(tenantID, spot, &settings, settingsRaw, s.now())
	batch := data.Batch{}
	batch.Add(data.CollectionRestaurant, models.RestaurantProfileID, profile)

	written, err := s.writer.WriteBatch(ctx, tenantID, batch)
	if err != nil {
		return Result{}, err
	}
	logging.Ctx(ctx).Debug().
		Str("spot_id", profile.ID).
		Int("spots", len(spots)).
		Int("written", written).
		Msg("restaurant profile synced")
	return Result{Count: batch.Len(), Written: written, Skipped: skipped}, nil
}

func firstSpot(spots []poster.Record[poster.Spot]) (poster.Record[poster.Spot], bool) {
	for _, s := range spots {
		if s.Value.SpotID.String() != "" {
			return s, true
		}
	}
	return poster.Record[poster.Spot]{}, false
}

func normalizeRestaurant(tenantID string, rec poster.Record[poster.Spot], settings *poster.Settings, settingsRaw json.RawMessage, now time.Time) models.Restaurant {
	spot := &rec.Value
	name := spot.DisplayName()
	if name == "" {
		name = settings.CompanyName.String()
	}
	phone := spot.Phone.String()
	if phone == "" {
		phone = settings.Phone.String()
	}
	source, _ := json.Marshal(map[string]json.RawMessage{"spot": rec.Raw, "settings": settingsRaw})
	return models.Restaurant{
		ID:           spot.SpotID.String(),
		TenantID:     tenantID,
		Name:         name,
		Address:      spot.Location(),
		Phone:        phone,
		Email:        settings.Email.String(),
		Timezone:     settings.Timezone.String(),
		Country:      settings.Country.String(),
		Currency:     settings.CurrencyCode(),
		SourceSystem: models.SourcePoster,
		SourceData:   source,
		UpdatedAt:    now,
	}
}
