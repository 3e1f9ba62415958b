// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package sync

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/poster"
)

// DefaultMaxSyncDays is the default width of the sales window.
const DefaultMaxSyncDays = 30

// Paging for transactions.getTransactions.
const (
	DefaultSalesPageSize = 100
	maxSalesPages        = 1000
)

// SalesSyncer syncs transactions closed within the last MaxSyncDays.
type SalesSyncer struct {
	base
	maxDays  int
	pageSize int
}

// NewSalesSyncer creates a sales syncer.
func NewSalesSyncer(api APIClient, writer BatchWriter, retry RetryPolicy, maxDays int) *SalesSyncer {
	if maxDays <= 0 {
		maxDays = DefaultMaxSyncDays
	}
	return &SalesSyncer{base: newBase(api, writer, retry), maxDays: maxDays, pageSize: DefaultSalesPageSize}
}

// Resource implements ResourceSyncer.
func (s *SalesSyncer) Resource() models.Resource { return models.ResourceSales }

// Window returns the inclusive date range requested for a sync starting at
// start, formatted as Poster expects.
func (s *SalesSyncer) Window(start time.Time) (from, to string) {
	return start.AddDate(0, 0, -s.maxDays).Format(poster.DateLayout), start.Format(poster.DateLayout)
}

// Sync implements ResourceSyncer. Every page of the window is fetched
// before anything is written, so the batch stays all-or-nothing.
func (s *SalesSyncer) Sync(ctx context.Context, tenantID, token string) (Result, error) {
	now := s.now()
	from, to := s.Window(now)

	records, skipped, err := s.fetchAll(ctx, token, from, to)
	if err != nil {
		return Result{}, err
	}

	batch := data.Batch{}
	for _, rec := range records {
		t, ok := normalizeTransaction(tenantID, rec, now)
		if !ok {
			skipped++
			continue
		}
		batch.Add(data.CollectionTransactions, t.ID, t)
	}

	written, err := s.writer.WriteBatch(ctx, tenantID, batch)
	if err != nil {
		return Result{}, err
	}
	return Result{Count: batch.Len(), Written: written, Skipped: skipped}, nil
}

// fetchAll walks page/per_page until Poster returns an empty page, the
// reported count is reached, or the payload turns out not to be paginated.
func (s *SalesSyncer) fetchAll(ctx context.Context, token, from, to string) ([]poster.Record[poster.Transaction], int, error) {
	var (
		records []poster.Record[poster.Transaction]
		skipped int
		seen    int
	)
	for page := 1; page <= maxSalesPages; page++ {
		params := url.Values{}
		params.Set("date_from", from)
		params.Set("date_to", to)
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(s.pageSize))

		raw, err := s.fetch(ctx, poster.MethodTransactions, token, params)
		if err != nil {
			return nil, 0, err
		}
		p, err := decodePage[poster.Transaction](ctx, poster.MethodTransactions, raw)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, p.Records...)
		skipped += p.Skipped
		seen += len(p.Records) + p.Skipped

		if !p.Paginated() || len(p.Records)+p.Skipped == 0 || (p.Total > 0 && seen >= p.Total) {
			return records, skipped, nil
		}
	}
	logging.Ctx(ctx).Warn().Int("pages", maxSalesPages).Msg("transaction paging stopped at page limit")
	return records, skipped, nil
}

func normalizeTransaction(tenantID string, rec poster.Record[poster.Transaction], now time.Time) (models.Transaction, bool) {
	t := &rec.Value
	id := t.TransactionID.String()
	if id == "" {
		return models.Transaction{}, false
	}
	status := models.TransactionPending
	if t.Closed() {
		status = models.TransactionCompleted
	}
	return models.Transaction{
		ID:            id,
		TenantID:      tenantID,
		Date:          t.ClosedAt(),
		Amount:        float64(t.Sum),
		Status:        status,
		PaymentMethod: t.PaymentMethodName.String(),
		SourceSystem:  models.SourcePoster,
		SourceData:    rec.Raw,
		UpdatedAt:     now,
	}, true
}
