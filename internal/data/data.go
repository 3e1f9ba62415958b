// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package data is the read path for synchronized restaurant data and the
// batch-write primitive the resource syncers delegate to.
//
// Every document is keyed by collection, tenant, and the vendor's native
// id, so a repeated sync of identical upstream data merges onto the same
// documents instead of creating new ones.
package data

import (
	"context"
	"errors"
	"sort"

	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/store"
)

// Collection names a family of documents.
type Collection string

const (
	CollectionMenu         Collection = "menu"
	CollectionInventory    Collection = "inventory"
	CollectionTransactions Collection = "transaction"
	CollectionAlerts       Collection = "alert"
	CollectionRestaurant   Collection = "restaurant"
)

// Key prefixes for orchestration records.
const (
	prefixRun       = "run"
	prefixRunLatest = "run_latest"
	prefixControl   = "control"
	prefixErrorLog  = "errorlog"
)

// SyncStateReader exposes the credential's last-sync summary.
// *tokenstore.Store satisfies it.
type SyncStateReader interface {
	Get(ctx context.Context, tenantID string) (*models.Credential, error)
}

// Facade reads and writes tenant data documents.
type Facade struct {
	db    *store.DB
	state SyncStateReader
}

// New creates a facade. state may be nil, in which case NotSynced is
// decided from the documents alone.
func New(db *store.DB, state SyncStateReader) *Facade {
	return &Facade{db: db, state: state}
}

// Entry is one document of a batch, keyed by its vendor id.
type Entry struct {
	ID    string
	Value interface{}
}

// Batch groups entries by collection for one atomic write.
type Batch map[Collection][]Entry

// Add appends an entry to the batch.
func (b Batch) Add(c Collection, id string, v interface{}) {
	b[c] = append(b[c], Entry{ID: id, Value: v})
}

// Len returns the number of entries across all collections.
func (b Batch) Len() int {
	n := 0
	for _, entries := range b {
		n += len(entries)
	}
	return n
}

// WriteBatch merge-upserts a multi-collection batch in one transaction and
// returns how many documents changed. Inventory items and their low-stock
// alerts go through here together.
func (f *Facade) WriteBatch(ctx context.Context, tenantID string, b Batch) (int, error) {
	collections := make([]string, 0, len(b))
	for c := range b {
		collections = append(collections, string(c))
	}
	sort.Strings(collections)

	docs := make([]store.Doc, 0, b.Len())
	for _, c := range collections {
		for _, e := range b[Collection(c)] {
			docs = append(docs, store.Doc{Key: store.Key(c, tenantID, e.ID), Value: e.Value})
		}
	}
	return f.db.MergeBatch(ctx, docs)
}

// ensureSynced returns models.ErrNotSynced when the tenant has never
// completed a sync and the collection holds no documents.
func (f *Facade) ensureSynced(ctx context.Context, c Collection, tenantID string) error {
	if f.state != nil {
		cred, err := f.state.Get(ctx, tenantID)
		switch {
		case err == nil && cred.LastSync != nil:
			return nil
		case err != nil && !errors.Is(err, models.ErrNotConnected) && !errors.Is(err, models.ErrReauthRequired):
			return err
		}
	}

	n, err := f.db.Count(ctx, store.Prefix(string(c), tenantID))
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotSynced
	}
	return nil
}
