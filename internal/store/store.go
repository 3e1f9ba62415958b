// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package store is a small JSON document store on top of BadgerDB.
//
// Documents live under colon-separated keys built with Key, for example
// Key("menu", tenantID, productID). Values are JSON objects. The store
// offers plain reads and writes, read-modify-write in a single
// transaction, atomic merge batches, prefix scans, and TTL entries.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
)

// ErrNotFound is returned when a key has no document.
var ErrNotFound = errors.New("document not found")

// maxConflictRetries bounds Modify retries on badger.ErrConflict.
const maxConflictRetries = 3

// Options configures Open.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// DB is a JSON document store backed by BadgerDB.
type DB struct {
	db       *badger.DB
	inMemory bool
}

// Open opens (or creates) the store.
func Open(opts Options) (*DB, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = opts.SyncWrites
	bopts.Logger = nil
	// Documents are small; the 1GB default value log is far too large.
	bopts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("document store opened")
	return &DB{db: db, inMemory: opts.InMemory}, nil
}

// OpenInMemory opens a throwaway store, used by tests and local runs.
func OpenInMemory() (*DB, error) {
	return Open(Options{InMemory: true})
}

// Close flushes and closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Ping reports whether the store is open and readable.
func (s *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return storageErr("ping", errors.New("store closed"))
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Key joins escaped parts with ':' so IDs containing ':' cannot collide.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.QueryEscape(p)
	}
	return strings.Join(escaped, ":")
}

// Prefix returns Key(parts...) followed by the separator, for scans.
func Prefix(parts ...string) string {
	return Key(parts...) + ":"
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorageFailure, op, err)
}

// Get decodes the document at key into out.
func (s *DB) Get(ctx context.Context, key string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("get "+key, err)
	}
	return nil
}

// Put replaces the document at key.
func (s *DB) Put(ctx context.Context, key string, v interface{}) error {
	return s.PutWithTTL(ctx, key, v, 0)
}

// PutWithTTL replaces the document at key; it disappears after ttl when ttl > 0.
func (s *DB) PutWithTTL(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return storageErr("put "+key, err)
	}
	return nil
}

// PutBatch replaces every document in docs in one transaction.
func (s *DB) PutBatch(ctx context.Context, docs []Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make([][]byte, len(docs))
	for i, d := range docs {
		data, err := json.Marshal(d.Value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", d.Key, err)
		}
		encoded[i] = data
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for i, d := range docs {
			if err := txn.Set([]byte(d.Key), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("put batch", err)
	}
	return nil
}

// Take reads and deletes the document at key in one transaction, so a
// value can be consumed at most once.
func (s *DB) Take(ctx context.Context, key string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, out) }); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("take "+key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *DB) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return storageErr("delete "+key, err)
	}
	return nil
}

// Modify loads the document at key into doc, calls fn, and writes doc back
// in the same transaction. fn receives whether the document existed; if it
// returns an error nothing is written and the error is returned unchanged.
// Transaction conflicts are retried a few times before failing.
func (s *DB) Modify(ctx context.Context, key string, doc interface{}, fn func(exists bool) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		resetDoc(doc)
		var fnErr error
		err = s.db.Update(func(txn *badger.Txn) error {
			exists := true
			item, gerr := txn.Get([]byte(key))
			switch {
			case errors.Is(gerr, badger.ErrKeyNotFound):
				exists = false
			case gerr != nil:
				return gerr
			default:
				if verr := item.Value(func(val []byte) error { return json.Unmarshal(val, doc) }); verr != nil {
					return verr
				}
			}

			if fnErr = fn(exists); fnErr != nil {
				return fnErr
			}

			data, merr := json.Marshal(doc)
			if merr != nil {
				return merr
			}
			return txn.Set([]byte(key), data)
		})
		if fnErr != nil {
			return fnErr
		}
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return storageErr("modify "+key, err)
	}
	return nil
}

// resetDoc zeroes the value doc points to so a retried Modify never sees
// fields left over from the previous attempt.
func resetDoc(doc interface{}) {
	v := reflect.ValueOf(doc)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}
