// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Doc is one entry of a merge batch. Value must marshal to a JSON object.
type Doc struct {
	Key   string
	Value interface{}
}

// volatileFields change on every write and are ignored when deciding
// whether a merge altered a document.
var volatileFields = map[string]bool{
	"updated_at": true,
}

// MergeBatch upserts docs in a single transaction. For an existing key the
// top-level fields of the new value are merged over the stored ones; fields
// absent from the new value are kept. A document whose merged content is
// unchanged (ignoring updated_at) is not rewritten. It returns how many
// documents were actually written.
func (s *DB) MergeBatch(ctx context.Context, docs []Doc) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	incoming := make([]map[string]json.RawMessage, len(docs))
	for i, d := range docs {
		fields, err := toFields(d.Value)
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", d.Key, err)
		}
		incoming[i] = fields
	}

	written := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		written = 0
		for i, d := range docs {
			key := []byte(d.Key)

			merged := incoming[i]
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				var existing map[string]json.RawMessage
				if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); err != nil {
					return err
				}
				if sameContent(existing, merged) {
					continue
				}
				for k, v := range merged {
					existing[k] = v
				}
				merged = existing
			}

			data, err := json.Marshal(merged)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, storageErr(fmt.Sprintf("merge batch of %d", len(docs)), err)
	}
	return written, nil
}

func toFields(v interface{}) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return fields, nil
}

// sameContent reports whether merging update into existing would change
// anything other than volatile fields.
func sameContent(existing, update map[string]json.RawMessage) bool {
	for k, v := range update {
		if volatileFields[k] {
			continue
		}
		old, ok := existing[k]
		if !ok || !bytes.Equal(old, v) {
			return false
		}
	}
	return true
}
