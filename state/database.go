// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"io"
	"slices"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"golang.org/x/exp/maps"
)

var _ Immutable = (*Database)(nil)

// KVStore is the subset of an avalanchego database the ledgers persist to.
// It is implemented by memdb and by the pebble package.
type KVStore interface {
	database.KeyValueReader
	database.Batcher
	io.Closer
}

// Database is the committed state of a host. Changes are applied in a single
// batch so a transaction is either fully persisted or not at all.
type Database struct {
	db KVStore
}

func NewDatabase(db KVStore) *Database {
	return &Database{db: db}
}

func (d *Database) GetValue(_ context.Context, key []byte) ([]byte, error) {
	return d.db.Get(key)
}

// Apply writes [changes] atomically. A Nothing value deletes the key.
func (d *Database) Apply(_ context.Context, changes map[string]maybe.Maybe[[]byte]) error {
	if len(changes) == 0 {
		return nil
	}
	keys := maps.Keys(changes)
	slices.Sort(keys)

	batch := d.db.NewBatch()
	for _, k := range keys {
		v := changes[k]
		if v.IsNothing() {
			if err := batch.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put([]byte(k), v.Value()); err != nil {
			return err
		}
	}
	return batch.Write()
}

func (d *Database) Close() error {
	return d.db.Close()
}
