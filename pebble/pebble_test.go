// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	cfg := NewDefaultConfig()
	cfg.InMemory = true
	cfg.Sync = false
	db, _, err := New(t.TempDir(), cfg)
	require.NoError(t, err)
	return db
}

func TestGetPutDelete(t *testing.T) {
	require := require.New(t)
	db := newTestDatabase(t)

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(err, database.ErrNotFound)
	has, err := db.Has([]byte("missing"))
	require.NoError(err)
	require.False(has)

	require.NoError(db.Put([]byte("k"), []byte("v")))
	v, err := db.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), v)

	require.NoError(db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(db.Close())
	_, err = db.Get([]byte("k"))
	require.ErrorIs(err, database.ErrClosed)
	require.ErrorIs(db.Close(), database.ErrClosed)
}

func TestBatch(t *testing.T) {
	require := require.New(t)
	db := newTestDatabase(t)
	defer db.Close()

	require.NoError(db.Put([]byte("old"), []byte{0}))

	b := db.NewBatch()
	require.NoError(b.Put([]byte("a"), []byte{1}))
	require.NoError(b.Delete([]byte("old")))
	require.Equal(len("a")+1+len("old"), b.Size())

	// nothing is visible before the batch is written
	_, err := db.Get([]byte("a"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(b.Write())
	v, err := db.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte{1}, v)
	_, err = db.Get([]byte("old"))
	require.ErrorIs(err, database.ErrNotFound)

	replayed := memdb.New()
	require.NoError(replayed.Put([]byte("old"), []byte{0}))
	require.NoError(b.Replay(replayed))
	v, err = replayed.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte{1}, v)
	has, err := replayed.Has([]byte("old"))
	require.NoError(err)
	require.False(has)

	b.Reset()
	require.Zero(b.Size())
}
