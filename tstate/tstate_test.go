// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tstate

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypercounter/keys"
	"github.com/ava-labs/hypercounter/state"
)

var (
	testVal = []byte("value")

	key1    = keys.EncodeChunks([]byte("key1"), 1)
	key1str = string(key1)
	key2    = keys.EncodeChunks([]byte("key2"), 2)
	key2str = string(key2)
)

func TestScope(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()
	ts := New(10)

	// No Scope
	tsv := ts.NewView(state.Keys{}, map[string][]byte{})
	val, err := tsv.GetValue(ctx, key1)
	require.ErrorIs(err, ErrInvalidKeyOrPermission)
	require.Nil(val)
	require.ErrorIs(tsv.Insert(ctx, key1, testVal), ErrInvalidKeyOrPermission)
	require.ErrorIs(tsv.Remove(ctx, key1), ErrInvalidKeyOrPermission)
}

func TestGetValue(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()
	ts := New(10)

	tsv := ts.NewView(state.Keys{key1str: state.Read}, map[string][]byte{key1str: testVal})
	val, err := tsv.GetValue(ctx, key1)
	require.NoError(err)
	require.Equal(testVal, val)

	tsv = ts.NewView(state.Keys{key1str: state.Read}, map[string][]byte{})
	_, err = tsv.GetValue(ctx, key1)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestInsertPermissions(t *testing.T) {
	tests := []struct {
		name    string
		perm    state.Permissions
		storage map[string][]byte
		err     error
	}{
		{
			name: "read only",
			perm: state.Read,
			err:  ErrInvalidKeyOrPermission,
		},
		{
			name: "write without allocate on new key",
			perm: state.Write,
			err:  ErrInvalidKeyOrPermission,
		},
		{
			name:    "write existing key",
			perm:    state.Write,
			storage: map[string][]byte{key1str: []byte("old")},
		},
		{
			name: "allocate new key",
			perm: state.All,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.TODO()
			storage := tt.storage
			if storage == nil {
				storage = map[string][]byte{}
			}
			tsv := New(1).NewView(state.Keys{key1str: tt.perm}, storage)
			err := tsv.Insert(ctx, key1, testVal)
			require.ErrorIs(err, tt.err)
			if tt.err == nil {
				require.Equal(1, tsv.PendingChanges())
			}
		})
	}
}

func TestInsertValueTooLarge(t *testing.T) {
	require := require.New(t)
	tsv := New(1).NewView(state.Keys{key1str: state.All}, map[string][]byte{})
	require.ErrorIs(tsv.Insert(context.TODO(), key1, make([]byte, keys.ChunkSize)), ErrInvalidKeyValue)
}

func TestDisableAllocation(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()
	tsv := New(1).NewView(state.Keys{key1str: state.All}, map[string][]byte{})
	tsv.DisableAllocation()
	require.ErrorIs(tsv.Insert(ctx, key1, testVal), ErrAllocationDisabled)
	tsv.EnableAllocation()
	require.NoError(tsv.Insert(ctx, key1, testVal))
}

func TestRemoveInsert(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()
	tsv := New(1).NewView(state.Keys{key1str: state.All}, map[string][]byte{key1str: testVal})

	require.NoError(tsv.Remove(ctx, key1))
	_, err := tsv.GetValue(ctx, key1)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(tsv.Insert(ctx, key1, []byte("new")))
	val, err := tsv.GetValue(ctx, key1)
	require.NoError(err)
	require.Equal([]byte("new"), val)
}

func TestCommit(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()
	ts := New(2)
	scope := state.Keys{key1str: state.All, key2str: state.All}

	discarded := ts.NewView(scope, map[string][]byte{key2str: testVal})
	require.NoError(discarded.Insert(ctx, key1, testVal))

	committed := ts.NewView(scope, map[string][]byte{key2str: testVal})
	require.NoError(committed.Insert(ctx, key1, []byte("v1")))
	require.NoError(committed.Remove(ctx, key2))
	committed.Commit()

	changes := ts.ChangedKeys()
	require.Len(changes, 2)
	require.Equal([]byte("v1"), changes[key1str].Value())
	require.True(changes[key2str].IsNothing())
	require.Equal(2, ts.OpIndex())

	// later views observe committed changes
	next := ts.NewView(scope, map[string][]byte{key2str: testVal})
	_, err := next.GetValue(ctx, key2)
	require.ErrorIs(err, database.ErrNotFound)
}
