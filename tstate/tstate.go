// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tstate

import (
	"sync"

	"github.com/ava-labs/avalanchego/utils/maybe"

	"github.com/ava-labs/hypercounter/state"
)

// TState defines a struct for storing temporary state.
type TState struct {
	l           sync.Mutex
	changedKeys map[string]maybe.Maybe[[]byte]
	ops         int
}

// New returns a new instance of TState.
//
// [changedSize] is an estimate of the number of keys that will be changed.
func New(changedSize int) *TState {
	return &TState{changedKeys: make(map[string]maybe.Maybe[[]byte], changedSize)}
}

// NewView returns a view limited to [scope]. [storage] holds the values of
// the scoped keys as they exist in the underlying database.
func (ts *TState) NewView(scope state.Keys, storage map[string][]byte) *TStateView {
	return &TStateView{
		ts:                 ts,
		pendingChangedKeys: make(map[string]maybe.Maybe[[]byte], len(scope)),
		scope:              scope,
		scopeStorage:       storage,
		canAllocate:        true, // default to allowing allocation
	}
}

func (ts *TState) getChangedValue(key string) ([]byte, bool, bool) {
	ts.l.Lock()
	defer ts.l.Unlock()

	if v, ok := ts.changedKeys[key]; ok {
		if v.IsNothing() {
			return nil, true, false
		}
		return v.Value(), true, true
	}
	return nil, false, false
}

// ChangedKeys returns every change committed to [ts] by its views.
//
// Once [ChangedKeys] is called, [TState] should not be used again (as the
// bytes stored are consumed).
func (ts *TState) ChangedKeys() map[string]maybe.Maybe[[]byte] {
	ts.l.Lock()
	defer ts.l.Unlock()

	return ts.changedKeys
}

// OpIndex returns the number of operations committed to [ts].
func (ts *TState) OpIndex() int {
	ts.l.Lock()
	defer ts.l.Unlock()

	return ts.ops
}
