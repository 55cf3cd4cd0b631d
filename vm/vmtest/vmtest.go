// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vmtest builds in-memory VMs for tests.
package vmtest

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
)

// PayerFunds is airdropped to the payer of every test VM.
const PayerFunds uint64 = 1_000_000_000

type TestVM struct {
	*vm.VM

	Clock *clock.Mock
	Payer codec.Address
}

func NewKey() codec.Address {
	return codec.CreateAddress(codec.KeyAddressTypeID, ids.GenerateTestID())
}

// New returns a VM backed by memory databases with a funded payer.
func New(t *testing.T, config vm.Config) *TestVM {
	require := require.New(t)
	ctx := context.Background()

	clk := clock.NewMock()
	v, err := vm.New(
		ctx,
		logging.NoLog{},
		trace.Noop("vmtest"),
		clk,
		config,
		state.NewDatabase(memdb.New()),
		state.NewDatabase(memdb.New()),
	)
	require.NoError(err)
	payer := NewKey()
	require.NoError(v.Base().Airdrop(ctx, payer, PayerFunds))
	return &TestVM{VM: v, Clock: clk, Payer: payer}
}
