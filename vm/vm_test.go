// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm_test

import (
	"context"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
	"github.com/ava-labs/hypercounter/vm/vmtest"
)

func newVM(config vm.Config) (*vm.VM, error) {
	return vm.New(
		context.Background(),
		logging.NoLog{},
		trace.Noop("test"),
		clock.NewMock(),
		config,
		state.NewDatabase(memdb.New()),
		state.NewDatabase(memdb.New()),
	)
}

func TestNewConfigErrors(t *testing.T) {
	config := vm.NewConfig()
	config.SchedulerInterval = 0
	_, err := newVM(config)
	require.ErrorIs(t, err, vm.ErrInvalidSchedulerInterval)

	config = vm.NewConfig()
	config.Delegate.Validator = vmtest.NewKey()
	_, err = newVM(config)
	require.ErrorIs(t, err, vm.ErrWrongValidator)
}

func TestDelegatesToLocalValidator(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	v := vmtest.New(t, vm.NewConfig())
	require.Equal(vm.DefaultValidator, v.Config().Delegate.Validator)

	cli := v.Client()
	_, err := cli.Initialize(ctx, v.Payer)
	require.NoError(err)
	_, err = cli.Delegate(ctx, v.Payer)
	require.NoError(err)

	record, exists, err := delegation.GetRecord(ctx, v.Base(), counter.Address)
	require.NoError(err)
	require.True(exists)
	require.Equal(vm.DefaultValidator, record.Authority)
	require.Equal(v.Rollup().Validator(), record.Authority)
}

func TestRunScheduler(t *testing.T) {
	require := require.New(t)
	v := vmtest.New(t, vm.NewConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- v.Run(ctx)
	}()
	require.Eventually(func() bool {
		v.Clock.Add(time.Second)
		return v.Scheduler().Ticks() > 0
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(<-done)
}

func TestGatherer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	v := vmtest.New(t, vm.NewConfig())
	_, err := v.Client().Initialize(ctx, v.Payer)
	require.NoError(err)

	families, err := v.Gatherer().Gather()
	require.NoError(err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(names["base_txs_succeeded"])
	require.True(names["rollup_clones"])
}
