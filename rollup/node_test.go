// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/sdk"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
)

func newKey() codec.Address {
	return codec.CreateAddress(codec.KeyAddressTypeID, ids.GenerateTestID())
}

type testEnv struct {
	base      *runtime.Host
	node      *Node
	clock     *clock.Mock
	payer     codec.Address
	validator codec.Address
}

// newTestEnv initializes and delegates the counter.
func newTestEnv(t *testing.T, cfg sdk.DelegateConfig) *testEnv {
	require := require.New(t)
	ctx := context.Background()

	clk := clock.NewMock()
	base, err := runtime.New(
		runtime.Config{Name: "base", Custody: runtime.CustodyBaseLedger},
		logging.NoLog{},
		trace.Noop("base"),
		clk,
		state.NewDatabase(memdb.New()),
	)
	require.NoError(err)
	env := &testEnv{
		base:      base,
		clock:     clk,
		payer:     newKey(),
		validator: newKey(),
	}
	require.NoError(base.Register(delegation.New(logging.NoLog{}, env.validator)))
	require.NoError(base.Register(counter.New(logging.NoLog{}, cfg)))
	require.NoError(base.Airdrop(ctx, env.payer, 1_000_000_000))

	env.node, err = New(ctx, logging.NoLog{}, trace.Noop("rollup"), clk, state.NewDatabase(memdb.New()), base, env.validator)
	require.NoError(err)
	require.NoError(env.node.Register(counter.New(logging.NoLog{}, cfg)))

	_, err = base.Execute(ctx, runtime.NewTransaction(
		[]codec.Address{env.payer},
		counter.Initialize(env.payer),
	))
	require.NoError(err)
	_, err = base.Execute(ctx, runtime.NewTransaction(
		[]codec.Address{env.payer},
		counter.Delegate(env.payer),
	))
	require.NoError(err)
	return env
}

func (e *testEnv) rollup(ix runtime.Instruction) error {
	_, err := e.node.Execute(context.Background(), runtime.NewTransaction([]codec.Address{e.payer}, ix))
	return err
}

func (e *testEnv) count(t *testing.T, r counter.AccountReader) (uint64, *runtime.Account) {
	c, acct, exists, err := counter.GetCounter(context.Background(), r)
	require.NoError(t, err)
	require.True(t, exists)
	return c.Count, acct
}

func TestClone(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())

	acct, exists, err := env.node.GetAccount(ctx, counter.Address)
	require.NoError(err)
	require.True(exists)
	require.Equal(counter.ProgramID, acct.Owner)
	require.Equal(runtime.CustodyRollup, acct.Custody)

	tracked := env.node.Tracked()
	require.Len(tracked, 1)
	require.Equal(counter.Address, tracked[0].Address)
	require.Equal(counter.ProgramID, tracked[0].Record.Owner)
	require.Equal(env.validator, tracked[0].Record.Authority)

	acct, exists, err = env.node.GetAccount(ctx, env.payer)
	require.NoError(err)
	require.True(exists)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)

	_, exists, err = env.node.GetAccount(ctx, newKey())
	require.NoError(err)
	require.False(exists)
}

func TestIncrementAndCommit(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())

	require.NoError(env.rollup(counter.IncrementAndCommit(env.payer)))
	require.NoError(env.rollup(counter.IncrementAndCommit(env.payer)))

	count, acct := env.count(t, env.node)
	require.Equal(uint64(2), count)
	require.Equal(runtime.CustodyRollup, acct.Custody)

	count, acct = env.count(t, env.base)
	require.Equal(uint64(2), count)
	require.Equal(delegation.ProgramID, acct.Owner)
	require.Equal(runtime.CustodyRollup, acct.Custody)

	metadata, exists, err := delegation.GetMetadata(ctx, env.base, counter.Address)
	require.NoError(err)
	require.True(exists)
	require.Equal(uint64(2), metadata.LastNonce)
}

func TestIncrementAndUndelegate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())

	require.NoError(env.rollup(counter.Increment()))
	require.NoError(env.rollup(counter.IncrementAndUndelegate(env.payer)))

	count, acct := env.count(t, env.base)
	require.Equal(uint64(2), count)
	require.Equal(counter.ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)

	_, exists, err := env.node.Host().GetAccount(ctx, counter.Address)
	require.NoError(err)
	require.False(exists)
	require.Empty(env.node.Tracked())

	// The rollup copy is read-only again.
	require.ErrorIs(env.rollup(counter.Increment()), runtime.ErrAccountNotDelegated)

	_, err = env.base.Execute(ctx, runtime.NewTransaction(nil, counter.Increment()))
	require.NoError(err)
	count, _ = env.count(t, env.base)
	require.Equal(uint64(3), count)
}

func TestCommitSubscriptions(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, sdk.DefaultDelegateConfig())

	var received []*Commit
	env.node.Subscribe(SubscriptionFunc(func(_ context.Context, c *Commit) error {
		received = append(received, c)
		return nil
	}))
	// Failing subscribers do not undo the commit.
	env.node.Subscribe(SubscriptionFunc(func(context.Context, *Commit) error {
		return errors.New("subscriber failed")
	}))

	require.NoError(env.rollup(counter.IncrementAndCommit(env.payer)))
	require.NoError(env.rollup(counter.IncrementAndUndelegate(env.payer)))

	require.Len(received, 2)
	require.Equal(counter.Address, received[0].Account)
	require.Equal(uint64(1), received[0].Nonce)
	require.False(received[0].Undelegated)
	require.Equal(16, received[0].Size)
	require.Equal(uint64(2), received[1].Nonce)
	require.True(received[1].Undelegated)
	require.Equal(env.clock.Now(), received[1].Time)

	commits := env.node.Commits(0)
	require.Equal(received[1], commits[0])
	require.Equal(received[0], commits[1])
	require.Len(env.node.Commits(1), 1)

	count, _ := env.count(t, env.base)
	require.Equal(uint64(2), count)
	require.NoError(env.node.Close())
}

func TestSchedulerCommits(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())
	s := NewScheduler(logging.NoLog{}, env.node, time.Second)

	require.NoError(env.rollup(counter.Increment()))
	require.NoError(s.Tick(ctx))
	count, _ := env.count(t, env.base)
	require.Zero(count)

	env.clock.Add(30 * time.Second)
	require.NoError(s.Tick(ctx))
	count, _ = env.count(t, env.base)
	require.Equal(uint64(1), count)

	// Nothing changed since the last commit.
	env.clock.Add(30 * time.Second)
	require.NoError(s.Tick(ctx))
	metadata, _, err := delegation.GetMetadata(ctx, env.base, counter.Address)
	require.NoError(err)
	require.Equal(uint64(1), metadata.LastNonce)
	require.Equal(uint64(3), s.Ticks())
}

func TestSchedulerUndelegatesExpired(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DelegateConfig{TimeLimit: 1_000, CommitFrequencyMs: 30_000})
	s := NewScheduler(logging.NoLog{}, env.node, time.Second)

	require.NoError(env.rollup(counter.Increment()))
	require.NoError(s.Tick(ctx))
	require.Len(env.node.Tracked(), 1)

	env.clock.Add(time.Second)
	require.NoError(s.Tick(ctx))
	require.Empty(env.node.Tracked())

	count, acct := env.count(t, env.base)
	require.Equal(uint64(1), count)
	require.Equal(counter.ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)

	delegated, err := delegation.IsDelegated(ctx, env.base, counter.Address)
	require.NoError(err)
	require.False(delegated)
}

func TestSchedulerEvictsUndelegated(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DelegateConfig{TimeLimit: 1_000, CommitFrequencyMs: 30_000})
	s := NewScheduler(logging.NoLog{}, env.node, time.Second)

	require.NoError(env.rollup(counter.Increment()))
	env.clock.Add(time.Second)

	// Anyone may return an expired delegation from the base ledger.
	ix, err := delegation.Undelegate(env.payer, counter.Address, counter.ProgramID, env.payer)
	require.NoError(err)
	_, err = env.base.Execute(ctx, runtime.NewTransaction([]codec.Address{env.payer}, ix))
	require.NoError(err)

	require.NoError(s.Tick(ctx))
	require.Empty(env.node.Tracked())
	_, exists, err := env.node.Host().GetAccount(ctx, counter.Address)
	require.NoError(err)
	require.False(exists)
}

// untrackingBase drops [target] from the node the first time its
// delegation record is read, as a concurrent undelegation would.
type untrackingBase struct {
	BaseLedger
	node   *Node
	target codec.Address
	done   bool
}

func (b *untrackingBase) GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error) {
	if !b.done && addr == delegation.RecordAddress(b.target) {
		b.done = true
		b.node.untrack(b.target)
	}
	return b.BaseLedger.GetAccount(ctx, addr)
}

func TestSchedulerSkipsUntracked(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())
	s := NewScheduler(logging.NoLog{}, env.node, time.Second)

	require.NoError(env.rollup(counter.Increment()))
	base := &untrackingBase{BaseLedger: env.base, node: env.node, target: counter.Address}
	env.node.base = base

	env.clock.Add(30 * time.Second)
	require.NoError(s.Tick(ctx))
	require.True(base.done)
	require.Empty(env.node.Tracked())

	count, _ := env.count(t, env.base)
	require.Zero(count)
}

func TestSchedulerRun(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, sdk.DefaultDelegateConfig())
	s := NewScheduler(logging.NoLog{}, env.node, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(s.Run(ctx))

	s.running.Store(true)
	require.ErrorIs(s.Run(context.Background()), ErrSchedulerRunning)
}

func TestBatches(t *testing.T) {
	require := require.New(t)

	addrs := make([]codec.Address, 17)
	for i := range addrs {
		addrs[i] = newKey()
	}
	out := batches(addrs)
	require.Len(out, 3)
	require.Len(out[0], 8)
	require.Len(out[2], 1)
	require.Empty(batches(nil))
}

func mockBase(t *testing.T, ctrl *gomock.Controller, validator, payer codec.Address) *MockBaseLedger {
	require := require.New(t)

	counterBytes, err := (&counter.Counter{Count: 5}).Marshal()
	require.NoError(err)
	recordBytes, err := (&delegation.Record{
		Authority:         validator,
		Owner:             counter.ProgramID,
		CommitFrequencyMs: 30_000,
	}).Marshal()
	require.NoError(err)
	metadataBytes, err := (&delegation.Metadata{
		LastNonce: 3,
		Seeds:     [][]byte{counter.Seed},
		RentPayer: payer,
	}).Marshal()
	require.NoError(err)

	accounts := map[codec.Address]*runtime.Account{
		counter.Address: {
			Owner:   delegation.ProgramID,
			Custody: runtime.CustodyRollup,
			Data:    counterBytes,
		},
		delegation.RecordAddress(counter.Address): {
			Owner: delegation.ProgramID,
			Data:  recordBytes,
		},
		delegation.MetadataAddress(counter.Address): {
			Owner: delegation.ProgramID,
			Data:  metadataBytes,
		},
	}
	base := NewMockBaseLedger(ctrl)
	base.EXPECT().GetAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, addr codec.Address) (*runtime.Account, bool, error) {
			acct, ok := accounts[addr]
			if !ok {
				return nil, false, nil
			}
			return acct.Clone(), true, nil
		},
	).AnyTimes()
	return base
}

func TestCommitRejectedByBase(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	validator, payer := newKey(), newKey()
	base := mockBase(t, ctrl, validator, payer)
	errRejected := errors.New("rejected")
	base.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(nil, errRejected)

	node, err := New(ctx, logging.NoLog{}, trace.Noop("rollup"), clock.NewMock(), state.NewDatabase(memdb.New()), base, validator)
	require.NoError(err)
	require.NoError(node.Register(counter.New(logging.NoLog{}, sdk.DefaultDelegateConfig())))

	_, err = node.Execute(ctx, runtime.NewTransaction([]codec.Address{payer}, counter.IncrementAndCommit(payer)))
	require.ErrorIs(err, ErrCommitFailed)
	require.ErrorIs(err, errRejected)

	_, exists, err := node.Host().GetAccount(ctx, counter.Address)
	require.NoError(err)
	require.False(exists)
}

func TestCommitTransaction(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	validator, payer := newKey(), newKey()
	base := mockBase(t, ctrl, validator, payer)
	var submitted *runtime.Transaction
	base.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *runtime.Transaction) (*runtime.Result, error) {
			submitted = tx
			return &runtime.Result{Instructions: len(tx.Instructions)}, nil
		},
	)

	node, err := New(ctx, logging.NoLog{}, trace.Noop("rollup"), clock.NewMock(), state.NewDatabase(memdb.New()), base, validator)
	require.NoError(err)
	require.NoError(node.Register(counter.New(logging.NoLog{}, sdk.DefaultDelegateConfig())))

	_, err = node.Execute(ctx, runtime.NewTransaction([]codec.Address{payer}, counter.IncrementAndUndelegate(payer)))
	require.NoError(err)

	require.NotNil(submitted)
	require.Equal([]codec.Address{validator}, submitted.Signers)
	require.Len(submitted.Instructions, 2)

	var args delegation.CommitStateArgs
	require.NoError(codec.UnmarshalBorsh(codec.InstructionDiscriminator("commit_state"), submitted.Instructions[0].Data, &args))
	require.Equal(uint64(4), args.Nonce)
	require.True(args.AllowUndelegation)
	c, err := counter.UnmarshalCounter(args.Data)
	require.NoError(err)
	require.Equal(uint64(6), c.Count)

	undelegate := submitted.Instructions[1]
	require.Equal(delegation.ProgramID, undelegate.ProgramID)
	require.Equal(counter.ProgramID, undelegate.Accounts[2].Address)
	require.Equal(payer, undelegate.Accounts[5].Address)

	_, exists, err := node.Host().GetAccount(ctx, counter.Address)
	require.NoError(err)
	require.False(exists)
}

func TestScheduleUntracked(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t, sdk.DefaultDelegateConfig())

	require.ErrorIs(env.node.Schedule(ctx, false, env.payer), ErrAccountNotTracked)
	require.ErrorIs(env.node.Schedule(ctx, false, newKey()), ErrAccountNotTracked)

	// The counter is cloned on demand.
	require.NoError(env.node.Schedule(ctx, false, counter.Address))
	require.Len(env.node.Tracked(), 1)
}
