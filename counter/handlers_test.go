// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/sdk"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
)

const airdrop = 1_000_000_000

type testEnv struct {
	base   *runtime.Host
	baseDB *state.Database
	node   *rollup.Node
	payer  codec.Address
}

func newKey() codec.Address {
	return codec.CreateAddress(codec.KeyAddressTypeID, ids.GenerateTestID())
}

func newTestEnv(t *testing.T) *testEnv {
	require := require.New(t)
	ctx := context.Background()

	clk := clock.NewMock()
	baseDB := state.NewDatabase(memdb.New())
	base, err := runtime.New(
		runtime.Config{Name: "base", Custody: runtime.CustodyBaseLedger},
		logging.NoLog{},
		trace.Noop("base"),
		clk,
		baseDB,
	)
	require.NoError(err)
	validator := newKey()
	require.NoError(base.Register(delegation.New(logging.NoLog{}, validator)))
	require.NoError(base.Register(New(logging.NoLog{}, sdk.DefaultDelegateConfig())))

	node, err := rollup.New(ctx, logging.NoLog{}, trace.Noop("rollup"), clk, state.NewDatabase(memdb.New()), base, validator)
	require.NoError(err)
	require.NoError(node.Register(New(logging.NoLog{}, sdk.DefaultDelegateConfig())))

	env := &testEnv{base: base, baseDB: baseDB, node: node, payer: newKey()}
	require.NoError(base.Airdrop(ctx, env.payer, airdrop))
	return env
}

func (e *testEnv) onBase(ix runtime.Instruction) error {
	_, err := e.base.Execute(context.Background(), runtime.NewTransaction([]codec.Address{e.payer}, ix))
	return err
}

func (e *testEnv) onRollup(ix runtime.Instruction) error {
	_, err := e.node.Execute(context.Background(), runtime.NewTransaction([]codec.Address{e.payer}, ix))
	return err
}

// store overwrites [acct] on the base ledger without running a program.
func (e *testEnv) store(t *testing.T, addr codec.Address, acct *runtime.Account) {
	require.NoError(t, e.baseDB.Apply(context.Background(), map[string]maybe.Maybe[[]byte]{
		string(runtime.AccountKey(addr)): maybe.Some(acct.Marshal()),
	}))
}

func (*testEnv) count(t *testing.T, r AccountReader) (uint64, *runtime.Account) {
	c, acct, exists, err := GetCounter(context.Background(), r)
	require.NoError(t, err)
	require.True(t, exists)
	return c.Count, acct
}

func TestDiscriminators(t *testing.T) {
	require := require.New(t)

	for name, d := range map[string]codec.Discriminator{
		"global:initialize":               initializeDiscriminator,
		"global:increment":                incrementDiscriminator,
		"global:delegate":                 delegateDiscriminator,
		"global:increment_and_commit":     incrementAndCommitDiscriminator,
		"global:undelegate":               undelegateDiscriminator,
		"global:increment_and_undelegate": incrementAndUndelegateDiscriminator,
		"account:Counter":                 discriminator,
	} {
		h := sha256.Sum256([]byte(name))
		require.Equal(h[:8], d[:], name)
	}
}

func TestInitialize(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(env.onBase(Initialize(env.payer)))
	count, acct := env.count(t, env.base)
	require.Zero(count)
	require.Equal(ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)
	require.Len(acct.Data, Space)
	require.Equal(runtime.MinimumBalance(Space), acct.Lamports)

	payer, _, err := env.base.GetAccount(ctx, env.payer)
	require.NoError(err)
	require.Equal(airdrop-runtime.MinimumBalance(Space), payer.Lamports)

	require.ErrorIs(env.onBase(Initialize(env.payer)), ErrAlreadyInitialized)
}

func TestInitializeErrors(t *testing.T) {
	env := newTestEnv(t)

	poor := newKey()
	require.NoError(t, env.base.Airdrop(context.Background(), poor, 1))
	_, err := env.base.Execute(context.Background(), runtime.NewTransaction([]codec.Address{poor}, Initialize(poor)))
	require.ErrorIs(t, err, runtime.ErrInsufficientFunds)

	ix := Initialize(env.payer)
	ix.Accounts[1].Signer = false
	require.ErrorIs(t, env.onBase(ix), runtime.ErrMissingSignature)

	_, _, exists, err := GetCounter(context.Background(), env.base)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInitializeFundedAddress(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	// Anyone can send lamports to the counter address before it exists.
	require.NoError(env.base.Airdrop(ctx, Address, 10))
	require.NoError(env.onBase(Initialize(env.payer)))

	count, acct := env.count(t, env.base)
	require.Zero(count)
	require.Equal(ProgramID, acct.Owner)
	require.Len(acct.Data, Space)
	require.Equal(runtime.MinimumBalance(Space), acct.Lamports)

	payer, _, err := env.base.GetAccount(ctx, env.payer)
	require.NoError(err)
	require.Equal(airdrop-runtime.MinimumBalance(Space)+10, payer.Lamports)

	require.ErrorIs(env.onBase(Initialize(env.payer)), ErrAlreadyInitialized)
}

func TestInitializeAddressInUse(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	env.store(t, Address, &runtime.Account{
		Lamports: runtime.MinimumBalance(4),
		Owner:    delegation.ProgramID,
		Custody:  runtime.CustodyBaseLedger,
		Data:     []byte{1, 2, 3, 4},
	})
	require.ErrorIs(env.onBase(Initialize(env.payer)), runtime.ErrAccountAlreadyInUse)
	require.NotErrorIs(env.onBase(Initialize(env.payer)), ErrAlreadyInitialized)
}

func TestIncrement(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	require.ErrorIs(env.onBase(Increment()), ErrNotInitialized)
	require.NoError(env.onBase(Initialize(env.payer)))
	for i := 0; i < 3; i++ {
		require.NoError(env.onBase(Increment()))
	}
	count, _ := env.count(t, env.base)
	require.Equal(uint64(3), count)

	wrong := Increment()
	wrong.Accounts[0].Address = codec.MustDeriveAddress(ProgramID, []byte("other-pda"))
	require.ErrorIs(env.onBase(wrong), codec.ErrAddressMismatch)
	count, _ = env.count(t, env.base)
	require.Equal(uint64(3), count)
}

func TestRecordOverflow(t *testing.T) {
	require := require.New(t)

	r := &Record{Counter: Counter{Count: math.MaxUint64 - 1}}
	require.NoError(r.Increment())
	require.Equal(uint64(math.MaxUint64), r.Count)
	require.ErrorIs(r.Increment(), ErrOverflow)
	require.Equal(uint64(math.MaxUint64), r.Count)
}

func TestIncrementOverflow(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	require.NoError(env.onBase(Initialize(env.payer)))
	_, acct := env.count(t, env.base)
	var err error
	acct.Data, err = (&Counter{Count: math.MaxUint64}).Marshal()
	require.NoError(err)
	env.store(t, Address, acct)

	require.ErrorIs(env.onBase(Increment()), ErrOverflow)
	count, stored := env.count(t, env.base)
	require.Equal(uint64(math.MaxUint64), count)
	require.Equal(acct.Data, stored.Data)
}

func TestUnmarshalCounter(t *testing.T) {
	require := require.New(t)

	b, err := (&Counter{Count: 42}).Marshal()
	require.NoError(err)
	require.Len(b, Space)
	c, err := UnmarshalCounter(b)
	require.NoError(err)
	require.Equal(uint64(42), c.Count)

	_, err = UnmarshalCounter(b[:Space-1])
	require.ErrorIs(err, runtime.ErrInvalidAccountData)
	b[0] ^= 0xff
	_, err = UnmarshalCounter(b)
	require.ErrorIs(err, codec.ErrInvalidDiscriminator)
}

func TestDelegate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(env.onBase(Initialize(env.payer)))
	require.NoError(env.onBase(Delegate(env.payer)))

	count, acct := env.count(t, env.base)
	require.Zero(count)
	require.Equal(delegation.ProgramID, acct.Owner)
	require.Equal(runtime.CustodyRollup, acct.Custody)

	record, exists, err := delegation.GetRecord(ctx, env.base, Address)
	require.NoError(err)
	require.True(exists)
	require.Equal(ProgramID, record.Owner)
	require.Equal(env.node.Validator(), record.Authority)
	require.Equal(sdk.DefaultTimeLimit, record.TimeLimit)
	require.Equal(sdk.DefaultCommitFrequencyMs, record.CommitFrequencyMs)

	metadata, exists, err := delegation.GetMetadata(ctx, env.base, Address)
	require.NoError(err)
	require.True(exists)
	require.Equal([][]byte{Seed}, metadata.Seeds)

	require.ErrorIs(env.onBase(Delegate(env.payer)), delegation.ErrDelegationConflict)
	require.ErrorIs(env.onBase(Increment()), runtime.ErrIllegalOwner)
}

func TestDelegateInvalidAccounts(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	require.NoError(env.onBase(Initialize(env.payer)))

	for i := 3; i <= 5; i++ {
		ix := Delegate(env.payer)
		ix.Accounts[i].Address = delegation.BufferAddress(env.payer)
		require.ErrorIs(env.onBase(ix), delegation.ErrInvalidDelegationAccounts)
	}
	ix := Delegate(env.payer)
	ix.Accounts[2].Address = delegation.ProgramID
	require.ErrorIs(env.onBase(ix), delegation.ErrInvalidDelegationAccounts)

	_, acct := env.count(t, env.base)
	require.Equal(ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)
}

func TestConcurrentDelegate(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	require.NoError(env.onBase(Initialize(env.payer)))

	var (
		g         errgroup.Group
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			err := env.onBase(Delegate(env.payer))
			switch {
			case err == nil:
				succeeded.Inc()
			case errors.Is(err, delegation.ErrDelegationConflict):
				conflicts.Inc()
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(g.Wait())
	require.Equal(int32(1), succeeded.Load())
	require.Equal(int32(7), conflicts.Load())
}

func TestCommitNotDelegated(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	require.NoError(env.onBase(Initialize(env.payer)))
	require.NoError(env.onBase(Increment()))

	for _, ix := range []runtime.Instruction{
		IncrementAndCommit(env.payer),
		Undelegate(env.payer),
		IncrementAndUndelegate(env.payer),
	} {
		require.ErrorIs(env.onRollup(ix), magic.ErrNotDelegated)
		require.ErrorIs(env.onBase(ix), magic.ErrNotDelegated)
	}
	count, _ := env.count(t, env.base)
	require.Equal(uint64(1), count)
	count, _ = env.count(t, env.node)
	require.Equal(uint64(1), count)
}

func TestUndelegate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(env.onBase(Initialize(env.payer)))
	require.NoError(env.onBase(Delegate(env.payer)))
	require.NoError(env.onRollup(Increment()))

	// Pending rollup changes are committed on undelegation.
	require.NoError(env.onRollup(Undelegate(env.payer)))
	count, acct := env.count(t, env.base)
	require.Equal(uint64(1), count)
	require.Equal(ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)

	delegated, err := delegation.IsDelegated(ctx, env.base, Address)
	require.NoError(err)
	require.False(delegated)

	// The account can be delegated again.
	require.NoError(env.onBase(Delegate(env.payer)))
	require.NoError(env.onRollup(IncrementAndCommit(env.payer)))
	count, _ = env.count(t, env.base)
	require.Equal(uint64(2), count)
}

func TestLifecycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(env.onBase(Initialize(env.payer)))
	for i := 0; i < 3; i++ {
		require.NoError(env.onBase(Increment()))
	}
	require.NoError(env.onBase(Delegate(env.payer)))
	count, _ := env.count(t, env.base)
	require.Equal(uint64(3), count)

	require.NoError(env.onRollup(IncrementAndCommit(env.payer)))
	count, acct := env.count(t, env.node)
	require.Equal(uint64(4), count)
	require.Equal(runtime.CustodyRollup, acct.Custody)
	count, acct = env.count(t, env.base)
	require.Equal(uint64(4), count)
	require.Equal(runtime.CustodyRollup, acct.Custody)

	require.NoError(env.onRollup(IncrementAndUndelegate(env.payer)))
	count, acct = env.count(t, env.base)
	require.Equal(uint64(5), count)
	require.Equal(ProgramID, acct.Owner)
	require.Equal(runtime.CustodyBaseLedger, acct.Custody)

	delegated, err := delegation.IsDelegated(ctx, env.base, Address)
	require.NoError(err)
	require.False(delegated)
	payer, _, err := env.base.GetAccount(ctx, env.payer)
	require.NoError(err)
	require.Equal(airdrop-runtime.MinimumBalance(Space), payer.Lamports)

	require.NoError(env.onBase(Increment()))
	count, _ = env.count(t, env.base)
	require.Equal(uint64(6), count)
}
