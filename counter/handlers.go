// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/sdk"
)

var _ runtime.Program = (*Program)(nil)

type handler func(context.Context, *runtime.Invocation) error

// Program is the counter. The same program runs on the base ledger and on
// the rollup; custody of the counter account decides where it can be
// written.
type Program struct {
	log      logging.Logger
	delegate sdk.DelegateConfig
	handlers map[codec.Discriminator]handler
}

// New returns the counter program. [cfg] parameterizes delegation requests.
func New(log logging.Logger, cfg sdk.DelegateConfig) *Program {
	p := &Program{log: log, delegate: cfg}
	p.handlers = map[codec.Discriminator]handler{
		initializeDiscriminator:             p.initialize,
		incrementDiscriminator:              p.increment,
		delegateDiscriminator:               p.delegateCounter,
		incrementAndCommitDiscriminator:     p.incrementAndCommit,
		undelegateDiscriminator:             p.undelegate,
		incrementAndUndelegateDiscriminator: p.incrementAndUndelegate,
	}
	return p
}

func (*Program) ID() codec.Address {
	return ProgramID
}

func (*Program) Name() string {
	return Name
}

func (p *Program) Execute(ctx context.Context, inv *runtime.Invocation) error {
	d, body, err := codec.SplitDiscriminator(inv.Data())
	if err != nil {
		return fmt.Errorf("%w: %w", runtime.ErrInvalidInstructionData, err)
	}
	h, ok := p.handlers[d]
	if !ok {
		return fmt.Errorf("%w: counter %x", runtime.ErrUnknownInstruction, d[:])
	}
	if len(body) != 0 {
		return fmt.Errorf("%w: unexpected arguments", runtime.ErrInvalidInstructionData)
	}
	return h(ctx, inv)
}

func (p *Program) initialize(ctx context.Context, inv *runtime.Invocation) error {
	if err := inv.RequireAccounts(3); err != nil {
		return err
	}
	metas := inv.Accounts()
	addr, user, system := metas[0].Address, metas[1].Address, metas[2].Address
	if err := codec.VerifyDerivedAddress(addr, ProgramID, Seed); err != nil {
		return err
	}
	if system != runtime.SystemProgramID {
		return fmt.Errorf("%w: system program %s", runtime.ErrProgramNotFound, system)
	}
	existing, exists, err := inv.GetAccount(ctx, addr)
	if err != nil {
		return err
	}
	if exists {
		err = p.claim(ctx, inv, user, addr, existing)
	} else {
		ix := runtime.CreateAccount(user, addr, runtime.MinimumBalance(Space), Space, ProgramID)
		err = inv.Invoke(ctx, ix, [][]byte{Seed})
	}
	if err != nil {
		return err
	}
	acct, err := inv.MustGetAccount(ctx, addr)
	if err != nil {
		return err
	}
	acct.Data, err = (&Counter{}).Marshal()
	if err != nil {
		return err
	}
	if err := inv.SetAccount(ctx, addr, acct); err != nil {
		return err
	}
	p.log.Debug("initialized counter",
		zap.Stringer("counter", addr),
		zap.Stringer("user", user),
	)
	return nil
}

// claim takes over a counter address that already exists. Only a data-less
// system account, such as one funded before initialization, can be claimed.
// Its balance is topped up to the rent minimum.
func (*Program) claim(ctx context.Context, inv *runtime.Invocation, user, addr codec.Address, acct *runtime.Account) error {
	if codec.HasDiscriminator(discriminator, acct.Data) {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, addr)
	}
	if acct.Owner != runtime.SystemProgramID || len(acct.Data) != 0 {
		return fmt.Errorf("%w: %s is owned by %s", runtime.ErrAccountAlreadyInUse, addr, acct.Owner)
	}
	if required := runtime.MinimumBalance(Space); acct.Lamports < required {
		if err := inv.Invoke(ctx, runtime.Transfer(user, addr, required-acct.Lamports)); err != nil {
			return err
		}
	}
	return inv.Invoke(ctx, runtime.Assign(addr, ProgramID), [][]byte{Seed})
}

func (p *Program) increment(ctx context.Context, inv *runtime.Invocation) error {
	if err := inv.RequireAccounts(1); err != nil {
		return err
	}
	record, err := LoadRecord(ctx, inv, inv.Accounts()[0].Address)
	if err != nil {
		return err
	}
	if err := record.Increment(); err != nil {
		return err
	}
	inv.Logf("count: %d", record.Count)
	return record.Flush(ctx)
}

func (p *Program) delegateCounter(ctx context.Context, inv *runtime.Invocation) error {
	if err := inv.RequireAccounts(8); err != nil {
		return err
	}
	metas := inv.Accounts()
	accounts := delegation.DelegateAccounts{
		Payer:             metas[0].Address,
		PDA:               metas[1].Address,
		OwnerProgram:      metas[2].Address,
		Buffer:            metas[3].Address,
		Record:            metas[4].Address,
		Metadata:          metas[5].Address,
		DelegationProgram: metas[6].Address,
		SystemProgram:     metas[7].Address,
	}
	if err := sdk.DelegateAccount(ctx, inv, accounts, [][]byte{Seed}, p.delegate); err != nil {
		return err
	}
	p.log.Debug("delegated counter",
		zap.Stringer("counter", accounts.PDA),
		zap.Stringer("payer", accounts.Payer),
	)
	return nil
}

type commitAccounts struct {
	payer        codec.Address
	counter      codec.Address
	magicContext codec.Address
	magicProgram codec.Address
}

// loadDelegated loads the counter of a commit instruction and checks that
// it is writable in the rollup.
func (*Program) loadDelegated(ctx context.Context, inv *runtime.Invocation) (*commitAccounts, *Record, error) {
	if err := inv.RequireAccounts(4); err != nil {
		return nil, nil, err
	}
	metas := inv.Accounts()
	accounts := &commitAccounts{
		payer:        metas[0].Address,
		counter:      metas[1].Address,
		magicContext: metas[2].Address,
		magicProgram: metas[3].Address,
	}
	record, err := LoadRecord(ctx, inv, accounts.counter)
	if err != nil {
		return nil, nil, err
	}
	if record.Custody() != runtime.CustodyRollup {
		return nil, nil, fmt.Errorf("%w: %s", magic.ErrNotDelegated, accounts.counter)
	}
	return accounts, record, nil
}

func (p *Program) incrementAndCommit(ctx context.Context, inv *runtime.Invocation) error {
	accounts, record, err := p.loadDelegated(ctx, inv)
	if err != nil {
		return err
	}
	if err := record.Increment(); err != nil {
		return err
	}
	if err := record.Flush(ctx); err != nil {
		return err
	}
	inv.Logf("count: %d", record.Count)
	return sdk.CommitAccounts(ctx, inv, accounts.payer, []codec.Address{accounts.counter}, accounts.magicContext, accounts.magicProgram)
}

func (p *Program) undelegate(ctx context.Context, inv *runtime.Invocation) error {
	accounts, record, err := p.loadDelegated(ctx, inv)
	if err != nil {
		return err
	}
	if err := record.Flush(ctx); err != nil {
		return err
	}
	return sdk.CommitAndUndelegateAccounts(ctx, inv, accounts.payer, []codec.Address{accounts.counter}, accounts.magicContext, accounts.magicProgram)
}

func (p *Program) incrementAndUndelegate(ctx context.Context, inv *runtime.Invocation) error {
	accounts, record, err := p.loadDelegated(ctx, inv)
	if err != nil {
		return err
	}
	if err := record.Increment(); err != nil {
		return err
	}
	if err := record.Flush(ctx); err != nil {
		return err
	}
	inv.Logf("count: %d", record.Count)
	return sdk.CommitAndUndelegateAccounts(ctx, inv, accounts.payer, []codec.Address{accounts.counter}, accounts.magicContext, accounts.magicProgram)
}
