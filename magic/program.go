// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package magic

import (
	"context"
	"fmt"
	"slices"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/runtime"
)

var _ runtime.Program = (*Program)(nil)

// Program runs on the rollup and queues commits of delegated accounts. It
// must be registered with [runtime.Host.RegisterPrivileged] so that it can
// lock accounts it does not own.
type Program struct {
	log       logging.Logger
	validator codec.Address
}

// New returns a magic program that accepts top-level commit requests paid
// by [validator].
func New(log logging.Logger, validator codec.Address) *Program {
	return &Program{log: log, validator: validator}
}

func (*Program) ID() codec.Address {
	return ProgramID
}

func (*Program) Name() string {
	return "magic"
}

func (p *Program) Execute(ctx context.Context, inv *runtime.Invocation) error {
	d, body, err := codec.SplitDiscriminator(inv.Data())
	if err != nil {
		return fmt.Errorf("%w: %w", runtime.ErrInvalidInstructionData, err)
	}
	if len(body) != 0 {
		return fmt.Errorf("%w: unexpected arguments", runtime.ErrInvalidInstructionData)
	}
	switch d {
	case initContextDiscriminator:
		return p.initContext(ctx, inv)
	case scheduleCommitDiscriminator:
		return p.schedule(ctx, inv, false)
	case scheduleCommitAndUndelegateDiscriminator:
		return p.schedule(ctx, inv, true)
	default:
		return fmt.Errorf("%w: magic %x", runtime.ErrUnknownInstruction, d[:])
	}
}

func (*Program) initContext(ctx context.Context, inv *runtime.Invocation) error {
	if err := inv.RequireAccounts(2); err != nil {
		return err
	}
	metas := inv.Accounts()
	if metas[1].Address != ContextAddress {
		return fmt.Errorf("%w: %s", ErrInvalidContext, metas[1].Address)
	}
	data, err := (&Context{}).Marshal()
	if err != nil {
		return err
	}
	ix := runtime.CreateAccount(metas[0].Address, ContextAddress, runtime.MinimumBalance(len(data)), uint32(len(data)), ProgramID)
	if err := inv.Invoke(ctx, ix, [][]byte{contextSeed}); err != nil {
		return err
	}
	acct, err := inv.MustGetAccount(ctx, ContextAddress)
	if err != nil {
		return err
	}
	acct.Data = data
	return inv.SetAccount(ctx, ContextAddress, acct)
}

func (p *Program) schedule(ctx context.Context, inv *runtime.Invocation, undelegate bool) error {
	if err := inv.RequireAccounts(2); err != nil {
		return err
	}
	metas := inv.Accounts()
	payer, magicContext := metas[0].Address, metas[1].Address
	if magicContext != ContextAddress {
		return fmt.Errorf("%w: %s", ErrInvalidContext, magicContext)
	}
	if !inv.IsSigner(payer) {
		return fmt.Errorf("%w: %s", runtime.ErrMissingSignature, payer)
	}
	committees := metas[2:]
	if len(committees) == 0 {
		return ErrNoAccounts
	}
	caller := inv.Caller()
	if caller == codec.EmptyAddress && payer != p.validator {
		return fmt.Errorf("%w: top-level commits must be paid by the validator", ErrIllegalCaller)
	}

	magicAcct, err := inv.MustGetAccount(ctx, ContextAddress)
	if err != nil {
		return err
	}
	mctx, err := UnmarshalContext(magicAcct.Data)
	if err != nil {
		return err
	}
	if len(mctx.Scheduled)+len(committees) > MaxScheduled {
		return fmt.Errorf("%w: %d", ErrTooManyScheduled, len(mctx.Scheduled)+len(committees))
	}
	now := inv.Now().UnixMilli()
	for _, meta := range committees {
		acct, err := inv.MustGetAccount(ctx, meta.Address)
		if err != nil {
			return err
		}
		if acct.Custody != runtime.CustodyRollup || acct.Owner == delegation.ProgramID {
			return fmt.Errorf("%w: %s", ErrNotDelegated, meta.Address)
		}
		if caller != codec.EmptyAddress && acct.Owner != caller {
			return fmt.Errorf("%w: %s is owned by %s", ErrIllegalCaller, meta.Address, acct.Owner)
		}
		mctx.Scheduled = append(mctx.Scheduled, ScheduledCommit{
			ID:          mctx.NextID,
			Account:     meta.Address,
			Owner:       acct.Owner,
			Data:        slices.Clone(acct.Data),
			Payer:       payer,
			Undelegate:  undelegate,
			RequestedAt: now,
		})
		mctx.NextID++
		if undelegate {
			// Locked accounts can no longer be written by their owner
			// until the rollup evicts them.
			acct.Owner = delegation.ProgramID
			if err := inv.SetAccount(ctx, meta.Address, acct); err != nil {
				return err
			}
		}
	}
	b, err := mctx.Marshal()
	if err != nil {
		return err
	}
	magicAcct.Data = b
	if err := inv.SetAccount(ctx, ContextAddress, magicAcct); err != nil {
		return err
	}
	inv.Logf("scheduled %d commits (undelegate=%t)", len(committees), undelegate)
	p.log.Debug("scheduled commits",
		zap.Int("accounts", len(committees)),
		zap.Bool("undelegate", undelegate),
		zap.Stringer("payer", payer),
	)
	return nil
}
