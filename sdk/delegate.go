// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sdk is used by programs to move their accounts between the base
// ledger and the rollup.
package sdk

import (
	"context"
	"fmt"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/runtime"
)

const (
	// DefaultTimeLimit never expires.
	DefaultTimeLimit uint64 = 0
	// DefaultCommitFrequencyMs is the rate at which the rollup checkpoints
	// delegated accounts to the base ledger.
	DefaultCommitFrequencyMs uint32 = 30_000
)

type DelegateConfig struct {
	TimeLimit         uint64        `json:"timeLimit" yaml:"timeLimit"`
	CommitFrequencyMs uint32        `json:"commitFrequencyMs" yaml:"commitFrequencyMs"`
	Validator         codec.Address `json:"validator" yaml:"validator"`
}

func DefaultDelegateConfig() DelegateConfig {
	return DelegateConfig{
		TimeLimit:         DefaultTimeLimit,
		CommitFrequencyMs: DefaultCommitFrequencyMs,
	}
}

// DelegateAccount hands custody of [accounts.PDA] to the rollup. It must be
// called by the program owning the account, with the seeds that derive the
// account from that program.
//
// The registry accounts are re-derived from the account address and any
// mismatch fails with [delegation.ErrInvalidDelegationAccounts]. The whole
// request is a single registry instruction, so either the delegation is
// recorded and custody moves, or nothing changes.
func DelegateAccount(
	ctx context.Context,
	inv *runtime.Invocation,
	accounts delegation.DelegateAccounts,
	seeds [][]byte,
	cfg DelegateConfig,
) error {
	if accounts.OwnerProgram != inv.ProgramID() {
		return fmt.Errorf("%w: owner program %s, running %s", delegation.ErrInvalidDelegationAccounts, accounts.OwnerProgram, inv.ProgramID())
	}
	if err := delegation.VerifyAccounts(accounts); err != nil {
		return err
	}
	if err := codec.VerifyDerivedAddress(accounts.PDA, accounts.OwnerProgram, seeds...); err != nil {
		return fmt.Errorf("%w: %w", delegation.ErrInvalidDelegationAccounts, err)
	}
	delegated, err := delegation.IsDelegated(ctx, inv, accounts.PDA)
	if err != nil {
		return err
	}
	if delegated {
		return fmt.Errorf("%w: %s", delegation.ErrDelegationConflict, accounts.PDA)
	}
	acct, err := inv.MustGetAccount(ctx, accounts.PDA)
	if err != nil {
		return err
	}
	if acct.Owner == delegation.ProgramID || acct.Custody != runtime.CustodyBaseLedger {
		return fmt.Errorf("%w: %s", delegation.ErrDelegationConflict, accounts.PDA)
	}
	acct.Owner = delegation.ProgramID
	if err := inv.SetAccount(ctx, accounts.PDA, acct); err != nil {
		return err
	}
	ix, err := delegation.Delegate(accounts, &delegation.DelegateArgs{
		Seeds:             seeds,
		TimeLimit:         cfg.TimeLimit,
		CommitFrequencyMs: cfg.CommitFrequencyMs,
		Validator:         cfg.Validator,
	})
	if err != nil {
		return err
	}
	return inv.Invoke(ctx, ix, seeds)
}
