// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sdk

import (
	"context"
	"fmt"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/runtime"
)

func checkCommit(accounts []codec.Address, magicProgram codec.Address) error {
	if magicProgram != magic.ProgramID {
		return fmt.Errorf("%w: magic program %s", runtime.ErrProgramNotFound, magicProgram)
	}
	if len(accounts) == 0 {
		return magic.ErrNoAccounts
	}
	return nil
}

// CommitAccounts schedules a checkpoint of [accounts] to the base ledger.
// The accounts stay in the custody of the rollup. Any account that is not
// delegated fails with [magic.ErrNotDelegated].
func CommitAccounts(
	ctx context.Context,
	inv *runtime.Invocation,
	payer codec.Address,
	accounts []codec.Address,
	magicContext codec.Address,
	magicProgram codec.Address,
) error {
	if err := checkCommit(accounts, magicProgram); err != nil {
		return err
	}
	return inv.Invoke(ctx, magic.ScheduleCommit(payer, magicContext, accounts...))
}

// CommitAndUndelegateAccounts schedules a final checkpoint of [accounts]
// and their return to the base ledger. The snapshot is taken at the time of
// the call: the accounts are locked and cannot be modified afterwards, so
// callers must persist pending changes first.
func CommitAndUndelegateAccounts(
	ctx context.Context,
	inv *runtime.Invocation,
	payer codec.Address,
	accounts []codec.Address,
	magicContext codec.Address,
	magicProgram codec.Address,
) error {
	if err := checkCommit(accounts, magicProgram); err != nil {
		return err
	}
	return inv.Invoke(ctx, magic.ScheduleCommitAndUndelegate(payer, magicContext, accounts...))
}
