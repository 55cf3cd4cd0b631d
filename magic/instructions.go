// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package magic

import (
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

var (
	initContextDiscriminator                 = codec.InstructionDiscriminator("init_context")
	scheduleCommitDiscriminator              = codec.InstructionDiscriminator("schedule_commit")
	scheduleCommitAndUndelegateDiscriminator = codec.InstructionDiscriminator("schedule_commit_and_undelegate")
)

func instruction(d codec.Discriminator, metas []runtime.AccountMeta) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts:  metas,
		Data:      d[:],
	}
}

// InitContext allocates the magic context.
//
// Accounts:
//  0. [signer, writable] payer
//  1. [writable] magic context
func InitContext(payer codec.Address) runtime.Instruction {
	return instruction(initContextDiscriminator, []runtime.AccountMeta{
		runtime.Writable(payer, true),
		runtime.Writable(ContextAddress, false),
	})
}

func scheduleMetas(payer, magicContext codec.Address, accounts []codec.Address) []runtime.AccountMeta {
	metas := make([]runtime.AccountMeta, 0, 2+len(accounts))
	metas = append(metas, runtime.Writable(payer, true), runtime.Writable(magicContext, false))
	for _, addr := range accounts {
		metas = append(metas, runtime.Writable(addr, false))
	}
	return metas
}

// ScheduleCommit records a snapshot of every account to be written to the
// base ledger after the transaction.
//
// Accounts:
//  0. [signer, writable] payer
//  1. [writable] magic context
//  2. [writable] committed accounts...
func ScheduleCommit(payer, magicContext codec.Address, accounts ...codec.Address) runtime.Instruction {
	return instruction(scheduleCommitDiscriminator, scheduleMetas(payer, magicContext, accounts))
}

// ScheduleCommitAndUndelegate is [ScheduleCommit] followed by returning the
// accounts to the base ledger. The accounts are locked in the rollup for
// the rest of the transaction.
func ScheduleCommitAndUndelegate(payer, magicContext codec.Address, accounts ...codec.Address) runtime.Instruction {
	return instruction(scheduleCommitAndUndelegateDiscriminator, scheduleMetas(payer, magicContext, accounts))
}
