// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/runtime"
)

var (
	initializeDiscriminator             = codec.InstructionDiscriminator("initialize")
	incrementDiscriminator              = codec.InstructionDiscriminator("increment")
	delegateDiscriminator               = codec.InstructionDiscriminator("delegate")
	incrementAndCommitDiscriminator     = codec.InstructionDiscriminator("increment_and_commit")
	undelegateDiscriminator             = codec.InstructionDiscriminator("undelegate")
	incrementAndUndelegateDiscriminator = codec.InstructionDiscriminator("increment_and_undelegate")
)

func instruction(d codec.Discriminator, metas ...runtime.AccountMeta) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts:  metas,
		Data:      d[:],
	}
}

// Initialize creates the counter funded by [user].
func Initialize(user codec.Address) runtime.Instruction {
	return instruction(initializeDiscriminator,
		runtime.Writable(Address, false),
		runtime.Writable(user, true),
		runtime.ReadOnly(runtime.SystemProgramID, false),
	)
}

func Increment() runtime.Instruction {
	return instruction(incrementDiscriminator, runtime.Writable(Address, false))
}

// Delegate moves the counter to the rollup. [payer] funds the delegation
// record and metadata until undelegation.
func Delegate(payer codec.Address) runtime.Instruction {
	return instruction(delegateDiscriminator, delegation.NewDelegateAccounts(payer, Address, ProgramID).Metas()...)
}

func commitMetas(payer codec.Address) []runtime.AccountMeta {
	return []runtime.AccountMeta{
		runtime.Writable(payer, true),
		runtime.Writable(Address, false),
		runtime.Writable(magic.ContextAddress, false),
		runtime.ReadOnly(magic.ProgramID, false),
	}
}

func IncrementAndCommit(payer codec.Address) runtime.Instruction {
	return instruction(incrementAndCommitDiscriminator, commitMetas(payer)...)
}

func Undelegate(payer codec.Address) runtime.Instruction {
	return instruction(undelegateDiscriminator, commitMetas(payer)...)
}

func IncrementAndUndelegate(payer codec.Address) runtime.Instruction {
	return instruction(incrementAndUndelegateDiscriminator, commitMetas(payer)...)
}
