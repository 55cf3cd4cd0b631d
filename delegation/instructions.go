// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegation

import (
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

var (
	delegateDiscriminator    = codec.InstructionDiscriminator("delegate")
	commitStateDiscriminator = codec.InstructionDiscriminator("commit_state")
	undelegateDiscriminator  = codec.InstructionDiscriminator("undelegate")
)

type DelegateArgs struct {
	// Seeds derive the delegated account from its owner program.
	Seeds             [][]byte
	TimeLimit         uint64
	CommitFrequencyMs uint32
	// Validator is the rollup authority. The empty address selects the
	// default validator of the registry.
	Validator codec.Address
}

type CommitStateArgs struct {
	Nonce uint64
	Data  []byte
	// AllowUndelegation marks the commit as the last one before the
	// account is returned.
	AllowUndelegation bool
}

// DelegateAccounts lists the accounts of a delegation request.
type DelegateAccounts struct {
	Payer             codec.Address
	PDA               codec.Address
	OwnerProgram      codec.Address
	Buffer            codec.Address
	Record            codec.Address
	Metadata          codec.Address
	DelegationProgram codec.Address
	SystemProgram     codec.Address
}

// NewDelegateAccounts derives the registry accounts of [pda].
func NewDelegateAccounts(payer, pda, ownerProgram codec.Address) DelegateAccounts {
	return DelegateAccounts{
		Payer:             payer,
		PDA:               pda,
		OwnerProgram:      ownerProgram,
		Buffer:            BufferAddress(pda),
		Record:            RecordAddress(pda),
		Metadata:          MetadataAddress(pda),
		DelegationProgram: ProgramID,
		SystemProgram:     runtime.SystemProgramID,
	}
}

func (a DelegateAccounts) Metas() []runtime.AccountMeta {
	return []runtime.AccountMeta{
		runtime.Writable(a.Payer, true),
		runtime.Writable(a.PDA, false),
		runtime.ReadOnly(a.OwnerProgram, false),
		runtime.Writable(a.Buffer, false),
		runtime.Writable(a.Record, false),
		runtime.Writable(a.Metadata, false),
		runtime.ReadOnly(a.DelegationProgram, false),
		runtime.ReadOnly(a.SystemProgram, false),
	}
}

// Delegate hands custody of the account to the rollup. It must be invoked
// by the owner program, signing for the account with [DelegateArgs.Seeds],
// after the account was assigned to the registry.
//
// Accounts:
//  0. [signer, writable] payer
//  1. [signer, writable] delegated account
//  2. [] owner program
//  3. [writable] buffer
//  4. [writable] delegation record
//  5. [writable] delegation metadata
//  6. [] delegation program
//  7. [] system program
func Delegate(accounts DelegateAccounts, args *DelegateArgs) (runtime.Instruction, error) {
	data, err := codec.MarshalBorsh(delegateDiscriminator, args)
	if err != nil {
		return runtime.Instruction{}, err
	}
	metas := accounts.Metas()
	metas[1].Signer = true
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts:  metas,
		Data:      data,
	}, nil
}

// CommitState writes a rollup snapshot of [target] to the base ledger.
//
// Accounts:
//  0. [signer] authority
//  1. [writable] delegated account
//  2. [] delegation record
//  3. [writable] delegation metadata
func CommitState(authority, target codec.Address, args *CommitStateArgs) (runtime.Instruction, error) {
	data, err := codec.MarshalBorsh(commitStateDiscriminator, args)
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.ReadOnly(authority, true),
			runtime.Writable(target, false),
			runtime.ReadOnly(RecordAddress(target), false),
			runtime.Writable(MetadataAddress(target), false),
		},
		Data: data,
	}, nil
}

// Undelegate returns [target] to its owner program. The record and metadata
// are closed and their lamports refunded to [rentPayer].
//
// Accounts:
//  0. [signer] caller
//  1. [writable] delegated account
//  2. [] owner program
//  3. [writable] delegation record
//  4. [writable] delegation metadata
//  5. [writable] rent payer
func Undelegate(caller, target, ownerProgram, rentPayer codec.Address) (runtime.Instruction, error) {
	data, err := codec.MarshalBorsh(undelegateDiscriminator, nil)
	if err != nil {
		return runtime.Instruction{}, err
	}
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.ReadOnly(caller, true),
			runtime.Writable(target, false),
			runtime.ReadOnly(ownerProgram, false),
			runtime.Writable(RecordAddress(target), false),
			runtime.Writable(MetadataAddress(target), false),
			runtime.Writable(rentPayer, false),
		},
		Data: data,
	}, nil
}
