// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"fmt"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/consts"
)

var SystemProgramID = codec.NewProgramAddress("system")

const (
	createAccountID uint8 = iota
	transferID
	assignID
)

// SystemProgram creates accounts, moves lamports between system accounts
// and assigns accounts to other programs.
type SystemProgram struct{}

func (*SystemProgram) ID() codec.Address {
	return SystemProgramID
}

func (*SystemProgram) Name() string {
	return "system"
}

// CreateAccount funds a new account of [space] zeroed bytes owned by
// [owner].
//
// Accounts:
//  0. [signer, writable] funding account
//  1. [signer, writable] new account
func CreateAccount(from, to codec.Address, lamports uint64, space uint32, owner codec.Address) Instruction {
	p := codec.NewWriter(0, consts.MaxInt)
	p.PackByte(createAccountID)
	p.PackUint64(lamports)
	p.PackUint32(space)
	p.PackAddress(owner)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts:  []AccountMeta{Writable(from, true), Writable(to, true)},
		Data:      p.Bytes(),
	}
}

// Transfer moves [lamports] from a system account to any account.
//
// Accounts:
//  0. [signer, writable] source
//  1. [writable] destination
func Transfer(from, to codec.Address, lamports uint64) Instruction {
	p := codec.NewWriter(0, consts.MaxInt)
	p.PackByte(transferID)
	p.PackUint64(lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts:  []AccountMeta{Writable(from, true), Writable(to, false)},
		Data:      p.Bytes(),
	}
}

// Assign transfers ownership of a system account to [owner].
//
// Accounts:
//  0. [signer, writable] assigned account
func Assign(addr codec.Address, owner codec.Address) Instruction {
	p := codec.NewWriter(0, consts.MaxInt)
	p.PackByte(assignID)
	p.PackAddress(owner)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts:  []AccountMeta{Writable(addr, true)},
		Data:      p.Bytes(),
	}
}

func (s *SystemProgram) Execute(ctx context.Context, inv *Invocation) error {
	p := codec.NewReader(inv.Data(), len(inv.Data()))
	switch kind := p.UnpackByte(); kind {
	case createAccountID:
		lamports := p.UnpackUint64(false)
		space := p.UnpackUint32()
		var owner codec.Address
		p.UnpackAddress(true, &owner)
		if err := p.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInstructionData, err)
		}
		return s.createAccount(ctx, inv, lamports, int(space), owner)
	case transferID:
		lamports := p.UnpackUint64(true)
		if err := p.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInstructionData, err)
		}
		return s.transfer(ctx, inv, lamports)
	case assignID:
		var owner codec.Address
		p.UnpackAddress(true, &owner)
		if err := p.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInstructionData, err)
		}
		return s.assign(ctx, inv, owner)
	default:
		return fmt.Errorf("%w: system %d", ErrUnknownInstruction, kind)
	}
}

func (*SystemProgram) signedAccount(inv *Invocation, i int) (codec.Address, error) {
	meta, err := inv.Account(i)
	if err != nil {
		return codec.EmptyAddress, err
	}
	if !inv.IsSigner(meta.Address) {
		return codec.EmptyAddress, fmt.Errorf("%w: %s", ErrMissingSignature, meta.Address)
	}
	return meta.Address, nil
}

func (*SystemProgram) debit(ctx context.Context, inv *Invocation, addr codec.Address, lamports uint64) error {
	acct, err := inv.MustGetAccount(ctx, addr)
	if err != nil {
		return err
	}
	nbal, err := smath.Sub(acct.Lamports, lamports)
	if err != nil {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, addr, acct.Lamports, lamports)
	}
	acct.Lamports = nbal
	return inv.SetAccount(ctx, addr, acct)
}

func (s *SystemProgram) createAccount(
	ctx context.Context,
	inv *Invocation,
	lamports uint64,
	space int,
	owner codec.Address,
) error {
	from, err := s.signedAccount(inv, 0)
	if err != nil {
		return err
	}
	to, err := s.signedAccount(inv, 1)
	if err != nil {
		return err
	}
	if space > MaxAccountDataSize {
		return fmt.Errorf("%w: %d", ErrAccountDataTooLarge, space)
	}
	if _, exists, err := inv.GetAccount(ctx, to); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, to)
	}
	if required := MinimumBalance(space); lamports < required {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientRent, lamports, required)
	}
	if err := s.debit(ctx, inv, from, lamports); err != nil {
		return err
	}
	return inv.SetAccount(ctx, to, &Account{
		Lamports: lamports,
		Owner:    owner,
		Custody:  inv.Custody(),
		Data:     make([]byte, space),
	})
}

func (s *SystemProgram) transfer(ctx context.Context, inv *Invocation, lamports uint64) error {
	from, err := s.signedAccount(inv, 0)
	if err != nil {
		return err
	}
	to, err := inv.Account(1)
	if err != nil {
		return err
	}
	if err := s.debit(ctx, inv, from, lamports); err != nil {
		return err
	}
	return inv.Credit(ctx, to.Address, lamports)
}

func (s *SystemProgram) assign(ctx context.Context, inv *Invocation, owner codec.Address) error {
	addr, err := s.signedAccount(inv, 0)
	if err != nil {
		return err
	}
	acct, err := inv.MustGetAccount(ctx, addr)
	if err != nil {
		return err
	}
	acct.Owner = owner
	return inv.SetAccount(ctx, addr, acct)
}
