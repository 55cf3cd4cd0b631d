// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegation

import (
	"context"
	"fmt"
	"slices"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

var _ runtime.Program = (*Program)(nil)

// Program is the delegation registry. It runs on the base ledger and is the
// owner of every delegated account until it is undelegated.
type Program struct {
	log       logging.Logger
	validator codec.Address
}

// New returns a registry that assigns delegations without an explicit
// validator to [validator].
func New(log logging.Logger, validator codec.Address) *Program {
	return &Program{log: log, validator: validator}
}

func (*Program) ID() codec.Address {
	return ProgramID
}

func (*Program) Name() string {
	return "delegation"
}

func (p *Program) Execute(ctx context.Context, inv *runtime.Invocation) error {
	d, body, err := codec.SplitDiscriminator(inv.Data())
	if err != nil {
		return fmt.Errorf("%w: %w", runtime.ErrInvalidInstructionData, err)
	}
	switch d {
	case delegateDiscriminator:
		var args DelegateArgs
		if err := codec.UnmarshalBorsh(d, inv.Data(), &args); err != nil {
			return fmt.Errorf("%w: %w", runtime.ErrInvalidInstructionData, err)
		}
		return p.delegate(ctx, inv, &args)
	case commitStateDiscriminator:
		var args CommitStateArgs
		if err := codec.UnmarshalBorsh(d, inv.Data(), &args); err != nil {
			return fmt.Errorf("%w: %w", runtime.ErrInvalidInstructionData, err)
		}
		return p.commitState(ctx, inv, &args)
	case undelegateDiscriminator:
		if len(body) != 0 {
			return fmt.Errorf("%w: unexpected undelegate arguments", runtime.ErrInvalidInstructionData)
		}
		return p.undelegate(ctx, inv)
	default:
		return fmt.Errorf("%w: delegation %x", runtime.ErrUnknownInstruction, d[:])
	}
}

func delegateAccounts(inv *runtime.Invocation) (DelegateAccounts, error) {
	if err := inv.RequireAccounts(8); err != nil {
		return DelegateAccounts{}, err
	}
	metas := inv.Accounts()
	return DelegateAccounts{
		Payer:             metas[0].Address,
		PDA:               metas[1].Address,
		OwnerProgram:      metas[2].Address,
		Buffer:            metas[3].Address,
		Record:            metas[4].Address,
		Metadata:          metas[5].Address,
		DelegationProgram: metas[6].Address,
		SystemProgram:     metas[7].Address,
	}, nil
}

// VerifyAccounts re-derives the registry accounts of [a.PDA] and compares
// them to the supplied ones.
func VerifyAccounts(a DelegateAccounts) error {
	expected := NewDelegateAccounts(a.Payer, a.PDA, a.OwnerProgram)
	for _, check := range []struct {
		name             string
		supplied, wanted codec.Address
	}{
		{"buffer", a.Buffer, expected.Buffer},
		{"delegation record", a.Record, expected.Record},
		{"delegation metadata", a.Metadata, expected.Metadata},
		{"delegation program", a.DelegationProgram, expected.DelegationProgram},
		{"system program", a.SystemProgram, expected.SystemProgram},
	} {
		if check.supplied != check.wanted {
			return fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidDelegationAccounts, check.name, check.supplied, check.wanted)
		}
	}
	return nil
}

// createAccount allocates the registry account derived from [seed] and
// [target] with [data] as its contents.
func (*Program) createAccount(
	ctx context.Context,
	inv *runtime.Invocation,
	payer codec.Address,
	addr codec.Address,
	seed []byte,
	target codec.Address,
	data []byte,
) error {
	ix := runtime.CreateAccount(payer, addr, runtime.MinimumBalance(len(data)), uint32(len(data)), ProgramID)
	if err := inv.Invoke(ctx, ix, [][]byte{seed, target[:]}); err != nil {
		return err
	}
	acct, err := inv.MustGetAccount(ctx, addr)
	if err != nil {
		return err
	}
	acct.Data = data
	return inv.SetAccount(ctx, addr, acct)
}

func (p *Program) delegate(ctx context.Context, inv *runtime.Invocation, args *DelegateArgs) error {
	accounts, err := delegateAccounts(inv)
	if err != nil {
		return err
	}
	if err := VerifyAccounts(accounts); err != nil {
		return err
	}
	if err := codec.VerifyDerivedAddress(accounts.PDA, accounts.OwnerProgram, args.Seeds...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDelegationAccounts, err)
	}
	for _, addr := range []codec.Address{accounts.Payer, accounts.PDA} {
		if !inv.IsSigner(addr) {
			return fmt.Errorf("%w: %s", runtime.ErrMissingSignature, addr)
		}
	}
	if _, exists, err := inv.GetAccount(ctx, accounts.Record); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s", ErrDelegationConflict, accounts.PDA)
	}
	target, err := inv.MustGetAccount(ctx, accounts.PDA)
	if err != nil {
		return err
	}
	switch {
	case target.Custody != runtime.CustodyBaseLedger:
		return fmt.Errorf("%w: %s has custody %s", ErrDelegationConflict, accounts.PDA, target.Custody)
	case target.Owner != ProgramID:
		return fmt.Errorf("%w: %s is owned by %s", ErrNotAssigned, accounts.PDA, target.Owner)
	}

	// The buffer holds the account contents for the duration of the
	// handshake so that the account is never observed half delegated.
	if err := p.createAccount(ctx, inv, accounts.Payer, accounts.Buffer, BufferSeed, accounts.PDA, slices.Clone(target.Data)); err != nil {
		return err
	}
	authority := args.Validator
	if authority == codec.EmptyAddress {
		authority = p.validator
	}
	now := inv.Now().UnixMilli()
	record := &Record{
		Authority:         authority,
		Owner:             accounts.OwnerProgram,
		DelegatedAt:       now,
		TimeLimit:         args.TimeLimit,
		CommitFrequencyMs: args.CommitFrequencyMs,
		Lamports:          target.Lamports,
	}
	recordBytes, err := record.Marshal()
	if err != nil {
		return err
	}
	if err := p.createAccount(ctx, inv, accounts.Payer, accounts.Record, RecordSeed, accounts.PDA, recordBytes); err != nil {
		return err
	}
	metadata := &Metadata{
		LastUpdate: now,
		Seeds:      args.Seeds,
		RentPayer:  accounts.Payer,
	}
	metadataBytes, err := metadata.Marshal()
	if err != nil {
		return err
	}
	if err := p.createAccount(ctx, inv, accounts.Payer, accounts.Metadata, MetadataSeed, accounts.PDA, metadataBytes); err != nil {
		return err
	}

	buffer, err := inv.MustGetAccount(ctx, accounts.Buffer)
	if err != nil {
		return err
	}
	target.Data = buffer.Data
	target.Custody = runtime.CustodyRollup
	if err := inv.SetAccount(ctx, accounts.PDA, target); err != nil {
		return err
	}
	if err := inv.CloseAccount(ctx, accounts.Buffer, accounts.Payer); err != nil {
		return err
	}
	inv.Logf("delegated %s to %s", accounts.PDA, authority)
	p.log.Debug("delegated account",
		zap.Stringer("account", accounts.PDA),
		zap.Stringer("owner", accounts.OwnerProgram),
		zap.Stringer("authority", authority),
		zap.Uint64("timeLimit", args.TimeLimit),
		zap.Uint32("commitFrequencyMs", args.CommitFrequencyMs),
	)
	return nil
}

func (*Program) verifyRegistryAccounts(target, record, metadata codec.Address) error {
	if record != RecordAddress(target) {
		return fmt.Errorf("%w: delegation record %s", ErrInvalidDelegationAccounts, record)
	}
	if metadata != MetadataAddress(target) {
		return fmt.Errorf("%w: delegation metadata %s", ErrInvalidDelegationAccounts, metadata)
	}
	return nil
}

func (p *Program) loadDelegation(
	ctx context.Context,
	inv *runtime.Invocation,
	target codec.Address,
) (*Record, *Metadata, error) {
	record, exists, err := GetRecord(ctx, inv, target)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrDelegationNotFound, target)
	}
	metadata, exists, err := GetMetadata(ctx, inv, target)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, fmt.Errorf("%w: metadata of %s", ErrDelegationNotFound, target)
	}
	return record, metadata, nil
}

func (p *Program) commitState(ctx context.Context, inv *runtime.Invocation, args *CommitStateArgs) error {
	if err := inv.RequireAccounts(4); err != nil {
		return err
	}
	metas := inv.Accounts()
	authority, target := metas[0].Address, metas[1].Address
	if err := p.verifyRegistryAccounts(target, metas[2].Address, metas[3].Address); err != nil {
		return err
	}
	if !inv.IsSigner(authority) {
		return fmt.Errorf("%w: %s", runtime.ErrMissingSignature, authority)
	}
	record, metadata, err := p.loadDelegation(ctx, inv, target)
	if err != nil {
		return err
	}
	if authority != record.Authority {
		return fmt.Errorf("%w: %s", ErrUnauthorized, authority)
	}
	if args.Nonce <= metadata.LastNonce {
		return fmt.Errorf("%w: %d <= %d", ErrStaleNonce, args.Nonce, metadata.LastNonce)
	}
	acct, err := inv.MustGetAccount(ctx, target)
	if err != nil {
		return err
	}
	acct.Data = args.Data
	if err := inv.SetAccount(ctx, target, acct); err != nil {
		return err
	}

	metadata.LastNonce = args.Nonce
	metadata.LastUpdate = inv.Now().UnixMilli()
	metadata.Undelegatable = args.AllowUndelegation
	metadata.CommittedBytes += uint64(len(args.Data))
	b, err := metadata.Marshal()
	if err != nil {
		return err
	}
	metadataAcct, err := inv.MustGetAccount(ctx, MetadataAddress(target))
	if err != nil {
		return err
	}
	metadataAcct.Data = b
	if err := inv.SetAccount(ctx, MetadataAddress(target), metadataAcct); err != nil {
		return err
	}
	inv.Logf("committed %s at nonce %d", target, args.Nonce)
	return nil
}

func (p *Program) undelegate(ctx context.Context, inv *runtime.Invocation) error {
	if err := inv.RequireAccounts(6); err != nil {
		return err
	}
	metas := inv.Accounts()
	var (
		caller       = metas[0].Address
		target       = metas[1].Address
		ownerProgram = metas[2].Address
		rentPayer    = metas[5].Address
	)
	if err := p.verifyRegistryAccounts(target, metas[3].Address, metas[4].Address); err != nil {
		return err
	}
	if !inv.IsSigner(caller) {
		return fmt.Errorf("%w: %s", runtime.ErrMissingSignature, caller)
	}
	record, metadata, err := p.loadDelegation(ctx, inv, target)
	if err != nil {
		return err
	}
	if record.Owner != ownerProgram {
		return fmt.Errorf("%w: owner program %s, expected %s", ErrInvalidDelegationAccounts, ownerProgram, record.Owner)
	}
	if metadata.RentPayer != rentPayer {
		return fmt.Errorf("%w: rent payer %s, expected %s", ErrInvalidDelegationAccounts, rentPayer, metadata.RentPayer)
	}
	switch {
	case record.Expired(inv.Now().UnixMilli()):
	case caller != record.Authority:
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	case !metadata.Undelegatable:
		return fmt.Errorf("%w: %s", ErrNotUndelegatable, target)
	}

	acct, err := inv.MustGetAccount(ctx, target)
	if err != nil {
		return err
	}
	acct.Owner = record.Owner
	acct.Custody = runtime.CustodyBaseLedger
	if err := inv.SetAccount(ctx, target, acct); err != nil {
		return err
	}
	if err := inv.CloseAccount(ctx, RecordAddress(target), rentPayer); err != nil {
		return err
	}
	if err := inv.CloseAccount(ctx, MetadataAddress(target), rentPayer); err != nil {
		return err
	}
	inv.Logf("undelegated %s", target)
	p.log.Debug("undelegated account",
		zap.Stringer("account", target),
		zap.Stringer("owner", record.Owner),
		zap.Stringer("caller", caller),
	)
	return nil
}
