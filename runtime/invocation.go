// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	smath "github.com/ava-labs/avalanchego/utils/math"
	"github.com/ava-labs/avalanchego/utils/set"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/tstate"
)

const MaxInvokeDepth = 4

// Invocation is the environment of a single instruction. It grants the
// running program access to the declared accounts and enforces the write
// rules of the host:
//   - an account can only be modified by the program that owns it
//   - the account must be declared writable by the instruction
//   - on a rollup host, the account must be in rollup custody
type Invocation struct {
	host *Host
	tx   *txContext

	programID codec.Address
	caller    codec.Address
	accounts  []AccountMeta
	data      []byte
	signers   set.Set[codec.Address]
	depth     int
}

// txContext is shared by every invocation of a transaction.
type txContext struct {
	view *tstate.TStateView
	logs []string
}

func (inv *Invocation) ProgramID() codec.Address {
	return inv.programID
}

// Caller returns the program that invoked this one, or the empty address for
// top-level instructions.
func (inv *Invocation) Caller() codec.Address {
	return inv.caller
}

func (inv *Invocation) Accounts() []AccountMeta {
	return inv.accounts
}

func (inv *Invocation) Data() []byte {
	return inv.data
}

// Custody returns the custody of accounts writable by this host.
func (inv *Invocation) Custody() Custody {
	return inv.host.custody
}

func (inv *Invocation) Now() time.Time {
	return inv.host.clock.Now()
}

func (inv *Invocation) Logger() logging.Logger {
	return inv.host.log
}

// Logf records a program log line in the transaction result.
func (inv *Invocation) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	inv.tx.logs = append(inv.tx.logs, msg)
	inv.host.log.Debug("program log",
		zap.Stringer("program", inv.programID),
		zap.String("msg", msg),
	)
}

// Account returns the [i]th declared account.
func (inv *Invocation) Account(i int) (AccountMeta, error) {
	if i < 0 || i >= len(inv.accounts) {
		return AccountMeta{}, fmt.Errorf("%w: want index %d, have %d", ErrNotEnoughAccountKeys, i, len(inv.accounts))
	}
	return inv.accounts[i], nil
}

// RequireAccounts fails if fewer than [n] accounts were declared.
func (inv *Invocation) RequireAccounts(n int) error {
	if len(inv.accounts) < n {
		return fmt.Errorf("%w: want %d, have %d", ErrNotEnoughAccountKeys, n, len(inv.accounts))
	}
	return nil
}

func (inv *Invocation) IsSigner(addr codec.Address) bool {
	meta, ok := inv.meta(addr)
	return ok && meta.Signer && inv.signers.Contains(addr)
}

func (inv *Invocation) meta(addr codec.Address) (AccountMeta, bool) {
	var (
		found  bool
		merged AccountMeta
	)
	for _, meta := range inv.accounts {
		if meta.Address != addr {
			continue
		}
		found = true
		merged.Address = addr
		merged.Signer = merged.Signer || meta.Signer
		merged.Writable = merged.Writable || meta.Writable
	}
	return merged, found
}

// GetAccount loads a declared account. The returned account is a copy;
// changes only take effect through [SetAccount].
func (inv *Invocation) GetAccount(ctx context.Context, addr codec.Address) (*Account, bool, error) {
	if _, ok := inv.meta(addr); !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrAccountNotProvided, addr)
	}
	return GetAccount(ctx, inv.tx.view, addr)
}

// MustGetAccount is [GetAccount] for accounts that must exist.
func (inv *Invocation) MustGetAccount(ctx context.Context, addr codec.Address) (*Account, error) {
	acct, exists, err := inv.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acct, nil
}

// checkWrite returns the current state of [addr] if the program may modify
// it.
func (inv *Invocation) checkWrite(ctx context.Context, addr codec.Address) (*Account, bool, error) {
	meta, ok := inv.meta(addr)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrAccountNotProvided, addr)
	}
	if !meta.Writable {
		return nil, false, fmt.Errorf("%w: %s", ErrAccountNotWritable, addr)
	}
	prev, exists, err := GetAccount(ctx, inv.tx.view, addr)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	if inv.host.custody == CustodyRollup && prev.Custody != CustodyRollup {
		return nil, false, fmt.Errorf("%w: %s has custody %s", ErrAccountNotDelegated, addr, prev.Custody)
	}
	return prev, true, nil
}

// SetAccount overwrites [addr] with [acct]. Only the owner of an existing
// account may modify it, and only the system program may allocate new
// accounts. Lamports are conserved by the callers that move them.
func (inv *Invocation) SetAccount(ctx context.Context, addr codec.Address, acct *Account) error {
	prev, exists, err := inv.checkWrite(ctx, addr)
	if err != nil {
		return err
	}
	switch {
	case exists && prev.Owner != inv.programID && !inv.host.privileged.Contains(inv.programID):
		return fmt.Errorf("%w: %s is owned by %s, not %s", ErrIllegalOwner, addr, prev.Owner, inv.programID)
	case !exists && inv.programID != SystemProgramID:
		return fmt.Errorf("%w: %s does not exist", ErrAccountNotFound, addr)
	}
	if inv.host.custody == CustodyRollup && acct.Custody != CustodyRollup {
		return fmt.Errorf("%w: cannot move %s to %s", ErrAccountNotDelegated, addr, acct.Custody)
	}
	return SetAccount(ctx, inv.tx.view, addr, acct)
}

// Credit adds [lamports] to a writable account regardless of its owner.
func (inv *Invocation) Credit(ctx context.Context, addr codec.Address, lamports uint64) error {
	acct, exists, err := inv.checkWrite(ctx, addr)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	acct.Lamports, err = smath.Add(acct.Lamports, lamports)
	if err != nil {
		return err
	}
	return SetAccount(ctx, inv.tx.view, addr, acct)
}

// CloseAccount deletes an account owned by the program and moves its
// lamports to [recipient].
func (inv *Invocation) CloseAccount(ctx context.Context, addr codec.Address, recipient codec.Address) error {
	if addr == recipient {
		return ErrCloseRecipientIsAccount
	}
	acct, exists, err := inv.checkWrite(ctx, addr)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if acct.Owner != inv.programID {
		return fmt.Errorf("%w: %s is owned by %s, not %s", ErrIllegalOwner, addr, acct.Owner, inv.programID)
	}
	if err := inv.Credit(ctx, recipient, acct.Lamports); err != nil {
		return err
	}
	return DeleteAccount(ctx, inv.tx.view, addr)
}

// Invoke runs [ix] as a cross-program invocation. Every account of [ix] must
// have been declared to the caller with at least the same privileges. Each
// entry of [signerSeeds] adds the address derived from the calling program
// and those seeds to the signers of [ix].
func (inv *Invocation) Invoke(ctx context.Context, ix Instruction, signerSeeds ...[][]byte) error {
	if inv.depth+1 > MaxInvokeDepth {
		return ErrCallDepthExceeded
	}
	signers := set.NewSet[codec.Address](len(signerSeeds))
	for _, meta := range ix.Accounts {
		if inv.IsSigner(meta.Address) {
			signers.Add(meta.Address)
		}
	}
	for _, seeds := range signerSeeds {
		pda, err := codec.DeriveAddress(inv.programID, seeds...)
		if err != nil {
			return err
		}
		signers.Add(pda)
	}
	for _, meta := range ix.Accounts {
		parent, ok := inv.meta(meta.Address)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotProvided, meta.Address)
		}
		if meta.Writable && !parent.Writable {
			return fmt.Errorf("%w: %s is not writable", ErrPrivilegeEscalation, meta.Address)
		}
	}
	child := &Invocation{
		host:      inv.host,
		tx:        inv.tx,
		programID: ix.ProgramID,
		caller:    inv.programID,
		accounts:  ix.Accounts,
		data:      ix.Data,
		signers:   signers,
		depth:     inv.depth + 1,
	}
	return inv.host.invoke(ctx, child)
}
