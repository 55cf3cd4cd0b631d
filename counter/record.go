// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"context"
	"fmt"

	smath "github.com/ava-labs/avalanchego/utils/math"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

var discriminator = codec.AccountDiscriminator("Counter")

// Counter is the persisted layout of the counter account.
type Counter struct {
	Count uint64 `json:"count"`
}

func (c *Counter) Marshal() ([]byte, error) {
	return codec.MarshalBorsh(discriminator, c)
}

func UnmarshalCounter(data []byte) (*Counter, error) {
	if len(data) != Space {
		return nil, fmt.Errorf("%w: counter has %d bytes, expected %d", runtime.ErrInvalidAccountData, len(data), Space)
	}
	var c Counter
	if err := codec.UnmarshalBorsh(discriminator, data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", runtime.ErrInvalidAccountData, err)
	}
	return &c, nil
}

// Record is the counter account loaded by a handler. Changes are only
// visible to other programs, including commits scheduled in the same
// instruction, after [Record.Flush].
type Record struct {
	Counter

	inv   *runtime.Invocation
	addr  codec.Address
	acct  *runtime.Account
	dirty bool
}

// LoadRecord checks that [addr] is the counter address and loads it.
func LoadRecord(ctx context.Context, inv *runtime.Invocation, addr codec.Address) (*Record, error) {
	if err := codec.VerifyDerivedAddress(addr, inv.ProgramID(), Seed); err != nil {
		return nil, err
	}
	acct, exists, err := inv.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, addr)
	}
	if acct.Owner != inv.ProgramID() {
		return nil, fmt.Errorf("%w: %s is owned by %s", runtime.ErrIllegalOwner, addr, acct.Owner)
	}
	c, err := UnmarshalCounter(acct.Data)
	if err != nil {
		return nil, err
	}
	return &Record{Counter: *c, inv: inv, addr: addr, acct: acct}, nil
}

func (r *Record) Address() codec.Address {
	return r.addr
}

func (r *Record) Custody() runtime.Custody {
	return r.acct.Custody
}

// Increment adds one to the count. The count never wraps.
func (r *Record) Increment() error {
	count, err := smath.Add(r.Count, 1)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	r.Count = count
	r.dirty = true
	return nil
}

// Flush writes pending changes to the account.
func (r *Record) Flush(ctx context.Context) error {
	if !r.dirty {
		return nil
	}
	b, err := r.Counter.Marshal()
	if err != nil {
		return err
	}
	r.acct.Data = b
	if err := r.inv.SetAccount(ctx, r.addr, r.acct); err != nil {
		return err
	}
	r.dirty = false
	return nil
}

// AccountReader is satisfied by [runtime.Host].
type AccountReader interface {
	GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error)
}

// GetCounter reads the counter stored at [Address].
func GetCounter(ctx context.Context, r AccountReader) (*Counter, *runtime.Account, bool, error) {
	acct, exists, err := r.GetAccount(ctx, Address)
	if err != nil || !exists {
		return nil, nil, false, err
	}
	c, err := UnmarshalCounter(acct.Data)
	if err != nil {
		return nil, nil, false, err
	}
	return c, acct, true, nil
}
