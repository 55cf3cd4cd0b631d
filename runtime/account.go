// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"fmt"
	"slices"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/consts"
)

// Custody identifies the execution context allowed to write an account.
// Every account is in exactly one custody at any time.
type Custody uint8

const (
	CustodyBaseLedger Custody = iota
	CustodyRollup
)

func (c Custody) String() string {
	switch c {
	case CustodyBaseLedger:
		return "base-ledger"
	case CustodyRollup:
		return "rollup"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Custody) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Custody) UnmarshalText(b []byte) error {
	switch string(b) {
	case "base-ledger":
		*c = CustodyBaseLedger
	case "rollup":
		*c = CustodyRollup
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCustody, b)
	}
	return nil
}

// Account is the unit of storage on both the base ledger and the rollup.
type Account struct {
	Lamports uint64        `json:"lamports"`
	Owner    codec.Address `json:"owner"`
	Custody  Custody       `json:"custody"`
	Data     codec.Bytes   `json:"data"`
}

// Clone returns a deep copy of [a].
func (a *Account) Clone() *Account {
	return &Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
		Custody:  a.Custody,
		Data:     slices.Clone(a.Data),
	}
}

func (a *Account) Size() int {
	return consts.Uint64Len + codec.AddressLen + consts.ByteLen + codec.BytesLen(a.Data)
}

func (a *Account) Marshal() []byte {
	p := codec.NewWriter(a.Size(), a.Size())
	p.PackUint64(a.Lamports)
	p.PackAddress(a.Owner)
	p.PackByte(byte(a.Custody))
	p.PackBytes(a.Data)
	return p.Bytes()
}

func UnmarshalAccount(b []byte) (*Account, error) {
	p := codec.NewReader(b, len(b))
	var a Account
	a.Lamports = p.UnpackUint64(false)
	p.UnpackAddress(true, &a.Owner)
	a.Custody = Custody(p.UnpackByte())
	var data []byte
	p.UnpackBytes(MaxAccountDataSize, false, &data)
	a.Data = data
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccountData, err)
	}
	if !p.Empty() {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidAccountData, len(b)-p.Offset())
	}
	if a.Custody > CustodyRollup {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCustody, a.Custody)
	}
	return &a, nil
}
