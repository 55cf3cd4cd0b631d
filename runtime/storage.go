// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/units"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/consts"
	"github.com/ava-labs/hypercounter/keys"
	"github.com/ava-labs/hypercounter/state"
)

// State
// 0x0/ (accounts)
//   -> [address] => account

const accountPrefix byte = 0x0

const (
	// MaxAccountDataSize bounds the data of a single account.
	MaxAccountDataSize = 10 * units.KiB

	maxAccountSize = consts.Uint64Len + codec.AddressLen + consts.ByteLen + consts.IntLen + MaxAccountDataSize
)

// AccountChunks is the number of chunks reserved for every account key.
var AccountChunks, _ = keys.ChunksFor(maxAccountSize)

// [accountPrefix] + [address] + [chunks]
func AccountKey(addr codec.Address) []byte {
	k := make([]byte, 0, consts.ByteLen+codec.AddressLen+consts.Uint16Len)
	k = append(k, accountPrefix)
	k = append(k, addr[:]...)
	return keys.EncodeChunks(k, AccountChunks)
}

// AddressFromKey returns the address an account key was built from.
func AddressFromKey(k []byte) (codec.Address, bool) {
	if len(k) != consts.ByteLen+codec.AddressLen+consts.Uint16Len || k[0] != accountPrefix {
		return codec.EmptyAddress, false
	}
	var addr codec.Address
	copy(addr[:], k[consts.ByteLen:])
	return addr, true
}

// GetAccount returns the account stored at [addr], if any.
func GetAccount(
	ctx context.Context,
	im state.Immutable,
	addr codec.Address,
) (*Account, bool, error) {
	v, err := im.GetValue(ctx, AccountKey(addr))
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	acct, err := UnmarshalAccount(v)
	if err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

func SetAccount(
	ctx context.Context,
	mu state.Mutable,
	addr codec.Address,
	acct *Account,
) error {
	if len(acct.Data) > MaxAccountDataSize {
		return ErrAccountDataTooLarge
	}
	return mu.Insert(ctx, AccountKey(addr), acct.Marshal())
}

func DeleteAccount(
	ctx context.Context,
	mu state.Mutable,
	addr codec.Address,
) error {
	return mu.Remove(ctx, AccountKey(addr))
}
