// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consts

const (
	ByteLen   = 1
	IntLen    = 4
	Uint16Len = 2
	Uint64Len = 8

	MaxUint16 = ^uint16(0)
	MaxInt    = int(^uint(0) >> 1)
)
