// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

const (
	// AccountStorageOverhead is charged on top of the data of every account.
	AccountStorageOverhead = 128
	LamportsPerByteYear    = 3_480
	ExemptionThreshold     = 2
)

// MinimumBalance returns the lamports an account holding [space] bytes must
// keep to be exempt from rent.
func MinimumBalance(space int) uint64 {
	return uint64(AccountStorageOverhead+space) * LamportsPerByteYear * ExemptionThreshold
}
