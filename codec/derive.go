// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/hashing"
)

const (
	MaxSeeds = 16
	// MaxSeedLength allows an address to be used as a seed.
	MaxSeedLength = AddressLen
)

var derivedAddressMarker = []byte("ProgramDerivedAddress")

// NewProgramAddress returns the identity of the program called [name].
func NewProgramAddress(name string) Address {
	return CreateAddress(ProgramAddressTypeID, hashing.ComputeHash256Array([]byte(name)))
}

// DeriveAddress returns the address owned by [programID] for [seeds].
//
// The result only depends on its inputs and every component that needs a
// derived address (instruction builders and the handlers validating them)
// goes through this function.
func DeriveAddress(programID Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return EmptyAddress, fmt.Errorf("%w: %d > %d", ErrMaxSeedsExceeded, len(seeds), MaxSeeds)
	}
	size := AddressLen + len(derivedAddressMarker)
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return EmptyAddress, fmt.Errorf("%w: seed %d has length %d", ErrMaxSeedLengthExceeded, i, len(seed))
		}
		size += len(seed)
	}
	preimage := make([]byte, 0, size)
	for _, seed := range seeds {
		preimage = append(preimage, seed...)
	}
	preimage = append(preimage, programID[:]...)
	preimage = append(preimage, derivedAddressMarker...)
	return CreateAddress(DerivedAddressTypeID, hashing.ComputeHash256Array(preimage)), nil
}

// MustDeriveAddress is [DeriveAddress] for seeds known to be valid.
func MustDeriveAddress(programID Address, seeds ...[]byte) Address {
	addr, err := DeriveAddress(programID, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}

// VerifyDerivedAddress re-derives the address for [seeds] and compares it to
// [supplied]. A mismatch is reported as [ErrAddressMismatch].
func VerifyDerivedAddress(supplied Address, programID Address, seeds ...[]byte) error {
	expected, err := DeriveAddress(programID, seeds...)
	if err != nil {
		return err
	}
	if expected != supplied {
		return fmt.Errorf("%w: expected %s, got %s", ErrAddressMismatch, expected, supplied)
	}
	return nil
}
