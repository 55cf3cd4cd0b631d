// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
)

const (
	AddressLen = 33

	// KeyAddressTypeID prefixes addresses controlled by a key holder.
	KeyAddressTypeID uint8 = 0
	// ProgramAddressTypeID prefixes addresses that identify a program.
	ProgramAddressTypeID uint8 = 1
	// DerivedAddressTypeID prefixes addresses computed by [DeriveAddress].
	// No key can sign for these addresses; only the program they were
	// derived from can.
	DerivedAddressTypeID uint8 = 2
)

// Address represents the 33 byte address of an account
type Address [AddressLen]byte

var EmptyAddress = Address{}

// CreateAddress returns [Address] made from concatenating
// [typeID] with [id].
func CreateAddress(typeID uint8, id ids.ID) Address {
	a := make([]byte, AddressLen)
	a[0] = typeID
	copy(a[1:], id[:])
	return Address(a)
}

// TypeID returns the address type prefix.
func (a Address) TypeID() uint8 {
	return a[0]
}

// IsDerived reports whether [a] was produced by [DeriveAddress].
func (a Address) IsDerived() bool {
	return a[0] == DerivedAddressTypeID
}

// StringToAddress parses a checksummed hex address.
func StringToAddress(s string) (Address, error) {
	b, err := formatting.Decode(formatting.HexC, s)
	if err != nil {
		return EmptyAddress, err
	}
	return ToAddress(b)
}

// ToAddress copies [b] into an [Address], failing if the length is wrong.
func ToAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, ErrInvalidSize
	}
	copy(a[:], b)
	return a, nil
}

// String implements fmt.Stringer.
func (a Address) String() string {
	// Hex encoding with checksum cannot fail for fixed-size input.
	s, _ := formatting.Encode(formatting.HexC, a[:])
	return s
}

// MarshalText returns the checksummed hex representation of a.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a checksummed hex address.
func (a *Address) UnmarshalText(input []byte) error {
	parsed, err := StringToAddress(string(input))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalYAML encodes a as checksummed hex.
func (a Address) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalYAML parses a checksummed hex address.
func (a *Address) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}
