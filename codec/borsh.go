// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/near/borsh-go"
)

const DiscriminatorLen = 8

// Discriminator tags serialized account and instruction payloads so that
// bytes written for one type are never decoded as another.
type Discriminator [DiscriminatorLen]byte

func newDiscriminator(namespace, name string) Discriminator {
	var d Discriminator
	h := hashing.ComputeHash256([]byte(namespace + ":" + name))
	copy(d[:], h[:DiscriminatorLen])
	return d
}

// AccountDiscriminator returns the header reserved at the start of every
// account of type [name].
func AccountDiscriminator(name string) Discriminator {
	return newDiscriminator("account", name)
}

// InstructionDiscriminator returns the selector of the instruction [name].
func InstructionDiscriminator(name string) Discriminator {
	return newDiscriminator("global", name)
}

// MarshalBorsh writes [d] followed by the borsh encoding of [v]. A nil [v]
// produces only the discriminator. A pointer [v] is encoded as the value it
// points to, mirroring [UnmarshalBorsh].
func MarshalBorsh(d Discriminator, v any) ([]byte, error) {
	out := make([]byte, DiscriminatorLen)
	copy(out, d[:])
	if v == nil {
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return out, nil
		}
		v = rv.Elem().Interface()
	}
	body, err := borsh.Serialize(v)
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

// UnmarshalBorsh checks that [data] starts with [d] and decodes the remainder
// into [v], which must be a pointer. A nil [v] only checks the prefix.
func UnmarshalBorsh(d Discriminator, data []byte, v any) error {
	prefix, body, err := SplitDiscriminator(data)
	if err != nil {
		return err
	}
	if prefix != d {
		return fmt.Errorf("%w: expected %x, got %x", ErrInvalidDiscriminator, d[:], prefix[:])
	}
	if v == nil {
		return nil
	}
	return borsh.Deserialize(v, body)
}

// SplitDiscriminator separates the discriminator from the payload of [data].
func SplitDiscriminator(data []byte) (Discriminator, []byte, error) {
	var d Discriminator
	if len(data) < DiscriminatorLen {
		return d, nil, fmt.Errorf("%w: %d < %d", ErrInsufficientLength, len(data), DiscriminatorLen)
	}
	copy(d[:], data[:DiscriminatorLen])
	return d, data[DiscriminatorLen:], nil
}

// HasDiscriminator reports whether [data] is tagged with [d].
func HasDiscriminator(d Discriminator, data []byte) bool {
	return len(data) >= DiscriminatorLen && bytes.Equal(data[:DiscriminatorLen], d[:])
}
