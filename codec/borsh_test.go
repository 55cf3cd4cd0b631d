// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Count uint64
}

func TestMarshalBorshLayout(t *testing.T) {
	require := require.New(t)
	d := AccountDiscriminator("Counter")

	b, err := MarshalBorsh(d, testPayload{Count: 7})
	require.NoError(err)
	require.Len(b, DiscriminatorLen+8)
	require.True(HasDiscriminator(d, b))
	require.Equal(uint64(7), binary.LittleEndian.Uint64(b[DiscriminatorLen:]))

	var out testPayload
	require.NoError(UnmarshalBorsh(d, b, &out))
	require.Equal(uint64(7), out.Count)
}

func TestUnmarshalBorshWrongDiscriminator(t *testing.T) {
	require := require.New(t)
	b, err := MarshalBorsh(AccountDiscriminator("Counter"), testPayload{Count: 1})
	require.NoError(err)

	var out testPayload
	require.ErrorIs(UnmarshalBorsh(AccountDiscriminator("Other"), b, &out), ErrInvalidDiscriminator)
	require.ErrorIs(UnmarshalBorsh(AccountDiscriminator("Counter"), b[:3], &out), ErrInsufficientLength)
}

func TestDiscriminatorNamespaces(t *testing.T) {
	require := require.New(t)
	require.NotEqual(AccountDiscriminator("increment"), InstructionDiscriminator("increment"))

	b, err := MarshalBorsh(InstructionDiscriminator("increment"), nil)
	require.NoError(err)
	require.Len(b, DiscriminatorLen)
	require.NoError(UnmarshalBorsh(InstructionDiscriminator("increment"), b, nil))
}

func TestMarshalBorshPointer(t *testing.T) {
	require := require.New(t)
	d := AccountDiscriminator("Counter")

	fromValue, err := MarshalBorsh(d, testPayload{Count: 9})
	require.NoError(err)
	fromPointer, err := MarshalBorsh(d, &testPayload{Count: 9})
	require.NoError(err)
	require.Len(fromPointer, DiscriminatorLen+8)
	require.Equal(fromValue, fromPointer)

	var out testPayload
	require.NoError(UnmarshalBorsh(d, fromPointer, &out))
	require.Equal(uint64(9), out.Count)

	type args struct {
		Seeds [][]byte
		Flag  bool
	}
	b, err := MarshalBorsh(d, &args{Seeds: [][]byte{[]byte("counter")}, Flag: true})
	require.NoError(err)
	var decoded args
	require.NoError(UnmarshalBorsh(d, b, &decoded))
	require.Equal([][]byte{[]byte("counter")}, decoded.Seeds)
	require.True(decoded.Flag)

	var nilPayload *testPayload
	b, err = MarshalBorsh(d, nilPayload)
	require.NoError(err)
	require.Len(b, DiscriminatorLen)
}
