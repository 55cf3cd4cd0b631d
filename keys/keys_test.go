// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumChunks(t *testing.T) {
	tests := []struct {
		size   int
		chunks uint16
	}{
		{size: 0, chunks: 0},
		{size: 1, chunks: 1},
		{size: ChunkSize - 1, chunks: 1},
		{size: ChunkSize, chunks: 2},
		{size: 10 * ChunkSize, chunks: 11},
	}
	for _, tt := range tests {
		chunks, ok := NumChunks(make([]byte, tt.size))
		require.True(t, ok)
		require.Equal(t, tt.chunks, chunks, "size %d", tt.size)
	}
}

func TestVerifyValue(t *testing.T) {
	require := require.New(t)
	key := EncodeChunks([]byte("account"), 2)

	chunks, ok := MaxChunks(key)
	require.True(ok)
	require.Equal(uint16(2), chunks)
	require.True(Valid(string(key)))

	require.True(VerifyValue(key, bytes.Repeat([]byte{1}, ChunkSize)))
	require.False(VerifyValue(key, bytes.Repeat([]byte{1}, 2*ChunkSize)))
	require.False(VerifyValue([]byte{1}, nil))
}
