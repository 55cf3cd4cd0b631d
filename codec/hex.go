// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/hex"
	"strings"
)

const hexPrefix = "0x"

// Bytes is raw account data. It is rendered as 0x-prefixed hex in JSON and
// CLI output.
type Bytes []byte

func (b Bytes) String() string {
	return hexPrefix + hex.EncodeToString(b)
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText accepts hex with or without the 0x prefix.
func (b *Bytes) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(strings.TrimPrefix(string(text), hexPrefix))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}
