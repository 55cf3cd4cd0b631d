// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/consts"
)

const (
	Name = "counter"
	// Space is the size of the counter account: discriminator and count.
	Space = codec.DiscriminatorLen + consts.Uint64Len
)

var (
	ProgramID = codec.NewProgramAddress(Name)
	Seed      = []byte("test-pda")

	// Address is where the counter record is stored.
	Address = codec.MustDeriveAddress(ProgramID, Seed)
)
