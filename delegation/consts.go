// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegation

import "github.com/ava-labs/hypercounter/codec"

var (
	ProgramID = codec.NewProgramAddress("delegation")

	BufferSeed   = []byte("buffer")
	RecordSeed   = []byte("delegation")
	MetadataSeed = []byte("delegation-metadata")

	recordDiscriminator   = codec.AccountDiscriminator("DelegationRecord")
	metadataDiscriminator = codec.AccountDiscriminator("DelegationMetadata")
)

// BufferAddress is the scratch account used while [target] is delegated.
func BufferAddress(target codec.Address) codec.Address {
	return codec.MustDeriveAddress(ProgramID, BufferSeed, target[:])
}

func RecordAddress(target codec.Address) codec.Address {
	return codec.MustDeriveAddress(ProgramID, RecordSeed, target[:])
}

func MetadataAddress(target codec.Address) codec.Address {
	return codec.MustDeriveAddress(ProgramID, MetadataSeed, target[:])
}
