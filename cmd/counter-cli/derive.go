// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the program and account addresses used by the counter",
	RunE: func(*cobra.Command, []string) error {
		return printValue(derived{
			CounterProgram:    counter.ProgramID,
			Counter:           counter.Address,
			DelegationProgram: delegation.ProgramID,
			Buffer:            delegation.BufferAddress(counter.Address),
			Record:            delegation.RecordAddress(counter.Address),
			Metadata:          delegation.MetadataAddress(counter.Address),
			MagicProgram:      magic.ProgramID,
			MagicContext:      magic.ContextAddress,
		})
	},
}

type derived struct {
	CounterProgram    codec.Address `json:"counterProgram"`
	Counter           codec.Address `json:"counter"`
	DelegationProgram codec.Address `json:"delegationProgram"`
	Buffer            codec.Address `json:"buffer"`
	Record            codec.Address `json:"record"`
	Metadata          codec.Address `json:"metadata"`
	MagicProgram      codec.Address `json:"magicProgram"`
	MagicContext      codec.Address `json:"magicContext"`
}

func (d derived) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "counter program:    %s\n", d.CounterProgram)
	fmt.Fprintf(&b, "counter:            %s\n", d.Counter)
	fmt.Fprintf(&b, "delegation program: %s\n", d.DelegationProgram)
	fmt.Fprintf(&b, "buffer:             %s\n", d.Buffer)
	fmt.Fprintf(&b, "record:             %s\n", d.Record)
	fmt.Fprintf(&b, "metadata:           %s\n", d.Metadata)
	fmt.Fprintf(&b, "magic program:      %s\n", d.MagicProgram)
	fmt.Fprintf(&b, "magic context:      %s", d.MagicContext)
	return b.String()
}

func init() {
	rootCmd.AddCommand(deriveCmd)
}
