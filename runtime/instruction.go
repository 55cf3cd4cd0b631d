// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"github.com/ava-labs/avalanchego/utils/set"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/state"
)

const MaxInstructions = 16

// AccountMeta declares an account an instruction touches and the privileges
// it requires over it.
type AccountMeta struct {
	Address  codec.Address `json:"address"`
	Signer   bool          `json:"signer"`
	Writable bool          `json:"writable"`
}

func Writable(addr codec.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, Signer: signer, Writable: true}
}

func ReadOnly(addr codec.Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, Signer: signer}
}

type Instruction struct {
	ProgramID codec.Address `json:"programID"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      codec.Bytes   `json:"data"`
}

// Transaction is the atomic unit of execution. [Signers] is the set of
// addresses the submitter asserts signed the transaction.
type Transaction struct {
	Signers      []codec.Address `json:"signers"`
	Instructions []Instruction   `json:"instructions"`
}

func NewTransaction(signers []codec.Address, ixs ...Instruction) *Transaction {
	return &Transaction{Signers: signers, Instructions: ixs}
}

// StateKeys returns the union of the accounts declared by every instruction.
// Instructions may only touch accounts listed here, so any cross-program
// invocation must reuse accounts of its caller.
func (t *Transaction) StateKeys() state.Keys {
	stateKeys := make(state.Keys)
	for _, ix := range t.Instructions {
		for _, meta := range ix.Accounts {
			perm := state.Read
			if meta.Writable {
				perm = state.All
			}
			stateKeys.Add(string(AccountKey(meta.Address)), perm)
		}
	}
	return stateKeys
}

// Addresses returns every account address referenced by the transaction.
func (t *Transaction) Addresses() set.Set[codec.Address] {
	addrs := set.NewSet[codec.Address](len(t.Instructions))
	for _, ix := range t.Instructions {
		for _, meta := range ix.Accounts {
			addrs.Add(meta.Address)
		}
	}
	return addrs
}

// Result summarises a successfully executed transaction.
type Result struct {
	Instructions int      `json:"instructions"`
	Changed      int      `json:"changed"`
	Logs         []string `json:"logs,omitempty"`
}
