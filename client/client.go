// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client submits counter instructions to the base ledger or the
// rollup, depending on where the counter currently lives.
package client

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/runtime"
)

// Ledger is implemented by [runtime.Host] and [rollup.Node].
type Ledger interface {
	GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error)
	Execute(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error)
}

// Receipt describes an executed transaction.
type Receipt struct {
	Layer        runtime.Custody `json:"layer"`
	Instructions int             `json:"instructions"`
	Changed      int             `json:"changed"`
	Logs         []string        `json:"logs"`
}

// CounterState is the counter as seen by both layers.
type CounterState struct {
	Address     codec.Address   `json:"address"`
	Initialized bool            `json:"initialized"`
	Custody     runtime.Custody `json:"custody"`
	Delegated   bool            `json:"delegated"`
	// Base is the last value written to the base ledger.
	Base uint64 `json:"base"`
	// Rollup is the value on the rollup. It equals Base when the counter
	// is not delegated.
	Rollup uint64 `json:"rollup"`
}

// DelegationStatus is the registry entry of the counter.
type DelegationStatus struct {
	Address   codec.Address        `json:"address"`
	Delegated bool                 `json:"delegated"`
	Record    *delegation.Record   `json:"record,omitempty"`
	Metadata  *delegation.Metadata `json:"metadata,omitempty"`
}

type Client struct {
	log    logging.Logger
	base   Ledger
	rollup Ledger
}

func New(log logging.Logger, base Ledger, rollup Ledger) *Client {
	return &Client{log: log, base: base, rollup: rollup}
}

func (c *Client) ledger(layer runtime.Custody) Ledger {
	if layer == runtime.CustodyRollup {
		return c.rollup
	}
	return c.base
}

func (c *Client) submit(
	ctx context.Context,
	layer runtime.Custody,
	signer codec.Address,
	ix runtime.Instruction,
) (*Receipt, error) {
	var signers []codec.Address
	if signer != codec.EmptyAddress {
		signers = []codec.Address{signer}
	}
	res, err := c.ledger(layer).Execute(ctx, runtime.NewTransaction(signers, ix))
	if err != nil {
		c.log.Debug("transaction failed",
			zap.Stringer("layer", layer),
			zap.Stringer("program", ix.ProgramID),
			zap.Error(err),
		)
		return nil, err
	}
	return &Receipt{
		Layer:        layer,
		Instructions: res.Instructions,
		Changed:      res.Changed,
		Logs:         res.Logs,
	}, nil
}

// Initialize creates the counter on the base ledger, paid by [user].
func (c *Client) Initialize(ctx context.Context, user codec.Address) (*Receipt, error) {
	return c.submit(ctx, runtime.CustodyBaseLedger, user, counter.Initialize(user))
}

// Increment adds one to the counter wherever it is writable.
func (c *Client) Increment(ctx context.Context) (*Receipt, error) {
	delegated, err := delegation.IsDelegated(ctx, c.base, counter.Address)
	if err != nil {
		return nil, err
	}
	layer := runtime.CustodyBaseLedger
	if delegated {
		layer = runtime.CustodyRollup
	}
	return c.IncrementOn(ctx, layer)
}

// IncrementOn adds one to the counter on [layer].
func (c *Client) IncrementOn(ctx context.Context, layer runtime.Custody) (*Receipt, error) {
	return c.submit(ctx, layer, codec.EmptyAddress, counter.Increment())
}

// Delegate hands the counter to the rollup, paid by [payer].
func (c *Client) Delegate(ctx context.Context, payer codec.Address) (*Receipt, error) {
	return c.submit(ctx, runtime.CustodyBaseLedger, payer, counter.Delegate(payer))
}

// IncrementAndCommit increments the counter on the rollup and writes it
// back to the base ledger.
func (c *Client) IncrementAndCommit(ctx context.Context, payer codec.Address) (*Receipt, error) {
	return c.submit(ctx, runtime.CustodyRollup, payer, counter.IncrementAndCommit(payer))
}

// Undelegate commits the counter and returns it to the base ledger.
func (c *Client) Undelegate(ctx context.Context, payer codec.Address) (*Receipt, error) {
	return c.submit(ctx, runtime.CustodyRollup, payer, counter.Undelegate(payer))
}

// IncrementAndUndelegate increments the counter before [Undelegate].
func (c *Client) IncrementAndUndelegate(ctx context.Context, payer codec.Address) (*Receipt, error) {
	return c.submit(ctx, runtime.CustodyRollup, payer, counter.IncrementAndUndelegate(payer))
}

// Counter reads the counter from both layers.
func (c *Client) Counter(ctx context.Context) (*CounterState, error) {
	state := &CounterState{Address: counter.Address}
	base, acct, exists, err := counter.GetCounter(ctx, c.base)
	if err != nil {
		return nil, fmt.Errorf("base ledger: %w", err)
	}
	if !exists {
		return state, nil
	}
	state.Initialized = true
	state.Custody = acct.Custody
	state.Base = base.Count
	state.Rollup = base.Count
	state.Delegated, err = delegation.IsDelegated(ctx, c.base, counter.Address)
	if err != nil || !state.Delegated {
		return state, err
	}
	rollup, _, exists, err := counter.GetCounter(ctx, c.rollup)
	if err != nil {
		return nil, fmt.Errorf("rollup: %w", err)
	}
	if exists {
		state.Rollup = rollup.Count
	}
	return state, nil
}

// DelegationStatus reads the registry entry of the counter.
func (c *Client) DelegationStatus(ctx context.Context) (*DelegationStatus, error) {
	status := &DelegationStatus{Address: counter.Address}
	record, exists, err := delegation.GetRecord(ctx, c.base, counter.Address)
	if err != nil || !exists {
		return status, err
	}
	status.Delegated = true
	status.Record = record
	status.Metadata, _, err = delegation.GetMetadata(ctx, c.base, counter.Address)
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (*Client) CounterAddress() codec.Address {
	return counter.Address
}

// Account reads [addr] on [layer]. Reading from the rollup clones the
// account if the rollup does not hold it yet.
func (c *Client) Account(ctx context.Context, layer runtime.Custody, addr codec.Address) (*runtime.Account, bool, error) {
	return c.ledger(layer).GetAccount(ctx, addr)
}
