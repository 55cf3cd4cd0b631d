// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"
	"errors"
	"time"

	"github.com/ava-labs/hypercounter/codec"
)

var _ Subscription = SubscriptionFunc(nil)

// Commit describes a snapshot accepted by the base ledger.
type Commit struct {
	Account     codec.Address `json:"account"`
	Nonce       uint64        `json:"nonce"`
	Size        int           `json:"size"`
	Undelegated bool          `json:"undelegated"`
	Time        time.Time     `json:"time"`
}

// Subscription consumes commits after the base ledger accepted them.
// Accept runs while the rollup transaction is still executing, so it must
// not submit transactions to the node.
type Subscription interface {
	// Accept errors are logged. They never undo the commit.
	Accept(ctx context.Context, c *Commit) error
	Close() error
}

type SubscriptionFunc func(ctx context.Context, c *Commit) error

func (f SubscriptionFunc) Accept(ctx context.Context, c *Commit) error {
	return f(ctx, c)
}

func (SubscriptionFunc) Close() error {
	return nil
}

func notifyAll(ctx context.Context, c *Commit, subs ...Subscription) error {
	var errs []error
	for _, sub := range subs {
		if err := sub.Accept(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
