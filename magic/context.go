// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package magic

import (
	"context"
	"fmt"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

var (
	ProgramID = codec.NewProgramAddress("magic")

	contextSeed          = []byte("magic-context")
	contextDiscriminator = codec.AccountDiscriminator("MagicContext")

	// ContextAddress holds the commits scheduled by rollup transactions
	// until they are submitted to the base ledger.
	ContextAddress = codec.MustDeriveAddress(ProgramID, contextSeed)
)

// MaxScheduled bounds the queue of the magic context. The committer drains
// it after every transaction.
const MaxScheduled = 8

// ScheduledCommit is a snapshot of a rollup account waiting to be written
// to the base ledger.
type ScheduledCommit struct {
	ID          uint64        `json:"id"`
	Account     codec.Address `json:"account"`
	Owner       codec.Address `json:"owner"`
	Data        []byte        `json:"data"`
	Payer       codec.Address `json:"payer"`
	Undelegate  bool          `json:"undelegate"`
	RequestedAt int64         `json:"requestedAt"`
}

// Context is the state of the magic context account.
type Context struct {
	NextID    uint64
	Scheduled []ScheduledCommit
}

func (c *Context) Marshal() ([]byte, error) {
	return codec.MarshalBorsh(contextDiscriminator, c)
}

func UnmarshalContext(data []byte) (*Context, error) {
	var c Context
	if err := codec.UnmarshalBorsh(contextDiscriminator, data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContext, err)
	}
	return &c, nil
}

// AccountReader is satisfied by [runtime.Host], [runtime.Invocation] and
// [runtime.View].
type AccountReader interface {
	GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error)
}

// GetContext loads the magic context from [r].
func GetContext(ctx context.Context, r AccountReader) (*Context, error) {
	acct, exists, err := r.GetAccount(ctx, ContextAddress)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidContext, ContextAddress)
	}
	return UnmarshalContext(acct.Data)
}
