// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"

	"github.com/ava-labs/hypercounter/codec"
)

// Program is native code that a [Host] runs for instructions addressed to
// [ID]. Programs only interact with state through the [Invocation].
type Program interface {
	ID() codec.Address
	Name() string
	Execute(ctx context.Context, inv *Invocation) error
}
