// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE} -destination=mock_base_ledger.go . BaseLedger

// BaseLedger is the durable ledger the rollup clones accounts from and
// commits them back to. [runtime.Host] implements it.
type BaseLedger interface {
	GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error)
	Execute(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error)
}
