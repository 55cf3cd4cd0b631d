// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/set"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"

	smath "github.com/ava-labs/avalanchego/utils/math"
)

// 0x1 => hash of the applied genesis
var genesisKey = []byte{0x1}

var (
	ErrDuplicateAllocation = errors.New("duplicate allocation")
	ErrGenesisMismatch     = errors.New("ledger was created from a different genesis")
)

type Allocation struct {
	Address  codec.Address `json:"address"`
	Lamports uint64        `json:"lamports"`
}

type Genesis struct {
	Allocations []*Allocation `json:"allocations"`
}

// Airdropper is implemented by [runtime.Host].
type Airdropper interface {
	Airdrop(ctx context.Context, addr codec.Address, lamports uint64) error
}

func Load(b []byte) (*Genesis, error) {
	var g Genesis
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, err
	}
	if _, err := g.Supply(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Supply is the sum of every allocation.
func (g *Genesis) Supply() (uint64, error) {
	var (
		supply uint64
		seen   = set.NewSet[codec.Address](len(g.Allocations))
		err    error
	)
	for _, alloc := range g.Allocations {
		if seen.Contains(alloc.Address) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateAllocation, alloc.Address)
		}
		seen.Add(alloc.Address)
		supply, err = smath.Add(supply, alloc.Lamports)
		if err != nil {
			return 0, err
		}
	}
	return supply, nil
}

func (g *Genesis) ID() ([]byte, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return hashing.ComputeHash256(b), nil
}

// Apply funds every allocation through [host] unless [db] already holds
// this genesis. Applying a different genesis to the same ledger fails.
func (g *Genesis) Apply(
	ctx context.Context,
	tracer trace.Tracer,
	db *state.Database,
	host Airdropper,
) (bool, error) {
	ctx, span := tracer.Start(ctx, "Genesis.Apply", oteltrace.WithAttributes(
		attribute.Int("allocations", len(g.Allocations)),
	))
	defer span.End()

	id, err := g.ID()
	if err != nil {
		return false, err
	}
	applied, err := db.GetValue(ctx, genesisKey)
	switch {
	case err == nil && bytes.Equal(applied, id):
		return false, nil
	case err == nil:
		return false, ErrGenesisMismatch
	case !errors.Is(err, database.ErrNotFound):
		return false, err
	}
	for _, alloc := range g.Allocations {
		if err := host.Airdrop(ctx, alloc.Address, alloc.Lamports); err != nil {
			return false, fmt.Errorf("%w: addr=%s, lamports=%d", err, alloc.Address, alloc.Lamports)
		}
	}
	return true, db.Apply(ctx, map[string]maybe.Maybe[[]byte]{
		string(genesisKey): maybe.Some(id),
	})
}
