// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegation

import (
	"context"
	"fmt"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

// Record binds a delegated account to the program that owned it and the
// rollup validator currently holding custody.
type Record struct {
	Authority         codec.Address `json:"authority"`
	Owner             codec.Address `json:"owner"`
	DelegatedAt       int64         `json:"delegatedAt"`
	TimeLimit         uint64        `json:"timeLimit"`
	CommitFrequencyMs uint32        `json:"commitFrequencyMs"`
	Lamports          uint64        `json:"lamports"`
}

// Expired reports whether the time limit of the delegation passed at
// [nowMs]. A zero time limit never expires.
func (r *Record) Expired(nowMs int64) bool {
	if r.TimeLimit == 0 || nowMs < r.DelegatedAt {
		return false
	}
	return uint64(nowMs-r.DelegatedAt) >= r.TimeLimit
}

// Metadata tracks the commits applied to a delegated account.
type Metadata struct {
	LastNonce      uint64        `json:"lastNonce"`
	LastUpdate     int64         `json:"lastUpdate"`
	Undelegatable  bool          `json:"undelegatable"`
	Seeds          [][]byte      `json:"seeds"`
	RentPayer      codec.Address `json:"rentPayer"`
	CommittedBytes uint64        `json:"committedBytes"`
}

func (r *Record) Marshal() ([]byte, error) {
	return codec.MarshalBorsh(recordDiscriminator, r)
}

func (m *Metadata) Marshal() ([]byte, error) {
	return codec.MarshalBorsh(metadataDiscriminator, m)
}

// AccountReader is satisfied by [runtime.Host] and [runtime.Invocation].
type AccountReader interface {
	GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error)
}

// GetRecord returns the live delegation of [target], if any.
func GetRecord(ctx context.Context, r AccountReader, target codec.Address) (*Record, bool, error) {
	acct, exists, err := r.GetAccount(ctx, RecordAddress(target))
	if err != nil || !exists {
		return nil, false, err
	}
	var record Record
	if err := codec.UnmarshalBorsh(recordDiscriminator, acct.Data, &record); err != nil {
		return nil, false, fmt.Errorf("%w: %w", runtime.ErrInvalidAccountData, err)
	}
	return &record, true, nil
}

func GetMetadata(ctx context.Context, r AccountReader, target codec.Address) (*Metadata, bool, error) {
	acct, exists, err := r.GetAccount(ctx, MetadataAddress(target))
	if err != nil || !exists {
		return nil, false, err
	}
	var metadata Metadata
	if err := codec.UnmarshalBorsh(metadataDiscriminator, acct.Data, &metadata); err != nil {
		return nil, false, fmt.Errorf("%w: %w", runtime.ErrInvalidAccountData, err)
	}
	return &metadata, true, nil
}

// IsDelegated reports whether a delegation record exists for [target].
func IsDelegated(ctx context.Context, r AccountReader, target codec.Address) (bool, error) {
	_, exists, err := r.GetAccount(ctx, RecordAddress(target))
	return exists, err
}
