// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/runtime"
)

// commit submits the commits scheduled by [tx] to the base ledger before the
// rollup persists [tx]. If the base ledger rejects them, the rollup
// transaction is discarded as well.
func (n *Node) commit(ctx context.Context, tx *runtime.Transaction, view *runtime.View) error {
	addrs := tx.Addresses()
	if !addrs.Contains(magic.ContextAddress) {
		return nil
	}
	mctx, err := magic.GetContext(ctx, view)
	if err != nil {
		return err
	}
	if len(mctx.Scheduled) == 0 {
		return nil
	}
	baseTx, commits, err := n.commitTransaction(ctx, mctx.Scheduled)
	if err != nil {
		return err
	}
	if _, err := n.base.Execute(ctx, baseTx); err != nil {
		n.metrics.commitFailed.Inc()
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	for _, sc := range mctx.Scheduled {
		n.metrics.commits.Inc()
		if !sc.Undelegate {
			n.markCommitted(sc.Account, sc.Data)
			continue
		}
		if err := view.DeleteAccount(ctx, sc.Account); err != nil {
			return err
		}
		n.untrack(sc.Account)
		n.metrics.undelegations.Inc()
	}
	n.notify(ctx, commits)
	n.log.Debug("committed scheduled accounts",
		zap.Int("commits", len(mctx.Scheduled)),
		zap.Uint64("nextID", mctx.NextID),
	)
	view.Logf("committed %d accounts to the base ledger", len(mctx.Scheduled))

	mctx.Scheduled = nil
	b, err := mctx.Marshal()
	if err != nil {
		return err
	}
	acct, exists, err := view.GetAccount(ctx, magic.ContextAddress)
	if err != nil {
		return err
	}
	if !exists {
		return magic.ErrInvalidContext
	}
	acct.Data = b
	return view.SetAccount(ctx, magic.ContextAddress, acct)
}

// commitTransaction builds the registry instructions for [scheduled]. Nonces
// continue from the last commit accepted by the base ledger.
func (n *Node) commitTransaction(ctx context.Context, scheduled []magic.ScheduledCommit) (*runtime.Transaction, []*Commit, error) {
	var (
		now        = n.clock.Now()
		nonces     = make(map[codec.Address]uint64, len(scheduled))
		rentPayers = make(map[codec.Address]codec.Address, len(scheduled))
		ixs        = make([]runtime.Instruction, 0, 2*len(scheduled))
		commits    = make([]*Commit, 0, len(scheduled))
	)
	for _, sc := range scheduled {
		nonce, ok := nonces[sc.Account]
		if !ok {
			metadata, exists, err := delegation.GetMetadata(ctx, n.base, sc.Account)
			if err != nil {
				return nil, nil, err
			}
			if !exists {
				return nil, nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, sc.Account)
			}
			nonce = metadata.LastNonce
			rentPayers[sc.Account] = metadata.RentPayer
		}
		nonce++
		nonces[sc.Account] = nonce

		ix, err := delegation.CommitState(n.validator, sc.Account, &delegation.CommitStateArgs{
			Nonce:             nonce,
			Data:              sc.Data,
			AllowUndelegation: sc.Undelegate,
		})
		if err != nil {
			return nil, nil, err
		}
		ixs = append(ixs, ix)
		commits = append(commits, &Commit{
			Account:     sc.Account,
			Nonce:       nonce,
			Size:        len(sc.Data),
			Undelegated: sc.Undelegate,
			Time:        now,
		})
		if !sc.Undelegate {
			continue
		}
		ix, err = delegation.Undelegate(n.validator, sc.Account, sc.Owner, rentPayers[sc.Account])
		if err != nil {
			return nil, nil, err
		}
		ixs = append(ixs, ix)
	}
	return runtime.NewTransaction([]codec.Address{n.validator}, ixs...), commits, nil
}
