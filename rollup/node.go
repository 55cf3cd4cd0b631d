// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rollup runs the ephemeral rollup: a [runtime.Host] whose writable
// accounts are the base ledger accounts delegated to its validator.
package rollup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
)

// ValidatorFunds is credited to the validator on the rollup to pay for
// rollup-local accounts.
const ValidatorFunds uint64 = 1_000_000_000_000

// Tracked describes a delegated account held by the rollup.
type Tracked struct {
	Address    codec.Address      `json:"address"`
	Record     *delegation.Record `json:"record"`
	LastCommit time.Time          `json:"lastCommit"`
}

type tracked struct {
	record     *delegation.Record
	lastCommit time.Time
	committed  []byte
}

type Node struct {
	log       logging.Logger
	clock     clock.Clock
	host      *runtime.Host
	base      BaseLedger
	validator codec.Address
	metrics   *metrics
	history   *History

	l             sync.Mutex
	tracked       map[codec.Address]*tracked
	subscriptions []Subscription
}

func New(
	ctx context.Context,
	log logging.Logger,
	tracer trace.Tracer,
	clk clock.Clock,
	db *state.Database,
	base BaseLedger,
	validator codec.Address,
) (*Node, error) {
	if validator == codec.EmptyAddress {
		return nil, ErrInvalidValidator
	}
	host, err := runtime.New(
		runtime.Config{Name: "rollup", Custody: runtime.CustodyRollup},
		log,
		tracer,
		clk,
		db,
	)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(host.Registry())
	if err != nil {
		return nil, err
	}
	history, err := NewHistory(DefaultHistorySize)
	if err != nil {
		return nil, err
	}
	n := &Node{
		log:           log,
		clock:         clk,
		host:          host,
		base:          base,
		validator:     validator,
		metrics:       m,
		history:       history,
		tracked:       map[codec.Address]*tracked{},
		subscriptions: []Subscription{history},
	}
	if err := host.RegisterPrivileged(magic.New(log, validator)); err != nil {
		return nil, err
	}
	host.SetAccountLoader(n.clone)
	host.AddPreCommitHook(n.commit)
	if err := n.bootstrap(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

// bootstrap funds the validator and creates the magic context.
func (n *Node) bootstrap(ctx context.Context) error {
	if _, exists, err := n.host.GetAccount(ctx, n.validator); err != nil {
		return err
	} else if !exists {
		if err := n.host.Airdrop(ctx, n.validator, ValidatorFunds); err != nil {
			return err
		}
	}
	_, exists, err := n.host.GetAccount(ctx, magic.ContextAddress)
	if err != nil || exists {
		return err
	}
	_, err = n.host.Execute(ctx, runtime.NewTransaction(
		[]codec.Address{n.validator},
		magic.InitContext(n.validator),
	))
	return err
}

func (n *Node) Host() *runtime.Host {
	return n.host
}

func (n *Node) Validator() codec.Address {
	return n.validator
}

func (n *Node) Registry() *prometheus.Registry {
	return n.host.Registry()
}

// Subscribe adds [sub] to the consumers of accepted commits.
func (n *Node) Subscribe(sub Subscription) {
	n.l.Lock()
	defer n.l.Unlock()

	n.subscriptions = append(n.subscriptions, sub)
}

// Commits returns up to [limit] of the most recent commits, newest first.
func (n *Node) Commits(limit int) []*Commit {
	return n.history.Commits(limit)
}

// Close closes every subscription.
func (n *Node) Close() error {
	n.l.Lock()
	subs := n.subscriptions
	n.subscriptions = nil
	n.l.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Node) notify(ctx context.Context, commits []*Commit) {
	n.l.Lock()
	subs := slices.Clone(n.subscriptions)
	n.l.Unlock()

	for _, c := range commits {
		if err := notifyAll(ctx, c, subs...); err != nil {
			n.log.Warn("commit subscription failed",
				zap.Stringer("account", c.Account),
				zap.Uint64("nonce", c.Nonce),
				zap.Error(err),
			)
		}
	}
}

func (n *Node) Register(p runtime.Program) error {
	return n.host.Register(p)
}

func (n *Node) Execute(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error) {
	return n.host.Execute(ctx, tx)
}

// GetAccount returns the rollup view of [addr], cloning it from the base
// ledger if the rollup does not hold it.
func (n *Node) GetAccount(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error) {
	acct, exists, err := n.host.GetAccount(ctx, addr)
	if err != nil || exists {
		return acct, exists, err
	}
	return n.clone(ctx, addr)
}

// clone copies [addr] from the base ledger. Accounts delegated to this
// validator are writable in the rollup and owned by their original program;
// every other account is a read-only copy.
func (n *Node) clone(ctx context.Context, addr codec.Address) (*runtime.Account, bool, error) {
	acct, exists, err := n.base.GetAccount(ctx, addr)
	if err != nil || !exists {
		return nil, false, err
	}
	n.metrics.clones.Inc()
	acct = acct.Clone()
	if acct.Custody != runtime.CustodyRollup {
		return acct, true, nil
	}
	record, exists, err := delegation.GetRecord(ctx, n.base, addr)
	if err != nil {
		return nil, false, err
	}
	if !exists || record.Authority != n.validator {
		acct.Custody = runtime.CustodyBaseLedger
		return acct, true, nil
	}
	acct.Owner = record.Owner
	n.track(addr, record, acct.Data)
	return acct, true, nil
}

func (n *Node) track(addr codec.Address, record *delegation.Record, data []byte) {
	n.l.Lock()
	defer n.l.Unlock()

	if t, ok := n.tracked[addr]; ok {
		t.record = record
		return
	}
	n.tracked[addr] = &tracked{
		record:     record,
		lastCommit: n.clock.Now(),
		committed:  slices.Clone(data),
	}
	n.metrics.tracked.Set(float64(len(n.tracked)))
	n.log.Info("tracking delegated account",
		zap.Stringer("account", addr),
		zap.Stringer("owner", record.Owner),
		zap.Uint32("commitFrequencyMs", record.CommitFrequencyMs),
	)
}

func (n *Node) untrack(addr codec.Address) {
	n.l.Lock()
	defer n.l.Unlock()

	delete(n.tracked, addr)
	n.metrics.tracked.Set(float64(len(n.tracked)))
}

func (n *Node) markCommitted(addr codec.Address, data []byte) {
	n.l.Lock()
	defer n.l.Unlock()

	if t, ok := n.tracked[addr]; ok {
		t.lastCommit = n.clock.Now()
		t.committed = slices.Clone(data)
	}
}

// Tracked returns the delegated accounts held by the rollup, ordered by
// address.
func (n *Node) Tracked() []Tracked {
	n.l.Lock()
	defer n.l.Unlock()

	addrs := maps.Keys(n.tracked)
	slices.SortFunc(addrs, func(a, b codec.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	out := make([]Tracked, 0, len(addrs))
	for _, addr := range addrs {
		t := n.tracked[addr]
		out = append(out, Tracked{Address: addr, Record: t.record, LastCommit: t.lastCommit})
	}
	return out
}

// due returns the tracked accounts whose commit frequency elapsed with
// uncommitted changes, and those whose delegation expired. Accounts that are
// no longer delegated to this validator are evicted.
func (n *Node) due(ctx context.Context, now time.Time) ([]codec.Address, []codec.Address, error) {
	var commits, expired, evicted []codec.Address
	for _, t := range n.Tracked() {
		record, exists, err := delegation.GetRecord(ctx, n.base, t.Address)
		if err != nil {
			return nil, nil, err
		}
		if !exists || record.Authority != n.validator {
			evicted = append(evicted, t.Address)
			continue
		}
		if record.Expired(now.UnixMilli()) {
			expired = append(expired, t.Address)
			continue
		}
		frequency := time.Duration(record.CommitFrequencyMs) * time.Millisecond
		if frequency == 0 || now.Sub(t.LastCommit) < frequency {
			continue
		}
		acct, exists, err := n.host.GetAccount(ctx, t.Address)
		if err != nil {
			return nil, nil, err
		}
		n.l.Lock()
		entry, ok := n.tracked[t.Address]
		if !ok {
			// Undelegated since the snapshot.
			n.l.Unlock()
			continue
		}
		unchanged := !exists || bytes.Equal(acct.Data, entry.committed)
		if unchanged {
			entry.lastCommit = now
		}
		n.l.Unlock()
		if !unchanged {
			commits = append(commits, t.Address)
		}
	}
	if len(evicted) > 0 {
		if err := n.host.Evict(ctx, evicted...); err != nil {
			return nil, nil, err
		}
		for _, addr := range evicted {
			n.untrack(addr)
			n.log.Info("evicted account no longer delegated", zap.Stringer("account", addr))
		}
	}
	return commits, expired, nil
}

// Schedule submits a commit of [accounts] through the magic program on
// behalf of the validator. Every account must be delegated to the validator.
func (n *Node) Schedule(ctx context.Context, undelegate bool, accounts ...codec.Address) error {
	for _, addr := range accounts {
		if _, _, err := n.GetAccount(ctx, addr); err != nil {
			return err
		}
		n.l.Lock()
		_, ok := n.tracked[addr]
		n.l.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotTracked, addr)
		}
	}
	ix := magic.ScheduleCommit(n.validator, magic.ContextAddress, accounts...)
	if undelegate {
		ix = magic.ScheduleCommitAndUndelegate(n.validator, magic.ContextAddress, accounts...)
	}
	_, err := n.host.Execute(ctx, runtime.NewTransaction([]codec.Address{n.validator}, ix))
	return err
}
