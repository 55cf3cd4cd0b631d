// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	smath "github.com/ava-labs/avalanchego/utils/math"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/tstate"
)

// AccountLoader supplies accounts that are missing from the local store.
type AccountLoader func(ctx context.Context, addr codec.Address) (*Account, bool, error)

// PreCommitHook runs after every instruction of a transaction succeeded and
// before its changes are persisted. Returning an error discards the
// transaction.
type PreCommitHook func(ctx context.Context, tx *Transaction, view *View) error

type Config struct {
	// Name namespaces metrics and identifies the host in logs.
	Name string
	// Custody is the custody of accounts this host may write. A base
	// ledger host may write any account owned by the running program; a
	// rollup host only those in [CustodyRollup].
	Custody Custody
}

// Host executes transactions against a [state.Database]. Transactions are
// serialized and applied atomically: either every instruction succeeds and
// all changes are written in one batch, or nothing is written.
type Host struct {
	name    string
	custody Custody
	log     logging.Logger
	tracer  trace.Tracer
	clock   clock.Clock
	db      *state.Database

	registry *prometheus.Registry
	metrics  *metrics

	l          sync.Mutex
	programs   map[codec.Address]Program
	privileged set.Set[codec.Address]
	loader     AccountLoader
	hooks      []PreCommitHook
}

func New(
	cfg Config,
	log logging.Logger,
	tracer trace.Tracer,
	clk clock.Clock,
	db *state.Database,
) (*Host, error) {
	registry, metrics, err := newMetrics(cfg.Name)
	if err != nil {
		return nil, err
	}
	h := &Host{
		name:     cfg.Name,
		custody:  cfg.Custody,
		log:      log,
		tracer:   tracer,
		clock:    clk,
		db:       db,
		registry: registry,
		metrics:  metrics,
		programs: map[codec.Address]Program{},
	}
	h.privileged = set.NewSet[codec.Address](1)
	if err := h.Register(&SystemProgram{}); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) Name() string {
	return h.name
}

func (h *Host) Custody() Custody {
	return h.custody
}

func (h *Host) Clock() clock.Clock {
	return h.clock
}

func (h *Host) Registry() *prometheus.Registry {
	return h.registry
}

func (h *Host) Register(p Program) error {
	h.l.Lock()
	defer h.l.Unlock()

	if _, ok := h.programs[p.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProgram, p.Name())
	}
	h.programs[p.ID()] = p
	h.log.Debug("registered program",
		zap.String("host", h.name),
		zap.String("program", p.Name()),
		zap.Stringer("id", p.ID()),
	)
	return nil
}

// RegisterPrivileged registers a program that may modify any account in the
// custody of the host, regardless of its owner.
func (h *Host) RegisterPrivileged(p Program) error {
	if err := h.Register(p); err != nil {
		return err
	}
	h.l.Lock()
	defer h.l.Unlock()

	h.privileged.Add(p.ID())
	return nil
}

// SetAccountLoader installs [loader] for accounts that are not stored
// locally. Loaded accounts are only persisted if a transaction writes them.
func (h *Host) SetAccountLoader(loader AccountLoader) {
	h.l.Lock()
	defer h.l.Unlock()

	h.loader = loader
}

func (h *Host) AddPreCommitHook(hook PreCommitHook) {
	h.l.Lock()
	defer h.l.Unlock()

	h.hooks = append(h.hooks, hook)
}

// GetAccount returns the persisted account at [addr].
func (h *Host) GetAccount(ctx context.Context, addr codec.Address) (*Account, bool, error) {
	return GetAccount(ctx, h.db, addr)
}

// Airdrop credits [lamports] to [addr], creating a system account if
// needed.
func (h *Host) Airdrop(ctx context.Context, addr codec.Address, lamports uint64) error {
	h.l.Lock()
	defer h.l.Unlock()

	acct, exists, err := GetAccount(ctx, h.db, addr)
	if err != nil {
		return err
	}
	if !exists {
		acct = &Account{Owner: SystemProgramID, Custody: h.custody}
	}
	acct.Lamports, err = smath.Add(acct.Lamports, lamports)
	if err != nil {
		return err
	}
	return h.db.Apply(ctx, map[string]maybe.Maybe[[]byte]{
		string(AccountKey(addr)): maybe.Some(acct.Marshal()),
	})
}

// Evict drops the local copies of [addrs].
func (h *Host) Evict(ctx context.Context, addrs ...codec.Address) error {
	h.l.Lock()
	defer h.l.Unlock()

	changes := make(map[string]maybe.Maybe[[]byte], len(addrs))
	for _, addr := range addrs {
		changes[string(AccountKey(addr))] = maybe.Nothing[[]byte]()
	}
	return h.db.Apply(ctx, changes)
}

func (h *Host) Execute(ctx context.Context, tx *Transaction) (*Result, error) {
	ctx, span := h.tracer.Start(ctx, "Host.Execute", oteltrace.WithAttributes(
		attribute.String("host", h.name),
		attribute.Int("instructions", len(tx.Instructions)),
	))
	defer span.End()

	h.l.Lock()
	defer h.l.Unlock()

	start := time.Now()
	result, err := h.execute(ctx, tx)
	h.metrics.execute.Observe(float64(time.Since(start)))
	if err != nil {
		h.metrics.txsFailed.Inc()
		span.RecordError(err)
		h.log.Debug("transaction rejected",
			zap.String("host", h.name),
			zap.Error(err),
		)
		return nil, err
	}
	h.metrics.txsSucceeded.Inc()
	h.metrics.stateChanges.Add(float64(result.Changed))
	return result, nil
}

func (h *Host) execute(ctx context.Context, tx *Transaction) (*Result, error) {
	switch {
	case len(tx.Instructions) == 0:
		return nil, ErrNoInstructions
	case len(tx.Instructions) > MaxInstructions:
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyInstructions, len(tx.Instructions), MaxInstructions)
	}
	scope := tx.StateKeys()
	storage, err := h.prefetch(ctx, tx.Addresses())
	if err != nil {
		return nil, err
	}
	ts := tstate.New(len(scope))
	txc := &txContext{view: ts.NewView(scope, storage)}
	signers := set.Of(tx.Signers...)
	for i, ix := range tx.Instructions {
		inv := &Invocation{
			host:      h,
			tx:        txc,
			programID: ix.ProgramID,
			accounts:  ix.Accounts,
			data:      ix.Data,
			signers:   signers,
		}
		if err := h.invoke(ctx, inv); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	view := &View{tx: txc}
	for _, hook := range h.hooks {
		if err := hook(ctx, tx, view); err != nil {
			return nil, err
		}
	}
	txc.view.Commit()
	changes := ts.ChangedKeys()
	if err := h.db.Apply(ctx, changes); err != nil {
		return nil, err
	}
	return &Result{
		Instructions: len(tx.Instructions),
		Changed:      len(changes),
		Logs:         txc.logs,
	}, nil
}

func (h *Host) prefetch(ctx context.Context, addrs set.Set[codec.Address]) (map[string][]byte, error) {
	storage := make(map[string][]byte, addrs.Len())
	for addr := range addrs {
		k := AccountKey(addr)
		v, err := h.db.GetValue(ctx, k)
		switch {
		case err == nil:
			storage[string(k)] = v
			continue
		case !errors.Is(err, database.ErrNotFound):
			return nil, err
		case h.loader == nil:
			continue
		}
		acct, exists, err := h.loader(ctx, addr)
		if err != nil {
			return nil, err
		}
		if exists {
			storage[string(k)] = acct.Marshal()
		}
	}
	return storage, nil
}

func (h *Host) invoke(ctx context.Context, inv *Invocation) error {
	program, ok := h.programs[inv.programID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, inv.programID)
	}
	for _, meta := range inv.accounts {
		if meta.Signer && !inv.signers.Contains(meta.Address) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, meta.Address)
		}
	}
	ctx, span := h.tracer.Start(ctx, program.Name(), oteltrace.WithAttributes(
		attribute.Int("depth", inv.depth),
	))
	defer span.End()

	h.metrics.instructions.WithLabelValues(program.Name()).Inc()
	return program.Execute(ctx, inv)
}

// View gives a [PreCommitHook] direct access to the accounts declared by a
// transaction, bypassing program ownership rules.
type View struct {
	tx *txContext
}

func (v *View) GetAccount(ctx context.Context, addr codec.Address) (*Account, bool, error) {
	return GetAccount(ctx, v.tx.view, addr)
}

func (v *View) SetAccount(ctx context.Context, addr codec.Address, acct *Account) error {
	return SetAccount(ctx, v.tx.view, addr, acct)
}

func (v *View) DeleteAccount(ctx context.Context, addr codec.Address) error {
	return DeleteAccount(ctx, v.tx.view, addr)
}

func (v *View) Logf(format string, args ...any) {
	v.tx.logs = append(v.tx.logs, fmt.Sprintf(format, args...))
}
