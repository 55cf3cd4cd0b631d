// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm wires the base ledger, the rollup and the counter program
// together.
package vm

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
)

type VM struct {
	log    logging.Logger
	config Config

	base      *runtime.Host
	rollup    *rollup.Node
	scheduler *rollup.Scheduler
	client    *client.Client
}

// New registers the delegation registry and the counter on a base ledger
// stored in [baseDB], and starts a rollup over it stored in [rollupDB].
func New(
	ctx context.Context,
	log logging.Logger,
	tracer trace.Tracer,
	clk clock.Clock,
	config Config,
	baseDB *state.Database,
	rollupDB *state.Database,
) (*VM, error) {
	if config.SchedulerInterval <= 0 {
		return nil, ErrInvalidSchedulerInterval
	}
	if config.Validator == codec.EmptyAddress {
		config.Validator = DefaultValidator
	}
	switch config.Delegate.Validator {
	case codec.EmptyAddress:
		config.Delegate.Validator = config.Validator
	case config.Validator:
	default:
		return nil, fmt.Errorf("%w: %s", ErrWrongValidator, config.Delegate.Validator)
	}

	base, err := runtime.New(
		runtime.Config{Name: "base", Custody: runtime.CustodyBaseLedger},
		log,
		tracer,
		clk,
		baseDB,
	)
	if err != nil {
		return nil, err
	}
	if err := base.Register(delegation.New(log, config.Validator)); err != nil {
		return nil, err
	}
	if err := base.Register(counter.New(log, config.Delegate)); err != nil {
		return nil, err
	}

	node, err := rollup.New(ctx, log, tracer, clk, rollupDB, base, config.Validator)
	if err != nil {
		return nil, err
	}
	if err := node.Register(counter.New(log, config.Delegate)); err != nil {
		return nil, err
	}

	log.Info("initialized vm",
		zap.Stringer("validator", config.Validator),
		zap.Stringer("counter", counter.Address),
		zap.Duration("schedulerInterval", config.SchedulerInterval),
	)
	return &VM{
		log:       log,
		config:    config,
		base:      base,
		rollup:    node,
		scheduler: rollup.NewScheduler(log, node, config.SchedulerInterval),
		client:    client.New(log, base, node),
	}, nil
}

func (vm *VM) Config() Config {
	return vm.config
}

func (vm *VM) Base() *runtime.Host {
	return vm.base
}

func (vm *VM) Rollup() *rollup.Node {
	return vm.rollup
}

func (vm *VM) Scheduler() *rollup.Scheduler {
	return vm.scheduler
}

func (vm *VM) Client() *client.Client {
	return vm.client
}

// Gatherer exposes the metrics of both layers.
func (vm *VM) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{vm.base.Registry(), vm.rollup.Registry()}
}

// Close releases the subscriptions of the rollup.
func (vm *VM) Close() error {
	return vm.rollup.Close()
}

// Run drives the rollup scheduler until [ctx] is done.
func (vm *VM) Run(ctx context.Context) error {
	vm.log.Info("starting scheduler")
	defer vm.log.Info("stopped scheduler")
	return vm.scheduler.Run(ctx)
}
