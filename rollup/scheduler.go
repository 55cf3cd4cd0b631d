// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/magic"
)

// Scheduler periodically commits delegated accounts with pending changes
// and returns accounts whose delegation expired.
type Scheduler struct {
	log      logging.Logger
	node     *Node
	interval time.Duration

	running atomic.Bool
	ticks   atomic.Uint64
}

func NewScheduler(log logging.Logger, node *Node, interval time.Duration) *Scheduler {
	return &Scheduler{log: log, node: node, interval: interval}
}

// Run ticks every interval until [ctx] is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSchedulerRunning
	}
	defer s.running.Store(false)

	ticker := s.node.clock.Ticker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Warn("scheduled commit failed", zap.Error(err))
			}
		}
	}
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

func (s *Scheduler) Tick(ctx context.Context) error {
	defer s.ticks.Inc()

	commits, expired, err := s.node.due(ctx, s.node.clock.Now())
	if err != nil {
		return err
	}
	errs := wrappers.Errs{}
	for _, batch := range batches(commits) {
		errs.Add(s.node.Schedule(ctx, false, batch...))
	}
	for _, batch := range batches(expired) {
		errs.Add(s.node.Schedule(ctx, true, batch...))
	}
	if len(commits)+len(expired) > 0 {
		s.log.Debug("scheduler tick",
			zap.Int("commits", len(commits)),
			zap.Int("expired", len(expired)),
		)
	}
	return errs.Err
}

func batches(addrs []codec.Address) [][]codec.Address {
	var out [][]codec.Address
	for len(addrs) > 0 {
		n := min(len(addrs), magic.MaxScheduled)
		out = append(out, addrs[:n])
		addrs = addrs[n:]
	}
	return out
}
