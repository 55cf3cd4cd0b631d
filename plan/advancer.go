// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package plan

import (
	"context"
	"time"

	"github.com/raulk/clock"
)

// Ticker is implemented by [rollup.Scheduler].
type Ticker interface {
	Tick(ctx context.Context) error
}

// MockAdvancer advances a mock clock and runs one scheduler tick.
type MockAdvancer struct {
	Clock     *clock.Mock
	Scheduler Ticker
}

func (m *MockAdvancer) Advance(ctx context.Context, d time.Duration) error {
	m.Clock.Add(d)
	return m.Scheduler.Tick(ctx)
}
