// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package plan_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/plan"
	"github.com/ava-labs/hypercounter/rpc"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
	"github.com/ava-labs/hypercounter/vm/vmtest"
)

var (
	_ plan.Counter = (*client.Client)(nil)
	_ plan.Counter = (*rpc.JSONRPCClient)(nil)
)

func TestParse(t *testing.T) {
	require := require.New(t)

	p, err := plan.Parse([]byte(`
name: parse
steps:
  - op: initialize
  - op: advance
    duration: 1m30s
    expect:
      base: 0
      delegated: false
`))
	require.NoError(err)
	require.Equal("parse", p.Name)
	require.Len(p.Steps, 2)
	require.Equal("initialize", p.Steps[0].String())
	require.Equal(90*time.Second, p.Steps[1].Duration)
	require.NotNil(p.Steps[1].Expect.Base)
	require.Zero(*p.Steps[1].Expect.Base)
	require.False(*p.Steps[1].Expect.Delegated)
	require.Nil(p.Steps[1].Expect.Rollup)

	_, err = plan.Parse([]byte(`{"name": "json", "steps": [{"op": "delegate", "expect": {"error": "any"}}]}`))
	require.NoError(err)

	_, err = plan.Parse([]byte("name: empty\n"))
	require.ErrorIs(err, plan.ErrEmptyPlan)

	_, err = plan.Parse([]byte("steps:\n  - op: decrement\n"))
	require.ErrorIs(err, plan.ErrUnknownOp)

	_, err = plan.Parse([]byte("steps:\n  - op: initialize\n    extra: true\n"))
	require.Error(err)
}

func TestRunLifecycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	p, err := plan.Load(filepath.Join("..", "cmd", "counter-cli", "plans", "lifecycle.yaml"))
	require.NoError(err)

	v := vmtest.New(t, vm.NewConfig())
	r := plan.NewRunner(logging.NoLog{}, v.Client(), &plan.MockAdvancer{
		Clock:     v.Clock,
		Scheduler: v.Scheduler(),
	})
	report, err := r.Run(ctx, p, v.Payer)
	require.NoError(err)
	require.True(report.Passed)
	require.Len(report.Steps, len(p.Steps))
	for _, step := range report.Steps {
		require.True(step.Passed, step.Step)
	}
	require.Equal("rollup", report.Steps[5].Layer)
	require.Equal("base-ledger", report.Steps[9].Layer)
}

func TestRunStopsOnFailure(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	p, err := plan.Parse([]byte(`
name: failing
steps:
  - op: initialize
  - name: wrong count
    op: increment
    expect:
      base: 7
  - op: increment
`))
	require.NoError(err)

	v := vmtest.New(t, vm.NewConfig())
	report, err := plan.NewRunner(logging.NoLog{}, v.Client(), nil).Run(ctx, p, v.Payer)
	require.ErrorIs(err, plan.ErrExpectationFailed)
	require.False(report.Passed)
	require.Len(report.Steps, 2)
	require.Equal("wrong count", report.Steps[1].Step)
	require.Equal("base count 1, expected 7", report.Steps[1].Failure)
	require.Contains(report.String(), "FAIL: base count 1, expected 7")
	require.Contains(report.String(), `plan "failing" failed`)
}

func TestRunExpectedErrors(t *testing.T) {
	tests := []struct {
		name   string
		plan   string
		failed bool
	}{
		{
			name: "matching error",
			plan: "steps:\n  - op: increment\n    expect:\n      error: not initialized\n",
		},
		{
			name: "any error",
			plan: "steps:\n  - op: delegate\n    expect:\n      error: any\n",
		},
		{
			name:   "unexpected error",
			plan:   "steps:\n  - op: increment\n",
			failed: true,
		},
		{
			name:   "missing error",
			plan:   "steps:\n  - op: initialize\n    expect:\n      error: any\n",
			failed: true,
		},
		{
			name:   "advance without advancer",
			plan:   "steps:\n  - op: advance\n    duration: 1s\n",
			failed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			p, err := plan.Parse([]byte(tt.plan))
			require.NoError(err)

			v := vmtest.New(t, vm.NewConfig())
			_, err = plan.NewRunner(logging.NoLog{}, v.Client(), nil).Run(context.Background(), p, v.Payer)
			if tt.failed {
				require.ErrorIs(err, plan.ErrExpectationFailed)
				return
			}
			require.NoError(err)
		})
	}
}

func TestRunRemote(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	v := vmtest.New(t, vm.NewConfig())
	handler, err := rpc.NewJSONRPCHandler(rpc.Name, rpc.NewJSONRPCServer(logging.NoLog{}, trace.Noop("test"), v.VM))
	require.NoError(err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	b, err := os.ReadFile(filepath.Join("..", "cmd", "counter-cli", "plans", "lifecycle.yaml"))
	require.NoError(err)
	p, err := plan.Parse(b)
	require.NoError(err)

	// The remote runner cannot move the server clock, so the lifecycle
	// stops at the scheduled commit.
	report, err := plan.NewRunner(logging.NoLog{}, rpc.NewJSONRPCClient(srv.URL), nil).Run(ctx, p, v.Payer)
	require.ErrorIs(err, plan.ErrExpectationFailed)
	require.Len(report.Steps, 7)
	require.Contains(report.Steps[6].Failure, plan.ErrUnsupportedOp.Error())
	require.Equal(uint64(2), report.Steps[6].Counter.Rollup)
}
