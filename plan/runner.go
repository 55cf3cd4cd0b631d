// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package plan

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/runtime"
)

// Counter is implemented by [client.Client] and [rpc.JSONRPCClient].
type Counter interface {
	Initialize(ctx context.Context, user codec.Address) (*client.Receipt, error)
	Increment(ctx context.Context) (*client.Receipt, error)
	IncrementOn(ctx context.Context, layer runtime.Custody) (*client.Receipt, error)
	Delegate(ctx context.Context, payer codec.Address) (*client.Receipt, error)
	IncrementAndCommit(ctx context.Context, payer codec.Address) (*client.Receipt, error)
	Undelegate(ctx context.Context, payer codec.Address) (*client.Receipt, error)
	IncrementAndUndelegate(ctx context.Context, payer codec.Address) (*client.Receipt, error)
	Counter(ctx context.Context) (*client.CounterState, error)
}

// Advancer moves time forward. It is only available in process.
type Advancer interface {
	Advance(ctx context.Context, d time.Duration) error
}

type StepResult struct {
	Step    string               `json:"step"`
	Op      string               `json:"op"`
	Layer   string               `json:"layer,omitempty"`
	Error   string               `json:"error,omitempty"`
	Counter *client.CounterState `json:"counter"`
	Passed  bool                 `json:"passed"`
	Failure string               `json:"failure,omitempty"`
}

type Report struct {
	Plan   string        `json:"plan"`
	Payer  codec.Address `json:"payer"`
	Steps  []*StepResult `json:"steps"`
	Passed bool          `json:"passed"`
}

func (r *Report) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tLAYER\tBASE\tROLLUP\tDELEGATED\tRESULT")
	for _, s := range r.Steps {
		outcome := "ok"
		if !s.Passed {
			outcome = "FAIL: " + s.Failure
		}
		layer := s.Layer
		if layer == "" {
			layer = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n",
			s.Step, layer, s.Counter.Base, s.Counter.Rollup, s.Counter.Delegated, outcome)
	}
	_ = w.Flush()
	status := "passed"
	if !r.Passed {
		status = "failed"
	}
	fmt.Fprintf(&b, "plan %q %s (payer %s)", r.Plan, status, r.Payer)
	return b.String()
}

type Runner struct {
	log      logging.Logger
	counter  Counter
	advancer Advancer
}

// NewRunner returns a runner over [counter]. [advancer] may be nil, in
// which case plans with advance steps fail.
func NewRunner(log logging.Logger, counter Counter, advancer Advancer) *Runner {
	return &Runner{log: log, counter: counter, advancer: advancer}
}

// Run executes [p] with [payer] until a step fails its expectation. The
// returned error wraps [ErrExpectationFailed] in that case.
func (r *Runner) Run(ctx context.Context, p *Plan, payer codec.Address) (*Report, error) {
	report := &Report{Plan: p.Name, Payer: payer}
	for _, step := range p.Steps {
		result, err := r.step(ctx, step, payer)
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, result)
		if !result.Passed {
			r.log.Warn("step failed",
				zap.String("step", result.Step),
				zap.String("failure", result.Failure),
			)
			return report, fmt.Errorf("%w: %s: %s", ErrExpectationFailed, result.Step, result.Failure)
		}
		r.log.Info("step passed",
			zap.String("step", result.Step),
			zap.String("layer", result.Layer),
		)
	}
	report.Passed = true
	return report, nil
}

func (r *Runner) exec(ctx context.Context, step *Step, payer codec.Address) (*client.Receipt, error) {
	switch step.Op {
	case OpInitialize:
		return r.counter.Initialize(ctx, payer)
	case OpIncrement:
		return r.counter.Increment(ctx)
	case OpIncrementBase:
		return r.counter.IncrementOn(ctx, runtime.CustodyBaseLedger)
	case OpIncrementRollup:
		return r.counter.IncrementOn(ctx, runtime.CustodyRollup)
	case OpDelegate:
		return r.counter.Delegate(ctx, payer)
	case OpIncrementAndCommit:
		return r.counter.IncrementAndCommit(ctx, payer)
	case OpUndelegate:
		return r.counter.Undelegate(ctx, payer)
	case OpIncrementAndUndelegate:
		return r.counter.IncrementAndUndelegate(ctx, payer)
	case OpCheck:
		return nil, nil
	case OpAdvance:
		if r.advancer == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOp, step.Op)
		}
		return nil, r.advancer.Advance(ctx, step.Duration)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
	}
}

// step runs [step]. Only failures to observe the outcome are returned as
// errors; failed expectations are reported in the result.
func (r *Runner) step(ctx context.Context, step *Step, payer codec.Address) (*StepResult, error) {
	result := &StepResult{Step: step.String(), Op: step.Op}
	receipt, err := r.exec(ctx, step, payer)
	if receipt != nil {
		result.Layer = receipt.Layer.String()
	}
	if err != nil {
		result.Error = err.Error()
	}
	result.Counter, err = r.counter.Counter(ctx)
	if err != nil {
		return nil, err
	}
	result.Failure = check(&step.Expect, result)
	result.Passed = result.Failure == ""
	return result, nil
}

func check(expect *Expect, result *StepResult) string {
	switch {
	case expect.Error == "" && result.Error != "":
		return "unexpected error: " + result.Error
	case expect.Error != "" && result.Error == "":
		return fmt.Sprintf("expected error %q", expect.Error)
	case expect.Error != "" && expect.Error != "any" && !strings.Contains(result.Error, expect.Error):
		return fmt.Sprintf("expected error %q, got %q", expect.Error, result.Error)
	}
	state := result.Counter
	if expect.Base != nil && state.Base != *expect.Base {
		return fmt.Sprintf("base count %d, expected %d", state.Base, *expect.Base)
	}
	if expect.Rollup != nil && state.Rollup != *expect.Rollup {
		return fmt.Sprintf("rollup count %d, expected %d", state.Rollup, *expect.Rollup)
	}
	if expect.Delegated != nil && state.Delegated != *expect.Delegated {
		return fmt.Sprintf("delegated %t, expected %t", state.Delegated, *expect.Delegated)
	}
	return ""
}
