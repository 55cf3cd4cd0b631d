// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package plan runs scripted counter scenarios and checks every step
// against its expected outcome.
package plan

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ava-labs/hypercounter/codec"
)

const (
	OpInitialize             = "initialize"
	OpIncrement              = "increment"
	OpIncrementBase          = "increment-base"
	OpIncrementRollup        = "increment-rollup"
	OpDelegate               = "delegate"
	OpIncrementAndCommit     = "increment-and-commit"
	OpUndelegate             = "undelegate"
	OpIncrementAndUndelegate = "increment-and-undelegate"
	OpCheck                  = "check"
	// OpAdvance moves the clock forward by [Step.Duration] and lets the
	// rollup commit or undelegate what became due.
	OpAdvance = "advance"
)

var (
	ErrUnknownOp         = errors.New("unknown op")
	ErrUnsupportedOp     = errors.New("op not supported by this runner")
	ErrExpectationFailed = errors.New("expectation failed")
	ErrEmptyPlan         = errors.New("plan has no steps")
)

// Expect is checked after a step runs. Unset fields are not checked.
type Expect struct {
	// Error is a substring of the error returned by the step. "any" accepts
	// every error. Steps without an expected error must succeed.
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
	Base      *uint64 `json:"base,omitempty" yaml:"base,omitempty"`
	Rollup    *uint64 `json:"rollup,omitempty" yaml:"rollup,omitempty"`
	Delegated *bool   `json:"delegated,omitempty" yaml:"delegated,omitempty"`
}

type Step struct {
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Op       string        `json:"op" yaml:"op"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Expect   Expect        `json:"expect,omitempty" yaml:"expect,omitempty"`
}

func (s *Step) String() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Op
}

type Plan struct {
	Name string `json:"name" yaml:"name"`
	// Payer signs and pays for every step. A fresh key is funded when
	// running in process and the payer is unset.
	Payer codec.Address `json:"payer,omitempty" yaml:"payer,omitempty"`
	Steps []*Step       `json:"steps" yaml:"steps"`
}

// Parse decodes a YAML or JSON plan.
func Parse(b []byte) (*Plan, error) {
	var p Plan
	if err := yaml.UnmarshalStrict(b, &p); err != nil {
		return nil, err
	}
	if len(p.Steps) == 0 {
		return nil, ErrEmptyPlan
	}
	for i, step := range p.Steps {
		switch step.Op {
		case OpInitialize, OpIncrement, OpIncrementBase, OpIncrementRollup,
			OpDelegate, OpIncrementAndCommit, OpUndelegate,
			OpIncrementAndUndelegate, OpCheck, OpAdvance:
		default:
			return nil, fmt.Errorf("%w: step %d: %q", ErrUnknownOp, i, step.Op)
		}
	}
	return &p, nil
}

func Load(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return p, nil
}
