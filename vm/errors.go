// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import "errors"

var (
	ErrInvalidSchedulerInterval = errors.New("scheduler interval must be positive")
	ErrWrongValidator           = errors.New("delegations must target the local validator")
)
