// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import "errors"

var (
	ErrCommitFailed       = errors.New("base ledger rejected scheduled commits")
	ErrMetadataNotFound   = errors.New("delegation metadata not found on base ledger")
	ErrSchedulerRunning   = errors.New("scheduler already running")
	ErrInvalidValidator   = errors.New("validator address is empty")
	ErrAccountNotTracked  = errors.New("account is not delegated to this rollup")
	ErrInvalidHistorySize = errors.New("history size must be greater than 0")
)
