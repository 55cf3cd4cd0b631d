// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import "errors"

var (
	ErrAlreadyInitialized = errors.New("counter already initialized")
	ErrNotInitialized     = errors.New("counter not initialized")
	ErrOverflow           = errors.New("counter overflow")
)
