// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package magic

import "errors"

var (
	ErrNotDelegated     = errors.New("account is not delegated to the rollup")
	ErrNoAccounts       = errors.New("no accounts to commit")
	ErrInvalidContext   = errors.New("invalid magic context")
	ErrIllegalCaller    = errors.New("caller does not own the committed account")
	ErrTooManyScheduled = errors.New("too many scheduled commits")
)
