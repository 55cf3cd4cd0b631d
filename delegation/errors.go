// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delegation

import "errors"

var (
	ErrDelegationConflict        = errors.New("account is already delegated")
	ErrInvalidDelegationAccounts = errors.New("invalid delegation accounts")
	ErrDelegationNotFound        = errors.New("delegation record not found")
	ErrNotAssigned               = errors.New("account is not assigned to the delegation program")
	ErrUnauthorized              = errors.New("signer is not the delegation authority")
	ErrStaleNonce                = errors.New("commit nonce is not increasing")
	ErrNotUndelegatable          = errors.New("account is not undelegatable yet")
)
