// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"strings"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/counter"
	"github.com/ava-labs/hypercounter/delegation"
	"github.com/ava-labs/hypercounter/magic"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/runtime"
)

// knownErrors are restored from the message returned by the server.
var knownErrors = []error{
	rollup.ErrCommitFailed,
	rollup.ErrAccountNotTracked,
	counter.ErrAlreadyInitialized,
	counter.ErrNotInitialized,
	counter.ErrOverflow,
	magic.ErrNotDelegated,
	magic.ErrNoAccounts,
	magic.ErrInvalidContext,
	magic.ErrIllegalCaller,
	magic.ErrTooManyScheduled,
	delegation.ErrDelegationConflict,
	delegation.ErrInvalidDelegationAccounts,
	codec.ErrAddressMismatch,
	delegation.ErrDelegationNotFound,
	delegation.ErrNotAssigned,
	delegation.ErrUnauthorized,
	delegation.ErrStaleNonce,
	delegation.ErrNotUndelegatable,
	runtime.ErrInsufficientRent,
	runtime.ErrInsufficientFunds,
	runtime.ErrNoInstructions,
	runtime.ErrTooManyInstructions,
	runtime.ErrProgramNotFound,
	runtime.ErrMissingSignature,
	runtime.ErrNotEnoughAccountKeys,
	runtime.ErrAccountNotProvided,
	runtime.ErrAccountNotWritable,
	runtime.ErrAccountNotFound,
	runtime.ErrAccountAlreadyInUse,
	runtime.ErrIllegalOwner,
	runtime.ErrAccountNotDelegated,
	runtime.ErrPrivilegeEscalation,
	runtime.ErrCallDepthExceeded,
	runtime.ErrInvalidInstructionData,
	runtime.ErrUnknownInstruction,
	runtime.ErrInvalidAccountData,
	runtime.ErrAccountDataTooLarge,
	runtime.ErrInvalidCustody,
}

// remoteError carries the message of a server error and the sentinels
// found in it.
type remoteError struct {
	msg   string
	known []error
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() []error {
	return e.known
}

// parseError restores the sentinels of an error returned by the server so
// callers can use errors.Is. A sentinel whose message is only part of a
// longer matched one is skipped.
func parseError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var matched []error
	for _, known := range knownErrors {
		if strings.Contains(msg, known.Error()) {
			matched = append(matched, known)
		}
	}
	var restored []error
	for _, known := range matched {
		if !shadowed(known, matched) {
			restored = append(restored, known)
		}
	}
	if len(restored) == 0 {
		return err
	}
	return &remoteError{msg: msg, known: restored}
}

func shadowed(err error, matched []error) bool {
	for _, other := range matched {
		if other != err && strings.Contains(other.Error(), err.Error()) {
			return true
		}
	}
	return false
}
