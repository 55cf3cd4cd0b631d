// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import "errors"

var (
	ErrNoInstructions          = errors.New("transaction has no instructions")
	ErrTooManyInstructions     = errors.New("too many instructions")
	ErrProgramNotFound         = errors.New("program not found")
	ErrDuplicateProgram        = errors.New("program already registered")
	ErrMissingSignature        = errors.New("missing required signature")
	ErrNotEnoughAccountKeys    = errors.New("not enough account keys")
	ErrAccountNotProvided      = errors.New("account not provided to instruction")
	ErrAccountNotWritable      = errors.New("account not writable")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountAlreadyInUse     = errors.New("account already in use")
	ErrIllegalOwner            = errors.New("account not owned by program")
	ErrAccountNotDelegated     = errors.New("account is not writable in this execution context")
	ErrPrivilegeEscalation     = errors.New("cross-program invocation escalates privileges")
	ErrCallDepthExceeded       = errors.New("cross-program invocation depth exceeded")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientRent        = errors.New("insufficient funds for rent")
	ErrInvalidInstructionData  = errors.New("invalid instruction data")
	ErrUnknownInstruction      = errors.New("unknown instruction")
	ErrInvalidAccountData      = errors.New("invalid account data")
	ErrAccountDataTooLarge     = errors.New("account data too large")
	ErrInvalidCustody          = errors.New("invalid custody")
	ErrCloseRecipientIsAccount = errors.New("close recipient is the closed account")
)
