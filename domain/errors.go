package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups errors by how a caller is expected to react to them
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindCustodian     ErrorKind = "custodian"
	KindInternal      ErrorKind = "internal"
)

// Error is a classified failure with a stable machine-readable code.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of e with err as its cause
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// Authorization
var (
	ErrExpired          = &Error{Kind: KindAuthorization, Code: "EXPIRED", Message: "request timestamp outside the freshness window"}
	ErrInvalidSignature = &Error{Kind: KindAuthorization, Code: "INVALID_SIGNATURE", Message: "signature does not match the claimed identity"}
	ErrUnauthorized     = &Error{Kind: KindAuthorization, Code: "UNAUTHORIZED", Message: "operator credentials required"}
)

// Validation
var (
	ErrValidation     = &Error{Kind: KindValidation, Code: "VALIDATION", Message: "invalid request"}
	ErrBetTooLow      = &Error{Kind: KindValidation, Code: "BET_TOO_LOW", Message: "bet amount is below the minimum"}
	ErrDepositInvalid = &Error{Kind: KindValidation, Code: "DEPOSIT_NOT_VERIFIED", Message: "funding transfer could not be verified"}
)

// State
var (
	ErrNotFound          = &Error{Kind: KindState, Code: "NOT_FOUND", Message: "not found"}
	ErrWrongStatus       = &Error{Kind: KindState, Code: "WRONG_STATUS", Message: "operation not allowed in the current challenge status"}
	ErrDeadlinePassed    = &Error{Kind: KindState, Code: "DEADLINE_PASSED", Message: "challenge deadline has passed"}
	ErrCutoffPassed      = &Error{Kind: KindState, Code: "CUTOFF_PASSED", Message: "cash-out window has closed"}
	ErrAlreadyClaimed    = &Error{Kind: KindState, Code: "ALREADY_CLAIMED", Message: "payout already claimed"}
	ErrAlreadyCashedOut  = &Error{Kind: KindState, Code: "ALREADY_CASHED_OUT", Message: "bet already cashed out"}
	ErrNotAWinner        = &Error{Kind: KindState, Code: "NOT_A_WINNER", Message: "no winning bet for this participant"}
	ErrNotTheCreator     = &Error{Kind: KindState, Code: "NOT_THE_CREATOR", Message: "only the challenge creator can claim the creator fee"}
	ErrNotTheCompleter   = &Error{Kind: KindState, Code: "NOT_THE_COMPLETER", Message: "only the submitter of the winning proof can claim the completer reward"}
	ErrEmptyPool         = &Error{Kind: KindState, Code: "EMPTY_POOL", Message: "pool is empty"}
	ErrNothingToPay      = &Error{Kind: KindState, Code: "NOTHING_TO_PAY", Message: "payout rounds down to zero"}
	ErrClaimInProgress   = &Error{Kind: KindState, Code: "CLAIM_IN_PROGRESS", Message: "a transfer for this claim is still being resolved"}
	ErrCashOutPending    = &Error{Kind: KindState, Code: "CASHOUT_PENDING", Message: "a cash-out on this challenge is still in flight"}
	ErrDuplicateDeposit  = &Error{Kind: KindState, Code: "DUPLICATE_DEPOSIT", Message: "funding transfer already credited to another bet"}
	ErrClaimNotResolving = &Error{Kind: KindState, Code: "CLAIM_NOT_OUTSTANDING", Message: "claim has no outstanding transfer"}
)

// Custodian
var (
	ErrTransferFailed     = &Error{Kind: KindCustodian, Code: "TRANSFER_FAILED", Message: "custodian rejected the transfer"}
	ErrTransferUnknown    = &Error{Kind: KindCustodian, Code: "TRANSFER_UNKNOWN", Message: "transfer outcome unknown; it will be resolved before any retry"}
	ErrPayoutUnrecorded   = &Error{Kind: KindCustodian, Code: "PAYOUT_UNRECORDED", Message: "transfer executed but could not be recorded; it will be reconciled"}
	ErrCustodianUnhealthy = &Error{Kind: KindCustodian, Code: "CUSTODIAN_UNAVAILABLE", Message: "custodian unavailable"}
)

// NewValidationError builds a validation error with a specific message
func NewValidationError(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

// KindOf reports the kind of the first classified error in err's chain
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the first classified error in err's chain
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
