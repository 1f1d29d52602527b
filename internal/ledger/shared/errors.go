package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnbalanced indicates debit != credit on a posting attempt.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrPeriodClosed indicates a write dated inside a closed period.
	ErrPeriodClosed = errors.New("ledger: period is closed")
	// ErrOverlappingPeriod indicates a close request intersecting an existing closed range.
	ErrOverlappingPeriod = errors.New("ledger: period overlaps a closed range")
	// ErrDuplicateCode indicates a GL code that already exists for the client.
	ErrDuplicateCode = errors.New("ledger: gl code already exists")
	// ErrUnknownParent indicates a parent code that does not resolve.
	ErrUnknownParent = errors.New("ledger: parent account not found")
	// ErrOrphanGLCode indicates a posted line whose code has no account.
	ErrOrphanGLCode = errors.New("ledger: gl code has no account")
	// ErrAccountInactive indicates a posting to a deactivated account.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrNotFound indicates a missing entity.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInvalidStatus indicates an action not allowed in the current status.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("ledger: validation failed")
)

// UnbalancedError carries the exact debit minus credit difference so
// callers can show it to the user.
type UnbalancedError struct {
	Difference decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("ledger: journal lines must balance (difference %s)", e.Difference.String())
}

// Is lets errors.Is(err, ErrUnbalanced) match.
func (e *UnbalancedError) Is(target error) bool {
	return target == ErrUnbalanced
}

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
