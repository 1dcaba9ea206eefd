/*
errors.go - Centralized error types for the points engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Business-rule failures - expected, returned to callers as typed results
     (insufficient points, unknown account, invalid amount)
  2. Invariant violations - a balance that disagrees with its transaction
     history. Not recoverable locally; the in-flight operation must abort.

USAGE:
  if errors.Is(err, ledger.ErrInsufficientPoints) {
      // expected business condition, tell the clinic to recharge
  }

SEE ALSO:
  - balance.go: produces these errors
  - api: maps them onto HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientPoints is returned when a debit exceeds the available
	// balance. This is an expected, recoverable business condition.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidAmount is returned for zero or negative credit/debit amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountExists is returned when creating an account whose username
	// is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvariantViolation is returned when a stored balance disagrees with
	// the transaction history, or a computed balance is negative. This is an
	// internal fault, never a user-facing condition.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientPointsError provides details about a balance shortage.
type InsufficientPointsError struct {
	Account   AccountRef
	Available int64
	Requested int64
	Shortfall int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for %s: available %d, requested %d, shortfall %d",
		e.Account, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// InvariantViolationError reports a balance that cannot be reconciled with
// its transaction history. Callers must treat this as fatal and must never
// silently correct the stored balance.
type InvariantViolationError struct {
	AccountAffected AccountRef
	StoredBalance   int64
	ComputedBalance int64
	Detail          string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("ledger invariant violated for %s: stored %d, computed %d (%s)",
		e.AccountAffected, e.StoredBalance, e.ComputedBalance, e.Detail)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a business-rule failure the
// caller can act on, as opposed to a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAccountExists)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsInvariantViolation returns true for internal ledger corruption. These
// must surface as 5xx-equivalents and be logged loudly.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
