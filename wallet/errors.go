/*
errors.go - Centralized error types for the wallet ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Operation errors - Insufficient funds, malformed input
  2. Persistence errors - Snapshot decode failures (recovered locally)
  3. Integrity errors - Stored vs computed balance mismatch (diagnostic)

PROPAGATION POLICY:
  An idempotency duplicate is NOT an error: the prior transaction is
  returned unchanged. All other mutating-operation failures leave the
  ledger state untouched.

SEE ALSO:
  - wallet.go: Raises these errors
  - snapshot.go: Raises ErrSnapshotDecode
*/
package wallet

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	// Recoverable by the caller (prompt to top up). No state is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive amounts. A caller
	// contract violation, not a runtime condition.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrEmptyReference is returned when the idempotency reference is empty.
	ErrEmptyReference = errors.New("empty transaction reference")

	// ErrSnapshotDecode is returned when persisted state is corrupt or
	// schema-incompatible. Recovered locally by falling back to seed state;
	// never propagated to callers as fatal.
	ErrSnapshotDecode = errors.New("snapshot decode failed")

	// ErrIntegrityViolation is returned when the stored balance disagrees
	// with the balance recomputed from history after the one-time heal has
	// already run. A data bug: logged loudly, stored balance is trusted.
	ErrIntegrityViolation = errors.New("ledger integrity violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError details a balance shortage, in minor units.
type InsufficientFundsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Requested - e.Available
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IntegrityError details a stored vs computed balance mismatch, in minor units.
type IntegrityError struct {
	Stored   int64
	Computed int64
}

func (e *IntegrityError) Drift() int64 {
	return e.Stored - e.Computed
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation: stored %d, computed %d, drift %d",
		e.Stored, e.Computed, e.Drift())
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a recoverable condition the caller should act on.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptyReference)
}
