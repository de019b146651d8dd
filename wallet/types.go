/*
Package wallet provides the single-user money ledger.

PURPOSE:
  This package contains the data model and operations for a local wallet:
  an integer balance in minor currency units, a single currency code, and
  an ordered history of transactions. The balance is mutated incrementally
  for O(1) reads, but can always be recomputed from the history - the two
  must never disagree.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: Immutable record of one balance-affecting event
  - TransactionType: Categorizes sign and purpose (deposit vs payment, ...)
  - TransactionStatus: Only completed transactions affect the balance
  - SignedMinorUnits: The single rule mapping a transaction to a balance delta

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never edited after creation
  2. Precision: decimal.Decimal for major-unit amounts, int64 for minor units
  3. Idempotency: PaymentTransactionID collapses retried operations
  4. Auditability: BalanceBefore/BalanceAfter snapshot every mutation

SEE ALSO:
  - money.go: Centralized major/minor unit conversion
  - wallet.go: The aggregate and its operations
  - snapshot.go: Persisted state layout
*/
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION TYPE - Categorizes sign and purpose
// =============================================================================

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"    // Wallet top-up
	TxPayment    TransactionType = "payment"    // Booking charge (incl. extensions)
	TxRefund     TransactionType = "refund"     // Booking refund
	TxWithdrawal TransactionType = "withdrawal" // Payout to external account
	TxBonus      TransactionType = "bonus"      // Promotional credit
	TxPenalty    TransactionType = "penalty"    // No-show fee, late cancellation
)

// IsCredit reports whether the type increases the balance.
func (t TransactionType) IsCredit() bool {
	return t == TxDeposit || t == TxRefund || t == TxBonus
}

// IsDebit reports whether the type decreases the balance.
func (t TransactionType) IsDebit() bool {
	return t == TxPayment || t == TxWithdrawal || t == TxPenalty
}

func (t TransactionType) Valid() bool {
	return t.IsCredit() || t.IsDebit()
}

// =============================================================================
// TRANSACTION STATUS - Only completed transactions count
// =============================================================================

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// =============================================================================
// TRANSACTION - Immutable record of one balance-affecting event
// =============================================================================

// Transaction records a single balance change.
//
// PaymentTransactionID is the idempotency key: a caller-supplied external
// reference (booking reference, booking reference + extension suffix, top-up
// reference). At most one completed transaction may exist per key.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"` // major units, non-negative
	Currency    string            `json:"currency"`
	Description string            `json:"description"`

	// Correlation to the booking/venue that caused this transaction.
	// Not required for ledger integrity, required for per-booking totals.
	BookingID string `json:"booking_id,omitempty"`
	GymID     string `json:"gym_id,omitempty"`
	GymName   string `json:"gym_name,omitempty"`

	PaymentMethod        string `json:"payment_method,omitempty"`
	PaymentTransactionID string `json:"payment_transaction_id"`

	// Balance snapshot around this transaction, in major units, for audit.
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`

	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// SignedMinorUnits returns the balance delta this transaction contributes,
// in minor units: positive for credit types, negative for debit types, zero
// for anything not completed. This is the ONLY rule used for both the
// incremental balance updates and the integrity recomputation.
func (tx Transaction) SignedMinorUnits() int64 {
	if tx.Status != StatusCompleted {
		return 0
	}
	m := MinorUnits(tx.Amount)
	if tx.Type.IsDebit() {
		return -m
	}
	return m
}
