/*
snapshot.go - Persisted state layout and seed data

PURPOSE:
  Serializes the wallet to a single JSON record and reads it back.
  The snapshot is the full state: balance in minor units, currency, and
  the complete transaction history, timestamps in RFC 3339.

BACKWARD COMPATIBILITY:
  Older snapshots carried the balance in major units under "balance"
  (a decimal number) instead of "balance_minor". Decode accepts both and
  reports which form was found, so the caller can route legacy snapshots
  through the one-time integrity heal.

SEEDING:
  When no persisted state exists the wallet starts from a fixed demo
  history (top-up, booking payment, top-up). The demo transactions sum to
  the seed balance by construction, so seeding can never introduce an
  integrity mismatch.

SEE ALSO:
  - store.go: Where the snapshot is written
  - wallet.go: Load/heal logic
*/
package wallet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const snapshotVersion = 1

// Snapshot is the persisted wallet state.
type Snapshot struct {
	BalanceMinor int64
	Currency     string
	Transactions []Transaction // newest first
}

type snapshotJSON struct {
	Version      int              `json:"version"`
	BalanceMinor *int64           `json:"balance_minor,omitempty"`
	BalanceMajor *decimal.Decimal `json:"balance,omitempty"` // legacy, major units
	Currency     string           `json:"currency"`
	Transactions []Transaction    `json:"transactions"`
}

// EncodeSnapshot serializes a snapshot in the current (v1) layout.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	doc := snapshotJSON{
		Version:      snapshotVersion,
		BalanceMinor: &s.BalanceMinor,
		Currency:     s.Currency,
		Transactions: s.Transactions,
	}
	return json.Marshal(doc)
}

// DecodeSnapshot parses a persisted snapshot. legacy=true means the record
// carried a major-unit balance (pre-migration layout); such snapshots may
// hold an inconsistent balance and must go through the one-time heal check.
func DecodeSnapshot(data []byte) (s Snapshot, legacy bool, err error) {
	var doc snapshotJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrSnapshotDecode, err)
	}

	s.Currency = doc.Currency
	s.Transactions = doc.Transactions

	switch {
	case doc.BalanceMinor != nil:
		s.BalanceMinor = *doc.BalanceMinor
	case doc.BalanceMajor != nil:
		s.BalanceMinor = MinorUnits(*doc.BalanceMajor)
		legacy = true
	default:
		return Snapshot{}, false, fmt.Errorf("%w: no balance field", ErrSnapshotDecode)
	}

	if s.Currency == "" {
		return Snapshot{}, false, fmt.Errorf("%w: missing currency", ErrSnapshotDecode)
	}
	return s, legacy, nil
}

// =============================================================================
// SEED / DEMO STATE
// =============================================================================

// DemoSeedBalanceMinor is the starting balance when no persisted state
// exists: the sum of the demo transaction history.
const DemoSeedBalanceMinor int64 = 4500

// DemoSnapshot builds the first-run state: a small fixed history whose
// signed amounts sum to DemoSeedBalanceMinor.
func DemoSnapshot(currency string, now time.Time) Snapshot {
	topUp1 := Transaction{
		ID:                   uuid.New().String(),
		Type:                 TxDeposit,
		Amount:               decimal.NewFromInt(50),
		Currency:             currency,
		Description:          "Wallet top-up",
		PaymentMethod:        "card",
		PaymentTransactionID: "SEED-TOPUP-1",
		BalanceBefore:        decimal.Zero,
		BalanceAfter:         decimal.NewFromInt(50),
		Status:               StatusCompleted,
		CreatedAt:            now.Add(-72 * time.Hour),
		ProcessedAt:          now.Add(-72 * time.Hour),
	}
	payment := Transaction{
		ID:                   uuid.New().String(),
		Type:                 TxPayment,
		Amount:               decimal.NewFromInt(25),
		Currency:             currency,
		Description:          "Booking at Iron Loft Gym",
		BookingID:            "booking_SEED-B1",
		GymID:                "gym-001",
		GymName:              "Iron Loft Gym",
		PaymentMethod:        "wallet",
		PaymentTransactionID: "SEED-B1",
		BalanceBefore:        decimal.NewFromInt(50),
		BalanceAfter:         decimal.NewFromInt(25),
		Status:               StatusCompleted,
		CreatedAt:            now.Add(-48 * time.Hour),
		ProcessedAt:          now.Add(-48 * time.Hour),
	}
	topUp2 := Transaction{
		ID:                   uuid.New().String(),
		Type:                 TxDeposit,
		Amount:               decimal.NewFromInt(20),
		Currency:             currency,
		Description:          "Wallet top-up",
		PaymentMethod:        "card",
		PaymentTransactionID: "SEED-TOPUP-2",
		BalanceBefore:        decimal.NewFromInt(25),
		BalanceAfter:         decimal.NewFromInt(45),
		Status:               StatusCompleted,
		CreatedAt:            now.Add(-24 * time.Hour),
		ProcessedAt:          now.Add(-24 * time.Hour),
	}

	return Snapshot{
		BalanceMinor: DemoSeedBalanceMinor,
		Currency:     currency,
		Transactions: []Transaction{topUp2, payment, topUp1}, // newest first
	}
}
