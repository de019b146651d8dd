package wallet_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitpass/wallet-engine/store"
	"github.com/fitpass/wallet-engine/wallet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestWallet(t *testing.T, opts wallet.Options) (*wallet.Wallet, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	w, err := wallet.New(context.Background(), s, opts)
	require.NoError(t, err)
	return w, s
}

// topUpTo raises the balance to exactly target minor units.
func topUpTo(t *testing.T, w *wallet.Wallet, target int64, ref string) {
	t.Helper()
	delta := target - w.Balance()
	require.Positive(t, delta, "target must exceed current balance")
	_, err := w.TopUp(context.Background(), delta, ref, "card")
	require.NoError(t, err)
	require.Equal(t, target, w.Balance())
}

// =============================================================================
// SEEDING
// =============================================================================

func TestNew_SeedsDemoState(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Creating a wallet
	// THEN: The demo state is seeded, consistent by construction

	w, s := newTestWallet(t, wallet.Options{})

	assert.Equal(t, wallet.DemoSeedBalanceMinor, w.Balance())
	assert.Equal(t, "EUR", w.Currency())
	assert.Len(t, w.Transactions(), 3)
	assert.Equal(t, w.Balance(), w.ComputedBalance())
	assert.NoError(t, w.VerifyIntegrity(context.Background()))

	// Seed state is persisted immediately
	_, found, err := s.Get(context.Background(), wallet.SnapshotKey)
	require.NoError(t, err)
	assert.True(t, found, "seed state should be saved on first load")
}

func TestNew_CorruptSnapshotFallsBackToSeed(t *testing.T) {
	// GIVEN: A store holding garbage under the snapshot key
	// WHEN: Creating a wallet
	// THEN: Load recovers to the seed state instead of failing

	s := store.NewMemory()
	require.NoError(t, s.Put(context.Background(), wallet.SnapshotKey, []byte("{not json")))

	w, err := wallet.New(context.Background(), s, wallet.Options{})
	require.NoError(t, err, "corrupt snapshots must not be fatal")

	assert.Equal(t, wallet.DemoSeedBalanceMinor, w.Balance())
	assert.Len(t, w.Transactions(), 3)
}

// =============================================================================
// TOP-UP
// =============================================================================

func TestTopUp_IncreasesBalance(t *testing.T) {
	// GIVEN: Seed balance of 45.00
	// WHEN: Topping up 20.00 with reference WL-001
	// THEN: Balance becomes 65.00

	w, _ := newTestWallet(t, wallet.Options{})

	tx, err := w.TopUp(context.Background(), 2000, "WL-001", "card")
	require.NoError(t, err)

	assert.EqualValues(t, 6500, w.Balance())
	assert.Equal(t, wallet.TxDeposit, tx.Type)
	assert.Equal(t, wallet.StatusCompleted, tx.Status)
	assert.Equal(t, "WL-001", tx.PaymentTransactionID)
	assert.Equal(t, "45.00", tx.BalanceBefore.StringFixed(2))
	assert.Equal(t, "65.00", tx.BalanceAfter.StringFixed(2))
}

func TestTopUp_DuplicateReference_ReturnsPriorTransaction(t *testing.T) {
	// GIVEN: A top-up already recorded under WL-001
	// WHEN: Submitting the same reference again (double-tap / retry)
	// THEN: The prior transaction is returned and the balance is unchanged

	w, _ := newTestWallet(t, wallet.Options{})

	first, err := w.TopUp(context.Background(), 2000, "WL-001", "card")
	require.NoError(t, err)

	second, err := w.TopUp(context.Background(), 2000, "WL-001", "card")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "duplicate must return the same transaction")
	assert.EqualValues(t, 6500, w.Balance(), "balance must be credited exactly once")
	assert.Len(t, w.Transactions(), 4, "no second deposit recorded")
}

func TestTopUp_RejectsMalformedInput(t *testing.T) {
	w, _ := newTestWallet(t, wallet.Options{})

	_, err := w.TopUp(context.Background(), 0, "WL-001", "card")
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

	_, err = w.TopUp(context.Background(), -100, "WL-001", "card")
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

	_, err = w.TopUp(context.Background(), 100, "", "card")
	assert.ErrorIs(t, err, wallet.ErrEmptyReference)

	assert.Equal(t, wallet.DemoSeedBalanceMinor, w.Balance(), "rejected input must not mutate state")
}

// =============================================================================
// DEBIT
// =============================================================================

func TestDebit_InsufficientFunds_LeavesStateUnchanged(t *testing.T) {
	// GIVEN: Balance of 65.00
	// WHEN: Debiting 85.00 for a booking
	// THEN: Fails with InsufficientFunds; balance and history are untouched

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 6500, "WL-001")
	before := w.Transactions()

	_, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 8500,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
	})

	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	var detail *wallet.InsufficientFundsError
	require.ErrorAs(t, err, &detail)
	assert.EqualValues(t, 6500, detail.Available)
	assert.EqualValues(t, 8500, detail.Requested)
	assert.EqualValues(t, 2000, detail.Shortfall())

	assert.EqualValues(t, 6500, w.Balance())
	assert.Equal(t, len(before), len(w.Transactions()), "no transaction created on failure")
}

func TestDebit_Succeeds(t *testing.T) {
	// GIVEN: Balance of 65.00
	// WHEN: Debiting 20.00 for booking B1 at Flex Gym
	// THEN: Balance becomes 45.00 with one payment linked to booking_B1

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 6500, "WL-001")

	tx, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2000,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
		GymID:       "gym-42",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 4500, w.Balance())
	assert.Equal(t, wallet.TxPayment, tx.Type)
	assert.Equal(t, "booking_B1", tx.BookingID)
	assert.Equal(t, "B1", tx.PaymentTransactionID)
	assert.Equal(t, "Flex Gym", tx.GymName)
	assert.Equal(t, "gym-42", tx.GymID)
}

func TestDebit_DuplicateBookingRef_DebitsOnce(t *testing.T) {
	// GIVEN: A booking already charged under B1
	// WHEN: Submitting the same booking reference again
	// THEN: Exactly one payment exists, the balance is debited once,
	//       and the second call returns the first transaction

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 6500, "WL-001")

	first, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2000,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
	})
	require.NoError(t, err)

	second, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2000,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 4500, w.Balance())

	var payments int
	for _, tx := range w.Transactions() {
		if tx.Type == wallet.TxPayment && tx.BookingID == "booking_B1" {
			payments++
		}
	}
	assert.Equal(t, 1, payments)
}

func TestDebit_ExtensionOverrides_BothApply(t *testing.T) {
	// GIVEN: Booking B1 charged 20.00
	// WHEN: A 5.00 extension is charged with a distinct key override
	// THEN: Both debits apply and the per-booking total covers both

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 6500, "WL-001")

	_, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2000,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
	})
	require.NoError(t, err)

	_, err = w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor:          500,
		BookingRef:           "B1",
		GymName:              "Flex Gym",
		PaymentTransactionID: "B1-ext-30",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 4000, w.Balance())
	assert.EqualValues(t, 2500, w.TotalPaidMinorUnits("booking_B1"))
}

// =============================================================================
// REFUND
// =============================================================================

func TestRefund_CreditsBalance(t *testing.T) {
	// GIVEN: Booking B1 charged 25.00 from a 65.00 balance
	// WHEN: Refunding 25.00 for B1
	// THEN: Balance returns to 65.00, refund recorded under REF-B1

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 6500, "WL-001")
	_, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2500,
		BookingRef:  "B1",
		GymName:     "Flex Gym",
	})
	require.NoError(t, err)
	require.EqualValues(t, 4000, w.Balance())

	tx, err := w.Refund(context.Background(), 2500, "B1", "Flex Gym")
	require.NoError(t, err)

	assert.EqualValues(t, 6500, w.Balance())
	assert.Equal(t, wallet.TxRefund, tx.Type)
	assert.Equal(t, "REF-B1", tx.PaymentTransactionID)
	assert.Equal(t, "booking_B1", tx.BookingID)
}

func TestRefund_Duplicate_CreditsOnce(t *testing.T) {
	// GIVEN: A refund already recorded for B1
	// WHEN: Retrying the refund
	// THEN: The prior refund is returned; the balance is credited once

	w, _ := newTestWallet(t, wallet.Options{})

	first, err := w.Refund(context.Background(), 1000, "B1", "Flex Gym")
	require.NoError(t, err)
	balanceAfter := w.Balance()

	second, err := w.Refund(context.Background(), 1000, "B1", "Flex Gym")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, balanceAfter, w.Balance())
}

// =============================================================================
// PER-BOOKING TOTALS
// =============================================================================

func TestTotalPaid_AggregatesOnlyMatchingPayments(t *testing.T) {
	// GIVEN: Payments for bookings B1 and B2, plus a refund for B1
	// WHEN: Querying the B1 total
	// THEN: Only completed B1 payments count; refunds and B2 are ignored

	w, _ := newTestWallet(t, wallet.Options{})
	topUpTo(t, w, 10000, "WL-001")

	_, err := w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 2000, BookingRef: "B1", GymName: "Flex Gym",
	})
	require.NoError(t, err)
	_, err = w.DebitForBooking(context.Background(), wallet.DebitParams{
		AmountMinor: 3000, BookingRef: "B2", GymName: "Lift House",
	})
	require.NoError(t, err)
	_, err = w.Refund(context.Background(), 500, "B1", "Flex Gym")
	require.NoError(t, err)

	assert.EqualValues(t, 2000, w.TotalPaidMinorUnits("booking_B1"))
	assert.EqualValues(t, 3000, w.TotalPaidMinorUnits("booking_B2"))
	assert.EqualValues(t, 0, w.TotalPaidMinorUnits("booking_B3"))
}

// =============================================================================
// INTEGRITY
// =============================================================================

func TestIntegrity_HoldsAfterEveryOperation(t *testing.T) {
	// GIVEN: The seeded wallet
	// WHEN: Running a mixed sequence of successful operations
	// THEN: Stored balance equals the recomputed balance after each one

	w, _ := newTestWallet(t, wallet.Options{})
	ctx := context.Background()

	check := func(step string) {
		assert.Equal(t, w.ComputedBalance(), w.Balance(), step)
		assert.NoError(t, w.VerifyIntegrity(ctx), step)
	}
	check("seed")

	_, err := w.TopUp(ctx, 2000, "WL-001", "card")
	require.NoError(t, err)
	check("after top-up")

	_, err = w.DebitForBooking(ctx, wallet.DebitParams{
		AmountMinor: 2000, BookingRef: "B1", GymName: "Flex Gym",
	})
	require.NoError(t, err)
	check("after debit")

	_, err = w.DebitForBooking(ctx, wallet.DebitParams{
		AmountMinor: 500, BookingRef: "B1", GymName: "Flex Gym",
		PaymentTransactionID: "B1-ext-30",
	})
	require.NoError(t, err)
	check("after extension debit")

	_, err = w.Refund(ctx, 2500, "B1", "Flex Gym")
	require.NoError(t, err)
	check("after refund")
}

func TestHeal_RunsOnce_WhenEnabled(t *testing.T) {
	// GIVEN: A persisted snapshot whose stored balance disagrees with its history
	// WHEN: Loading with SelfHeal enabled
	// THEN: The balance is healed to the computed value exactly once;
	//       a later mismatch is reported, never re-healed

	ctx := context.Background()
	s := store.NewMemory()

	// Seed a valid state, then tamper with the stored balance.
	_, err := wallet.New(ctx, s, wallet.Options{})
	require.NoError(t, err)
	tamperBalance(t, s, 9999)

	healed, err := wallet.New(ctx, s, wallet.Options{SelfHeal: true})
	require.NoError(t, err)
	assert.Equal(t, wallet.DemoSeedBalanceMinor, healed.Balance(), "balance healed to computed value")
	assert.NoError(t, healed.VerifyIntegrity(ctx))

	flag, found, err := s.Get(ctx, wallet.HealedKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "true", string(flag))

	// Tamper again: the heal must not run a second time.
	tamperBalance(t, s, 123456)
	after, err := wallet.New(ctx, s, wallet.Options{SelfHeal: true})
	require.NoError(t, err)
	assert.EqualValues(t, 123456, after.Balance(), "stored balance trusted after heal already ran")
	assert.ErrorIs(t, after.VerifyIntegrity(ctx), wallet.ErrIntegrityViolation)
}

func TestHeal_Disabled_ReportsWithoutMutating(t *testing.T) {
	// GIVEN: A mismatched snapshot and SelfHeal off (production mode)
	// WHEN: Loading and verifying
	// THEN: The stored balance is kept and the mismatch is reported

	ctx := context.Background()
	s := store.NewMemory()
	_, err := wallet.New(ctx, s, wallet.Options{})
	require.NoError(t, err)
	tamperBalance(t, s, 9999)

	w, err := wallet.New(ctx, s, wallet.Options{})
	require.NoError(t, err)

	assert.EqualValues(t, 9999, w.Balance(), "production must not silently mutate financial state")
	assert.ErrorIs(t, w.VerifyIntegrity(ctx), wallet.ErrIntegrityViolation)

	_, found, err := s.Get(ctx, wallet.HealedKey)
	require.NoError(t, err)
	assert.False(t, found, "heal flag must not be set when healing is disabled")
}

// tamperBalance rewrites the persisted snapshot with a bogus stored balance,
// simulating a pre-migration inconsistency.
func tamperBalance(t *testing.T, s *store.Memory, balanceMinor int64) {
	t.Helper()
	ctx := context.Background()

	raw, found, err := s.Get(ctx, wallet.SnapshotKey)
	require.NoError(t, err)
	require.True(t, found)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["balance_minor"], err = json.Marshal(balanceMinor)
	require.NoError(t, err)

	tampered, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, wallet.SnapshotKey, tampered))
}

// =============================================================================
// PERSISTENCE ROUND-TRIP
// =============================================================================

func TestPersistence_RoundTrip(t *testing.T) {
	// GIVEN: A wallet with post-seed activity
	// WHEN: Loading a fresh wallet from the same store (simulated restart)
	// THEN: Balance, currency, and history are reproduced exactly

	ctx := context.Background()
	s := store.NewMemory()

	w1, err := wallet.New(ctx, s, wallet.Options{})
	require.NoError(t, err)
	_, err = w1.TopUp(ctx, 2000, "WL-001", "card")
	require.NoError(t, err)
	_, err = w1.DebitForBooking(ctx, wallet.DebitParams{
		AmountMinor: 1500, BookingRef: "B1", GymName: "Flex Gym",
	})
	require.NoError(t, err)

	w2, err := wallet.New(ctx, s, wallet.Options{})
	require.NoError(t, err)

	assert.Equal(t, w1.Balance(), w2.Balance())
	assert.Equal(t, w1.Currency(), w2.Currency())

	txs1, txs2 := w1.Transactions(), w2.Transactions()
	require.Equal(t, len(txs1), len(txs2))
	for i := range txs1 {
		assert.Equal(t, txs1[i].ID, txs2[i].ID)
		assert.Equal(t, txs1[i].Type, txs2[i].Type)
		assert.Equal(t, txs1[i].PaymentTransactionID, txs2[i].PaymentTransactionID)
		assert.Equal(t, txs1[i].SignedMinorUnits(), txs2[i].SignedMinorUnits())
		assert.True(t, txs1[i].CreatedAt.Equal(txs2[i].CreatedAt))
	}
	assert.Equal(t, w2.ComputedBalance(), w2.Balance())
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_RestoresDemoDefaults(t *testing.T) {
	// GIVEN: A wallet with extra activity
	// WHEN: Resetting to demo defaults
	// THEN: Seed balance and the 3-transaction demo history are restored

	w, _ := newTestWallet(t, wallet.Options{})
	ctx := context.Background()

	_, err := w.TopUp(ctx, 5000, "WL-001", "card")
	require.NoError(t, err)
	require.NotEqual(t, wallet.DemoSeedBalanceMinor, w.Balance())

	require.NoError(t, w.ResetToDemoDefaults(ctx))

	assert.Equal(t, wallet.DemoSeedBalanceMinor, w.Balance())
	assert.Len(t, w.Transactions(), 3)
	assert.NoError(t, w.VerifyIntegrity(ctx))
}

// =============================================================================
// CLOCK INJECTION
// =============================================================================

func TestTransactions_UseInjectedClock(t *testing.T) {
	fixed := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	s := store.NewMemory()
	w, err := wallet.New(context.Background(), s, wallet.Options{
		Clock: func() time.Time { return fixed },
	})
	require.NoError(t, err)

	tx, err := w.TopUp(context.Background(), 100, "WL-001", "card")
	require.NoError(t, err)

	assert.True(t, tx.CreatedAt.Equal(fixed))
	assert.True(t, tx.ProcessedAt.Equal(fixed))
}
