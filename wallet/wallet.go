/*
wallet.go - The wallet ledger aggregate

PURPOSE:
  Owns the balance, currency, and transaction history, and exposes the
  mutating operations: top-up, debit-for-booking, refund, reset. All
  mutations are serialized by a single writer lock so the check-then-act
  sequence in DebitForBooking is atomic; reads may run concurrently.

CRITICAL INVARIANTS:
  1. INTEGRITY:   stored balance == sum of SignedMinorUnits over history
  2. NON-NEGATIVE: a debit never drives the balance below zero
  3. IDEMPOTENT:  at most one completed transaction per idempotency key;
                  a duplicate submission returns the prior transaction

DUPLICATE SUBMISSIONS:
  A retried operation (double-tap, retried extension) with the same key is
  a successful no-op, not an error. Extensions of the same booking must
  supply distinct key overrides so they are not conflated with the original
  charge or with each other.

INTEGRITY HEAL:
  On mismatch between stored and computed balance the ledger heals itself
  AT MOST ONCE, and only when Options.SelfHeal is set. The heal is recorded
  under its own persisted flag; any later mismatch is a genuine data bug
  and is logged loudly without mutating state.

PERSISTENCE:
  Every successful mutation saves the full snapshot before returning, so a
  crash immediately after a successful call cannot lose the transaction.

SEE ALSO:
  - types.go: Transaction record and signed-amount rule
  - snapshot.go: Persisted layout and demo seed
  - store.go: Storage contract
*/
package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingIDPrefix derives the stable booking id from a booking reference.
const BookingIDPrefix = "booking_"

// RefundKeyPrefix derives the refund idempotency key from a booking reference.
const RefundKeyPrefix = "REF-"

// DefaultCurrency is used when Options.Currency is empty.
const DefaultCurrency = "EUR"

// =============================================================================
// CONSTRUCTION
// =============================================================================

// Options configures a Wallet. The zero value is usable: EUR, no self-heal,
// wall clock, no-op logger.
type Options struct {
	// Currency is the single ISO currency code for this ledger.
	Currency string

	// SelfHeal allows the one-time balance heal on integrity mismatch.
	// Leave false in production: mismatches are then logged, never fixed.
	SelfHeal bool

	// Clock supplies transaction timestamps. Defaults to time.Now.
	Clock func() time.Time

	// Logger for diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Wallet is the single-user money ledger. Construct with New; all state is
// mutated exclusively through its methods.
type Wallet struct {
	mu    sync.RWMutex
	store Store
	log   *zap.Logger
	clock func() time.Time

	selfHeal bool
	healed   bool

	currency string
	balance  int64         // minor units
	txs      []Transaction // newest first
}

// New loads the wallet from the store, or seeds the demo state when no
// persisted snapshot exists. Corrupt snapshots are logged and replaced by
// the seed state, never surfaced as fatal errors.
func New(ctx context.Context, store Store, opts Options) (*Wallet, error) {
	w := &Wallet{
		store:    store,
		log:      opts.Logger,
		clock:    opts.Clock,
		selfHeal: opts.SelfHeal,
		currency: opts.Currency,
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	if w.clock == nil {
		w.clock = time.Now
	}
	if w.currency == "" {
		w.currency = DefaultCurrency
	}

	// New holds the only reference at this point; no lock needed.
	if err := w.load(ctx); err != nil {
		return nil, err
	}

	// One-time startup migration: legacy snapshots may carry a balance that
	// disagrees with the history.
	w.verifyLocked(ctx)

	return w, nil
}

func (w *Wallet) load(ctx context.Context) error {
	healedRaw, found, err := w.store.Get(ctx, HealedKey)
	if err != nil {
		return fmt.Errorf("read heal flag: %w", err)
	}
	w.healed = found && string(healedRaw) == "true"

	raw, found, err := w.store.Get(ctx, SnapshotKey)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if found {
		snap, legacy, err := DecodeSnapshot(raw)
		if err == nil {
			w.applySnapshot(snap)
			if legacy {
				w.log.Info("loaded legacy wallet snapshot",
					zap.Int64("balance_minor", w.balance))
			}
			return nil
		}
		w.log.Error("wallet snapshot corrupt, falling back to seed state",
			zap.Error(err))
	}

	w.applySnapshot(DemoSnapshot(w.currency, w.clock().UTC()))
	return w.saveLocked(ctx)
}

func (w *Wallet) applySnapshot(s Snapshot) {
	w.balance = s.BalanceMinor
	w.currency = s.Currency
	w.txs = append([]Transaction(nil), s.Transactions...)
}

// =============================================================================
// QUERIES (concurrent-safe reads)
// =============================================================================

// Balance returns the current balance in minor units.
func (w *Wallet) Balance() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// Currency returns the ledger currency code.
func (w *Wallet) Currency() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currency
}

// Transactions returns a copy of the history, newest first.
func (w *Wallet) Transactions() []Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Transaction, len(w.txs))
	copy(out, w.txs)
	return out
}

// FindByIdempotencyKey returns the completed transaction recorded under key.
func (w *Wallet) FindByIdempotencyKey(key string) (Transaction, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.findByKeyLocked(key)
}

func (w *Wallet) findByKeyLocked(key string) (Transaction, bool) {
	for _, tx := range w.txs {
		if tx.PaymentTransactionID == key && tx.Status == StatusCompleted {
			return tx, true
		}
	}
	return Transaction{}, false
}

// TotalPaidMinorUnits sums all completed payment transactions for a booking,
// in minor units. Includes extension charges recorded under the same stable
// booking id. Never negative.
func (w *Wallet) TotalPaidMinorUnits(bookingID string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var total int64
	for _, tx := range w.txs {
		if tx.Type == TxPayment && tx.Status == StatusCompleted && tx.BookingID == bookingID {
			total += MinorUnits(tx.Amount)
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// ComputedBalance reduces the full history to a balance in minor units.
// Used for integrity verification only; the live balance is the stored
// field, updated incrementally.
func (w *Wallet) ComputedBalance() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.computedLocked()
}

func (w *Wallet) computedLocked() int64 {
	var sum int64
	for _, tx := range w.txs {
		sum += tx.SignedMinorUnits()
	}
	return sum
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// TopUp credits the wallet. A duplicate reference returns the prior
// transaction unchanged and does not touch the balance.
func (w *Wallet) TopUp(ctx context.Context, amountMinor int64, reference, method string) (Transaction, error) {
	if amountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if reference == "" {
		return Transaction{}, ErrEmptyReference
	}
	if method == "" {
		method = "card"
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if prior, ok := w.findByKeyLocked(reference); ok {
		w.log.Debug("duplicate top-up reference",
			zap.String("reference", reference),
			zap.String("transaction_id", prior.ID))
		return prior, nil
	}

	return w.applyLocked(ctx, draft{
		txType:      TxDeposit,
		amountMinor: amountMinor,
		description: "Wallet top-up",
		method:      method,
		key:         reference,
	})
}

// DebitParams describes a booking charge. BookingID and PaymentTransactionID
// default to values derived from BookingRef; extension charges must override
// PaymentTransactionID with a distinct value per extension.
type DebitParams struct {
	AmountMinor int64
	BookingRef  string
	GymName     string
	GymID       string

	// BookingID overrides the derived BookingIDPrefix+BookingRef.
	BookingID string

	// PaymentTransactionID overrides the idempotency key (default BookingRef).
	PaymentTransactionID string
}

// DebitForBooking charges the wallet for a booking. Fails with
// ErrInsufficientFunds (as *InsufficientFundsError) when the balance does
// not cover the amount; no state is mutated on failure. A duplicate key
// returns the prior transaction unchanged.
func (w *Wallet) DebitForBooking(ctx context.Context, p DebitParams) (Transaction, error) {
	if p.AmountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if p.BookingRef == "" {
		return Transaction{}, ErrEmptyReference
	}

	bookingID := p.BookingID
	if bookingID == "" {
		bookingID = BookingIDPrefix + p.BookingRef
	}
	key := p.PaymentTransactionID
	if key == "" {
		key = p.BookingRef
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if prior, ok := w.findByKeyLocked(key); ok {
		w.log.Debug("duplicate booking charge",
			zap.String("key", key),
			zap.String("transaction_id", prior.ID))
		return prior, nil
	}

	// Sufficiency check and mutation happen under the same lock: two
	// concurrent debits cannot both pass against a stale balance.
	if w.balance < p.AmountMinor {
		w.log.Info("debit rejected: insufficient funds",
			zap.String("booking_ref", p.BookingRef),
			zap.Int64("available", w.balance),
			zap.Int64("requested", p.AmountMinor))
		return Transaction{}, &InsufficientFundsError{
			Available: w.balance,
			Requested: p.AmountMinor,
		}
	}

	description := "Booking payment"
	if p.GymName != "" {
		description = "Booking at " + p.GymName
	}

	return w.applyLocked(ctx, draft{
		txType:      TxPayment,
		amountMinor: p.AmountMinor,
		description: description,
		bookingID:   bookingID,
		gymID:       p.GymID,
		gymName:     p.GymName,
		method:      "wallet",
		key:         key,
	})
}

// Refund credits the wallet for a booking. The idempotency key is derived
// from the booking reference (RefundKeyPrefix), and the same duplicate guard
// applies as for top-ups and debits: a retried refund returns the original
// transaction rather than crediting twice.
func (w *Wallet) Refund(ctx context.Context, amountMinor int64, bookingRef, gymName string) (Transaction, error) {
	if amountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if bookingRef == "" {
		return Transaction{}, ErrEmptyReference
	}

	key := RefundKeyPrefix + bookingRef

	w.mu.Lock()
	defer w.mu.Unlock()

	if prior, ok := w.findByKeyLocked(key); ok {
		w.log.Debug("duplicate refund",
			zap.String("key", key),
			zap.String("transaction_id", prior.ID))
		return prior, nil
	}

	description := "Booking refund"
	if gymName != "" {
		description = "Refund for booking at " + gymName
	}

	return w.applyLocked(ctx, draft{
		txType:      TxRefund,
		amountMinor: amountMinor,
		description: description,
		bookingID:   BookingIDPrefix + bookingRef,
		gymName:     gymName,
		method:      "wallet",
		key:         key,
	})
}

// ResetToDemoDefaults discards all state and restores the seed balance and
// demo history. Debug/testing use only; never called by normal flows.
func (w *Wallet) ResetToDemoDefaults(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.applySnapshot(DemoSnapshot(w.currency, w.clock().UTC()))
	if err := w.saveLocked(ctx); err != nil {
		return fmt.Errorf("persist reset: %w", err)
	}
	w.log.Warn("wallet reset to demo defaults")
	return nil
}

// =============================================================================
// APPLY + PERSIST
// =============================================================================

type draft struct {
	txType      TransactionType
	amountMinor int64
	description string
	bookingID   string
	gymID       string
	gymName     string
	method      string
	key         string
}

// applyLocked constructs the transaction, updates the balance, prepends to
// the history, and persists. On persistence failure the in-memory state is
// rolled back so no partial application is observable.
func (w *Wallet) applyLocked(ctx context.Context, d draft) (Transaction, error) {
	before := w.balance
	delta := d.amountMinor
	if d.txType.IsDebit() {
		delta = -delta
	}
	after := before + delta
	now := w.clock().UTC()

	tx := Transaction{
		ID:                   uuid.New().String(),
		Type:                 d.txType,
		Amount:               FromMinorUnits(d.amountMinor),
		Currency:             w.currency,
		Description:          d.description,
		BookingID:            d.bookingID,
		GymID:                d.gymID,
		GymName:              d.gymName,
		PaymentMethod:        d.method,
		PaymentTransactionID: d.key,
		BalanceBefore:        FromMinorUnits(before),
		BalanceAfter:         FromMinorUnits(after),
		Status:               StatusCompleted,
		CreatedAt:            now,
		ProcessedAt:          now,
	}

	w.balance = after
	w.txs = append([]Transaction{tx}, w.txs...)

	if err := w.saveLocked(ctx); err != nil {
		w.balance = before
		w.txs = w.txs[1:]
		return Transaction{}, fmt.Errorf("persist transaction: %w", err)
	}

	w.verifyLocked(ctx)

	w.log.Info("wallet transaction recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.Int64("amount_minor", d.amountMinor),
		zap.Int64("balance_minor", w.balance))

	return tx, nil
}

func (w *Wallet) saveLocked(ctx context.Context) error {
	data, err := EncodeSnapshot(Snapshot{
		BalanceMinor: w.balance,
		Currency:     w.currency,
		Transactions: w.txs,
	})
	if err != nil {
		return err
	}
	return w.store.Put(ctx, SnapshotKey, data)
}

// =============================================================================
// INTEGRITY VERIFICATION
// =============================================================================

// VerifyIntegrity compares the stored balance against the balance recomputed
// from history. Returns nil when consistent or when the one-time heal fixed
// the mismatch; returns *IntegrityError otherwise. Never blocks operations.
func (w *Wallet) VerifyIntegrity(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verifyLocked(ctx)
}

func (w *Wallet) verifyLocked(ctx context.Context) error {
	computed := w.computedLocked()
	if computed == w.balance {
		return nil
	}

	if w.selfHeal && !w.healed {
		w.log.Warn("wallet balance mismatch, applying one-time heal",
			zap.Int64("stored_minor", w.balance),
			zap.Int64("computed_minor", computed))
		w.balance = computed
		w.healed = true
		if err := w.store.Put(ctx, HealedKey, []byte("true")); err != nil {
			w.log.Error("failed to persist heal flag", zap.Error(err))
		}
		if err := w.saveLocked(ctx); err != nil {
			w.log.Error("failed to persist healed snapshot", zap.Error(err))
		}
		return nil
	}

	// Heal already ran (or is disabled): trust the stored balance, report
	// the anomaly loudly, mutate nothing.
	ierr := &IntegrityError{Stored: w.balance, Computed: computed}
	w.log.Error("wallet integrity violation",
		zap.Int64("stored_minor", ierr.Stored),
		zap.Int64("computed_minor", ierr.Computed),
		zap.Int64("drift_minor", ierr.Drift()),
		zap.Bool("healed_before", w.healed))
	return ierr
}
