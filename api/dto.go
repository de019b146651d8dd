/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  All request amounts and response totals are integer minor units (cents).
  Transaction DTOs additionally carry the display amount in major units
  as a decimal string.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/fitpass/wallet-engine/wallet"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// WalletDTO is the balance summary.
type WalletDTO struct {
	BalanceMinor int64  `json:"balance_minor"`
	Balance      string `json:"balance"` // major units, display value
	Currency     string `json:"currency"`
}

// TransactionDTO represents one ledger transaction.
type TransactionDTO struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Amount               string `json:"amount"` // major units
	AmountMinor          int64  `json:"amount_minor"`
	Currency             string `json:"currency"`
	Description          string `json:"description"`
	BookingID            string `json:"booking_id,omitempty"`
	GymID                string `json:"gym_id,omitempty"`
	GymName              string `json:"gym_name,omitempty"`
	PaymentMethod        string `json:"payment_method,omitempty"`
	PaymentTransactionID string `json:"payment_transaction_id"`
	BalanceBefore        string `json:"balance_before"`
	BalanceAfter         string `json:"balance_after"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
	ProcessedAt          string `json:"processed_at"`
}

// TopUpRequest is the request to credit the wallet.
type TopUpRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Reference   string `json:"reference"`
	Method      string `json:"method,omitempty"`
}

// DebitRequest is the request to charge the wallet for a booking.
// BookingID and PaymentTransactionID are optional overrides; extensions
// must supply a distinct PaymentTransactionID per extension.
type DebitRequest struct {
	AmountMinor          int64  `json:"amount_minor"`
	BookingRef           string `json:"booking_ref"`
	GymName              string `json:"gym_name,omitempty"`
	GymID                string `json:"gym_id,omitempty"`
	BookingID            string `json:"booking_id,omitempty"`
	PaymentTransactionID string `json:"payment_transaction_id,omitempty"`
}

// RefundRequest is the request to refund a booking to the wallet.
type RefundRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	BookingRef  string `json:"booking_ref"`
	GymName     string `json:"gym_name,omitempty"`
}

// BookingTotalDTO reports the total paid for one booking.
type BookingTotalDTO struct {
	BookingID      string `json:"booking_id"`
	TotalPaidMinor int64  `json:"total_paid_minor"`
	Currency       string `json:"currency"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(tx wallet.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                   tx.ID,
		Type:                 string(tx.Type),
		Amount:               tx.Amount.StringFixed(2),
		AmountMinor:          wallet.MinorUnits(tx.Amount),
		Currency:             tx.Currency,
		Description:          tx.Description,
		BookingID:            tx.BookingID,
		GymID:                tx.GymID,
		GymName:              tx.GymName,
		PaymentMethod:        tx.PaymentMethod,
		PaymentTransactionID: tx.PaymentTransactionID,
		BalanceBefore:        tx.BalanceBefore.StringFixed(2),
		BalanceAfter:         tx.BalanceAfter.StringFixed(2),
		Status:               string(tx.Status),
		CreatedAt:            tx.CreatedAt.Format(time.RFC3339),
		ProcessedAt:          tx.ProcessedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []wallet.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}
