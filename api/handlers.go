/*
handlers.go - HTTP API handlers for the wallet ledger

PURPOSE:
  Exposes the wallet via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the ledger.

ENDPOINTS:
  Wallet:
    GET    /api/wallet                        Balance summary
    GET    /api/wallet/transactions           History, newest first
    POST   /api/wallet/topup                  Credit the wallet
    POST   /api/wallet/debits                 Charge for a booking
    POST   /api/wallet/refunds                Refund a booking
    GET    /api/wallet/bookings/{id}/total    Total paid for a booking

  Admin:
    POST   /api/admin/reset                   Reset to demo defaults (dev only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 402: Insufficient funds (with available/requested/shortfall detail)
  - 500: Internal errors

IDEMPOTENCY:
  A duplicate submission is a success: the prior transaction is returned
  with 200 instead of 201. Clients can retry any mutation safely.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fitpass/wallet-engine/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Wallet *wallet.Wallet
	Log    *zap.Logger
}

// NewHandler creates a new handler around a wallet.
func NewHandler(w *wallet.Wallet, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Wallet: w, Log: log}
}

// =============================================================================
// WALLET ENDPOINTS
// =============================================================================

// GetWallet returns the balance summary.
// GET /api/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WalletDTO{
		BalanceMinor: h.Wallet.Balance(),
		Balance:      wallet.FromMinorUnits(h.Wallet.Balance()).StringFixed(2),
		Currency:     h.Wallet.Currency(),
	})
}

// ListTransactions returns the full history, newest first.
// GET /api/wallet/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTransactionDTOs(h.Wallet.Transactions()))
}

// TopUp credits the wallet.
// POST /api/wallet/topup
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		countOp("topup", outcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	_, existed := h.Wallet.FindByIdempotencyKey(req.Reference)

	tx, err := h.Wallet.TopUp(r.Context(), req.AmountMinor, req.Reference, req.Method)
	if err != nil {
		h.writeOpError(w, "topup", err)
		return
	}

	if existed {
		countOp("topup", outcomeDuplicate)
		writeJSON(w, http.StatusOK, toTransactionDTO(tx))
		return
	}
	countOp("topup", outcomeOK)
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// Debit charges the wallet for a booking.
// POST /api/wallet/debits
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		countOp("debit", outcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	key := req.PaymentTransactionID
	if key == "" {
		key = req.BookingRef
	}
	_, existed := h.Wallet.FindByIdempotencyKey(key)

	tx, err := h.Wallet.DebitForBooking(r.Context(), wallet.DebitParams{
		AmountMinor:          req.AmountMinor,
		BookingRef:           req.BookingRef,
		GymName:              req.GymName,
		GymID:                req.GymID,
		BookingID:            req.BookingID,
		PaymentTransactionID: req.PaymentTransactionID,
	})
	if err != nil {
		h.writeOpError(w, "debit", err)
		return
	}

	if existed {
		countOp("debit", outcomeDuplicate)
		writeJSON(w, http.StatusOK, toTransactionDTO(tx))
		return
	}
	countOp("debit", outcomeOK)
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// Refund credits the wallet for a booking.
// POST /api/wallet/refunds
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		countOp("refund", outcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	_, existed := h.Wallet.FindByIdempotencyKey(wallet.RefundKeyPrefix + req.BookingRef)

	tx, err := h.Wallet.Refund(r.Context(), req.AmountMinor, req.BookingRef, req.GymName)
	if err != nil {
		h.writeOpError(w, "refund", err)
		return
	}

	if existed {
		countOp("refund", outcomeDuplicate)
		writeJSON(w, http.StatusOK, toTransactionDTO(tx))
		return
	}
	countOp("refund", outcomeOK)
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetBookingTotal reports the total paid for a booking, extensions included.
// GET /api/wallet/bookings/{bookingID}/total
func (h *Handler) GetBookingTotal(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		writeError(w, http.StatusBadRequest, "missing booking id", nil)
		return
	}

	writeJSON(w, http.StatusOK, BookingTotalDTO{
		BookingID:      bookingID,
		TotalPaidMinor: h.Wallet.TotalPaidMinorUnits(bookingID),
		Currency:       h.Wallet.Currency(),
	})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// Reset restores the seed balance and demo history. Dev/testing only.
// POST /api/admin/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Wallet.ResetToDemoDefaults(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "reset",
		"balance_minor": h.Wallet.Balance(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeOpError(w http.ResponseWriter, op string, err error) {
	var insufficient *wallet.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		countOp(op, outcomeInsufficientFunds)
		writeJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error: "insufficient funds",
			Code:  "insufficient_funds",
			Details: map[string]int64{
				"available_minor": insufficient.Available,
				"requested_minor": insufficient.Requested,
				"shortfall_minor": insufficient.Shortfall(),
			},
		})
	case wallet.IsClientError(err):
		countOp(op, outcomeInvalid)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "invalid_request",
		})
	default:
		countOp(op, outcomeError)
		h.Log.Error("wallet operation failed",
			zap.String("operation", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "operation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
