package transfers_http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"settlement/internal/app/transfers"
	"settlement/internal/domain"
	"settlement/internal/quote"
)

type TransferHandler struct {
	service transfers.TransferService
	logger  *zap.Logger
}

func NewTransferHandler(s transfers.TransferService, l *zap.Logger) *TransferHandler {
	return &TransferHandler{service: s, logger: l}
}

type QuoteRequest struct {
	SendingAmount         decimal.Decimal `json:"sending_amount"`
	ReceivingAmount       decimal.Decimal `json:"receiving_amount"`
	SendingCurrency       string          `json:"sending_currency"`
	ReceivingCurrency     string          `json:"receiving_currency"`
	SendingCountryCode    string          `json:"sending_country_code"`
	ReceivingCountryCode  string          `json:"receiving_country_code"`
	TransferType          string          `json:"transfer_type"`
	ReceivingAmountDriven bool            `json:"receiving_amount_driven"`
	FirstTransaction      bool            `json:"first_transaction"`
}

type QuoteResponse struct {
	SendingAmount     decimal.Decimal `json:"sending_amount"`
	ReceivingAmount   decimal.Decimal `json:"receiving_amount"`
	Fee               decimal.Decimal `json:"fee"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"`
	Introductory      bool            `json:"introductory"`
	IsValid           bool            `json:"is_valid"`
	ValidationMessage string          `json:"validation_message,omitempty"`
}

type CreateTransferRequest struct {
	QuoteRequest
	SenderID     int64           `json:"sender_id"`
	PayoutDetail json.RawMessage `json:"payout_detail"`
}

type TransferResponse struct {
	ID                int64           `json:"id"`
	ReceiptNo         string          `json:"receipt_no"`
	SenderID          int64           `json:"sender_id"`
	SendingAmount     decimal.Decimal `json:"sending_amount"`
	ReceivingAmount   decimal.Decimal `json:"receiving_amount"`
	Fee               decimal.Decimal `json:"fee"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"`
	SendingCurrency   string          `json:"sending_currency"`
	ReceivingCurrency string          `json:"receiving_currency"`
	TransferType      string          `json:"transfer_type"`
	Status            string          `json:"status"`
	TransferReference *string         `json:"transfer_reference,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

func transferResponse(tx *domain.Transaction) TransferResponse {
	return TransferResponse{
		ID:                tx.ID,
		ReceiptNo:         tx.ReceiptNo,
		SenderID:          tx.SenderID,
		SendingAmount:     tx.SendingAmount,
		ReceivingAmount:   tx.ReceivingAmount,
		Fee:               tx.Fee,
		TotalAmount:       tx.TotalAmount,
		ExchangeRate:      tx.ExchangeRate,
		SendingCurrency:   tx.SendingCurrency,
		ReceivingCurrency: tx.ReceivingCurrency,
		TransferType:      string(tx.TransferType),
		Status:            string(tx.Status),
		TransferReference: tx.TransferReference,
		CreatedAt:         tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         tx.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *TransferHandler) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid request body for Quote", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	q := h.service.Quote(quote.Request{
		SendingAmount:         req.SendingAmount,
		ReceivingAmount:       req.ReceivingAmount,
		SendingCurrency:       req.SendingCurrency,
		ReceivingCurrency:     req.ReceivingCurrency,
		SendingCountryCode:    req.SendingCountryCode,
		ReceivingCountryCode:  req.ReceivingCountryCode,
		TransferType:          domain.TransferType(req.TransferType),
		ReceivingAmountDriven: req.ReceivingAmountDriven,
		FirstTransaction:      req.FirstTransaction,
	})

	writeJSON(w, http.StatusOK, QuoteResponse{
		SendingAmount:     q.SendingAmount,
		ReceivingAmount:   q.ReceivingAmount,
		Fee:               q.Fee,
		TotalAmount:       q.TotalAmount,
		ExchangeRate:      q.ExchangeRate,
		Introductory:      q.Introductory,
		IsValid:           q.IsValid,
		ValidationMessage: q.ValidationMessage,
	}, h.logger)
}

func (h *TransferHandler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid request body for CreateTransfer", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SenderID == 0 {
		http.Error(w, "sender_id is required", http.StatusBadRequest)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	created, err := h.service.CreateTransfer(r.Context(), transfers.CreateTransferRequest{
		SenderID:              req.SenderID,
		IdempotencyKey:        idempotencyKey,
		SendingAmount:         req.SendingAmount,
		ReceivingAmount:       req.ReceivingAmount,
		SendingCurrency:       req.SendingCurrency,
		ReceivingCurrency:     req.ReceivingCurrency,
		SendingCountryCode:    req.SendingCountryCode,
		ReceivingCountryCode:  req.ReceivingCountryCode,
		TransferType:          domain.TransferType(req.TransferType),
		ReceivingAmountDriven: req.ReceivingAmountDriven,
		FirstTransaction:      req.FirstTransaction,
		PayoutDetail:          req.PayoutDetail,
	})
	if err != nil {
		var rejected *transfers.QuoteRejectedError
		if errors.As(err, &rejected) {
			http.Error(w, rejected.Message, http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, domain.ErrUnknownTransferType) {
			http.Error(w, "Unknown transfer type", http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrMissingPayoutDetail) {
			http.Error(w, "payout_detail is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to create transfer", zap.Int64("sender_id", req.SenderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, transferResponse(created), h.logger)
}

func (h *TransferHandler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receiptNo")
	if receiptNo == "" {
		http.Error(w, "Receipt number is required", http.StatusBadRequest)
		return
	}

	tx, err := h.service.GetTransferByReceiptNo(r.Context(), receiptNo)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			http.Error(w, "Transfer not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get transfer", zap.String("receipt_no", receiptNo), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse(tx), h.logger)
}

func (h *TransferHandler) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receiptNo")
	if receiptNo == "" {
		http.Error(w, "Receipt number is required", http.StatusBadRequest)
		return
	}

	tx, err := h.service.GetTransferByReceiptNo(r.Context(), receiptNo)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			http.Error(w, "Transfer not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get transfer for cancellation", zap.String("receipt_no", receiptNo), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cancelled, err := h.service.CancelTransfer(r.Context(), tx.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCancellationNotAllowed) {
			http.Error(w, "Transfer cannot be cancelled from its current status", http.StatusConflict)
			return
		}
		h.logger.Error("Failed to cancel transfer", zap.Int64("transaction_id", tx.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse(cancelled), h.logger)
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}
