package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusInProgress        TransactionStatus = "IN_PROGRESS"
	StatusPaymentPending    TransactionStatus = "PAYMENT_PENDING"
	StatusIdCheckInProgress TransactionStatus = "ID_CHECK_IN_PROGRESS"
	StatusHeld              TransactionStatus = "HELD"
	StatusPaid              TransactionStatus = "PAID"
	StatusCompleted         TransactionStatus = "COMPLETED"
	StatusFailed            TransactionStatus = "FAILED"
	StatusCancelled         TransactionStatus = "CANCELLED"
	StatusRefund            TransactionStatus = "REFUND"
	StatusFullRefund        TransactionStatus = "FULL_REFUND"
	StatusPartialRefund     TransactionStatus = "PARTIAL_REFUND"
	StatusAbnormal          TransactionStatus = "ABNORMAL"
	StatusNotReceived       TransactionStatus = "NOT_RECEIVED"
	StatusReceived          TransactionStatus = "RECEIVED"
	StatusPaused            TransactionStatus = "PAUSED"
)

// legalTransitions lists the status moves the settlement pipeline is allowed
// to apply. StatusFailed -> StatusInProgress is the retry re-entry: a failed
// payout that still has retry budget is picked up again by the consumer.
// Compliance/admin-driven statuses (Refund, Abnormal, Paused, ...) are written
// by external tooling and have no consumer-driven transitions.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPaymentPending:    {StatusInProgress, StatusFailed, StatusCancelled},
	StatusInProgress:        {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:            {StatusInProgress},
	StatusHeld:              {StatusPaid, StatusCompleted, StatusCancelled},
	StatusIdCheckInProgress: {StatusCancelled},
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether a cancellation request is legal from this status.
func (s TransactionStatus) Cancellable() bool {
	switch s {
	case StatusPaymentPending, StatusInProgress, StatusHeld, StatusIdCheckInProgress:
		return true
	}
	return false
}

// Terminal reports whether the settlement pipeline performs any further
// consumer-driven transition from this status. StatusFailed is only terminal
// once the retry budget is exhausted, which the consumer tracks per message.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transaction is the authoritative record of one money transfer.
type Transaction struct {
	ID             int64
	ReceiptNo      string
	IdempotencyKey *string
	SenderID       int64

	SendingAmount   decimal.Decimal
	ReceivingAmount decimal.Decimal
	Fee             decimal.Decimal
	TotalAmount     decimal.Decimal
	ExchangeRate    decimal.Decimal

	SendingCountryCode   string
	ReceivingCountryCode string
	SendingCurrency      string
	ReceivingCurrency    string

	TransferType      TransferType
	Status            TransactionStatus
	TransferReference *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTransferReference reports whether the payout reference has already been
// recorded. A set reference marks the payout as executed regardless of how
// many times the queue redelivers the message.
func (t *Transaction) HasTransferReference() bool {
	return t.TransferReference != nil && *t.TransferReference != ""
}
