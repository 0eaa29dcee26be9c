package domain

import "errors"

var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrStatusConflict          = errors.New("transaction status changed concurrently")
	ErrInvalidStatusTransition = errors.New("illegal transaction status transition")
	ErrCancellationNotAllowed  = errors.New("transaction cannot be cancelled from its current status")
	ErrUnknownTransferType     = errors.New("unknown transfer type")
	ErrMissingPayoutDetail     = errors.New("payout detail is required")
	ErrPayoutDetailNotFound    = errors.New("payout detail not found")
)
