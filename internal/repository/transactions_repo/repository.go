package transactions_repo

import (
	"context"

	"settlement/internal/domain"
)

// UpdateStatusFields carries the optional column writes that ride along with
// a status transition.
type UpdateStatusFields struct {
	// TransferReference is written only if the column is still unset; a
	// reference recorded by an earlier delivery is never overwritten.
	TransferReference *string
}

// TransactionRepository is the transactional record store for transfers.
//
// CreateTransfer persists the transaction, its payout detail and the transfer
// task outbox row for taskTopic atomically. When the (sender_id,
// idempotency_key) unique index rejects the insert, the transaction that won
// the race is returned instead of an error.
//
// UpdateStatus applies a status transition with optimistic concurrency: the
// write succeeds only while the row still carries the expected status, and
// returns domain.ErrStatusConflict otherwise.
type TransactionRepository interface {
	CreateTransfer(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail, taskTopic string) (*domain.Transaction, error)
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, senderID int64, key string) (*domain.Transaction, error)
	GetPayoutDetail(ctx context.Context, transactionID int64) (*domain.PayoutDetail, error)
	UpdateStatus(ctx context.Context, id int64, expected, next domain.TransactionStatus, fields UpdateStatusFields) error
}
