package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"settlement/internal/domain"
	"settlement/internal/outbox"
	"settlement/internal/repository/transactions_repo"
)

const uniqueViolation = "23505"

const transactionColumns = `
	id, receipt_no, idempotency_key, sender_id,
	sending_amount, receiving_amount, fee, total_amount, exchange_rate,
	sending_country_code, receiving_country_code, sending_currency, receiving_currency,
	transfer_type, status, transfer_reference, created_at, updated_at
`

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateTransfer(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail, taskTopic string) (*domain.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	created, err := r.insertTransactionTx(ctx, dbTx, tx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && tx.IdempotencyKey != nil {
			// Lost the check-then-create race: the unique index on
			// (sender_id, idempotency_key) is the backstop. Return the row
			// that won.
			if rbErr := dbTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return nil, fmt.Errorf("failed to roll back after idempotency conflict: %w", rbErr)
			}
			return r.FindByIdempotencyKey(ctx, tx.SenderID, *tx.IdempotencyKey)
		}
		return nil, err
	}

	detail.TransactionID = created.ID
	detail.CreatedAt = created.CreatedAt
	if err := r.insertPayoutDetailTx(ctx, dbTx, detail); err != nil {
		return nil, err
	}

	task, err := outbox.NewTransferTask(created, taskTopic)
	if err != nil {
		return nil, err
	}
	if err := outbox.StageMessageTx(ctx, dbTx, task); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer creation: %w", err)
	}
	return created, nil
}

func (r *transactionRepository) insertTransactionTx(ctx context.Context, querier domain.Querier, tx *domain.Transaction) (*domain.Transaction, error) {
	query := `
		INSERT INTO transactions (
			receipt_no, idempotency_key, sender_id,
			sending_amount, receiving_amount, fee, total_amount, exchange_rate,
			sending_country_code, receiving_country_code, sending_currency, receiving_currency,
			transfer_type, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	now := time.Now().UTC()
	created := *tx
	created.CreatedAt = now
	created.UpdatedAt = now

	err := querier.QueryRowContext(ctx, query,
		created.ReceiptNo,
		nullableString(created.IdempotencyKey),
		created.SenderID,
		created.SendingAmount,
		created.ReceivingAmount,
		created.Fee,
		created.TotalAmount,
		created.ExchangeRate,
		created.SendingCountryCode,
		created.ReceivingCountryCode,
		created.SendingCurrency,
		created.ReceivingCurrency,
		created.TransferType,
		created.Status,
		created.CreatedAt,
		created.UpdatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &created, nil
}

func (r *transactionRepository) insertPayoutDetailTx(ctx context.Context, querier domain.Querier, detail *domain.PayoutDetail) error {
	query := `
		INSERT INTO payout_details (transaction_id, transfer_type, detail, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := querier.ExecContext(ctx, query,
		detail.TransactionID,
		detail.TransferType,
		[]byte(detail.Detail),
		detail.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payout detail for transaction %d: %w", detail.TransactionID, err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, id))
}

func (r *transactionRepository) GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE receipt_no = $1`
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, receiptNo))
}

func (r *transactionRepository) FindByIdempotencyKey(ctx context.Context, senderID int64, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE sender_id = $1 AND idempotency_key = $2`
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, senderID, key))
}

func (r *transactionRepository) GetPayoutDetail(ctx context.Context, transactionID int64) (*domain.PayoutDetail, error) {
	query := `
		SELECT transaction_id, transfer_type, detail, created_at
		FROM payout_details
		WHERE transaction_id = $1
	`
	detail := &domain.PayoutDetail{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&detail.TransactionID,
		&detail.TransferType,
		&raw,
		&detail.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPayoutDetailNotFound
		}
		return nil, fmt.Errorf("failed to get payout detail for transaction %d: %w", transactionID, err)
	}
	detail.Detail = raw
	return detail, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.TransactionStatus, fields transactions_repo.UpdateStatusFields) error {
	if !expected.CanTransitionTo(next) {
		return domain.ErrInvalidStatusTransition
	}

	query := `
		UPDATE transactions
		SET status = $1, transfer_reference = COALESCE(transfer_reference, $2), updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		next,
		nullableString(fields.TransferReference),
		time.Now().UTC(),
		id,
		expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update status for transaction %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for transaction %d status update: %w", id, err)
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrStatusConflict
	}
	return nil
}

func (r *transactionRepository) scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var idempotencyKey, transferReference sql.NullString
	err := row.Scan(
		&tx.ID,
		&tx.ReceiptNo,
		&idempotencyKey,
		&tx.SenderID,
		&tx.SendingAmount,
		&tx.ReceivingAmount,
		&tx.Fee,
		&tx.TotalAmount,
		&tx.ExchangeRate,
		&tx.SendingCountryCode,
		&tx.ReceivingCountryCode,
		&tx.SendingCurrency,
		&tx.ReceivingCurrency,
		&tx.TransferType,
		&tx.Status,
		&transferReference,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if idempotencyKey.Valid {
		tx.IdempotencyKey = &idempotencyKey.String
	}
	if transferReference.Valid {
		tx.TransferReference = &transferReference.String
	}
	return tx, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
