package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"settlement/internal/domain"
	"settlement/internal/util"
)

// NewTransferTask builds the outbox row announcing payout work for a freshly
// created transaction. The Kafka key is the transaction id as text so every
// message for one transaction lands on the same partition.
func NewTransferTask(tx *domain.Transaction, topic string) (*domain.TransferOutboxMessage, error) {
	payload, err := json.Marshal(domain.TransferQueueMessage{
		TransactionID: tx.ID,
		ReceiptNo:     tx.ReceiptNo,
		TransferType:  tx.TransferType,
		RetryCount:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer task for transaction %d: %w", tx.ID, err)
	}
	return &domain.TransferOutboxMessage{
		ID:            util.GenerateUUID(),
		TransactionID: tx.ID,
		Topic:         topic,
		Key:           strconv.FormatInt(tx.ID, 10),
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// StageMessageTx inserts an outbox row inside the caller's database
// transaction, so the row commits or rolls back together with the
// transaction it announces.
func StageMessageTx(ctx context.Context, querier domain.Querier, msg *domain.TransferOutboxMessage) error {
	query := `
		INSERT INTO transfer_outbox (id, transaction_id, topic, key_value, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querier.ExecContext(ctx, query,
		msg.ID,
		msg.TransactionID,
		msg.Topic,
		msg.Key,
		msg.Payload,
		msg.Status,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to stage outbox message: %w", err)
	}
	return nil
}
