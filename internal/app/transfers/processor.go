package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"settlement/internal/domain"
	kafka_infra "settlement/internal/infrastructure/kafka"
	"settlement/internal/payout"
	"settlement/internal/repository/transactions_repo"
)

// TransferProcessor executes queued payout work. It is safe against message
// redelivery: executors short-circuit on an already-set transfer reference,
// and every status write is a compare-and-swap that refuses to override a
// terminal status.
//
// Retries are application-level: a failed execution marks the transaction
// FAILED and republishes the message with an incremented retry count on the
// same key, so the retry stays on the transaction's partition. Once the retry
// budget is spent the message goes to the dead-letter topic instead.
type TransferProcessor struct {
	repo            transactions_repo.TransactionRepository
	executors       *payout.Registry
	producer        kafka_infra.Producer
	taskTopic       string
	deadLetterTopic string
	maxRetries      int
	logger          *zap.Logger
}

func NewTransferProcessor(
	repo transactions_repo.TransactionRepository,
	executors *payout.Registry,
	producer kafka_infra.Producer,
	taskTopic string,
	deadLetterTopic string,
	maxRetries int,
	logger *zap.Logger,
) *TransferProcessor {
	return &TransferProcessor{
		repo:            repo,
		executors:       executors,
		producer:        producer,
		taskTopic:       taskTopic,
		deadLetterTopic: deadLetterTopic,
		maxRetries:      maxRetries,
		logger:          logger,
	}
}

// ProcessMessage handles one queue delivery. A nil return acknowledges the
// message; an error leaves it for broker redelivery. Storage read failures
// return errors (redelivery), payout failures go through the retry budget;
// the two are never conflated.
func (p *TransferProcessor) ProcessMessage(ctx context.Context, msg domain.TransferQueueMessage) error {
	tx, err := p.repo.GetByID(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return fmt.Errorf("transaction %d referenced by transfer task does not exist: %w", msg.TransactionID, err)
		}
		return fmt.Errorf("failed to load transaction %d: %w", msg.TransactionID, err)
	}

	if tx.Status.Terminal() {
		p.logger.Info("Skipping transfer task for terminal transaction",
			zap.Int64("transaction_id", tx.ID),
			zap.String("status", string(tx.Status)),
		)
		return nil
	}
	if tx.Status == domain.StatusFailed && msg.RetryCount > p.maxRetries {
		p.logger.Info("Skipping transfer task with exhausted retry budget",
			zap.Int64("transaction_id", tx.ID),
			zap.Int("retry_count", msg.RetryCount),
		)
		return nil
	}

	tx, err = p.ensureInProgress(ctx, tx)
	if err != nil {
		return err
	}
	if tx == nil {
		return nil
	}

	executor, ok := p.executors.For(msg.TransferType)
	if !ok {
		p.logger.Error("No payout executor for transfer type",
			zap.Int64("transaction_id", tx.ID),
			zap.String("transfer_type", string(msg.TransferType)),
		)
		return p.deadLetter(ctx, tx, msg)
	}

	detail, err := p.repo.GetPayoutDetail(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("failed to load payout detail for transaction %d: %w", tx.ID, err)
	}

	reference, execErr := executor.Execute(ctx, tx, detail)
	if execErr != nil {
		return p.handleFailure(ctx, tx, msg, execErr)
	}
	return p.handleSuccess(ctx, tx, reference)
}

// ensureInProgress moves the transaction to IN_PROGRESS before execution.
// A transaction already IN_PROGRESS is left as-is (redelivery), a FAILED one
// re-enters for retry. A nil transaction with nil error means the message
// should be acknowledged without work.
func (p *TransferProcessor) ensureInProgress(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	switch tx.Status {
	case domain.StatusInProgress:
		return tx, nil
	case domain.StatusPaymentPending, domain.StatusFailed:
		err := p.repo.UpdateStatus(ctx, tx.ID, tx.Status, domain.StatusInProgress, transactions_repo.UpdateStatusFields{})
		if err == nil {
			tx.Status = domain.StatusInProgress
			return tx, nil
		}
		if errors.Is(err, domain.ErrStatusConflict) {
			current, getErr := p.repo.GetByID(ctx, tx.ID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to reload transaction %d after status conflict: %w", tx.ID, getErr)
			}
			if current.Status == domain.StatusInProgress {
				return current, nil
			}
			p.logger.Warn("Transaction left consumer-driven statuses while task was in flight",
				zap.Int64("transaction_id", tx.ID),
				zap.String("status", string(current.Status)),
			)
			return nil, nil
		}
		return nil, err
	default:
		// Held, id-check and the other compliance statuses are advanced by
		// admin tooling, not by the consumer.
		p.logger.Info("Transfer task ignored for externally managed status",
			zap.Int64("transaction_id", tx.ID),
			zap.String("status", string(tx.Status)),
		)
		return nil, nil
	}
}

func (p *TransferProcessor) handleSuccess(ctx context.Context, tx *domain.Transaction, reference string) error {
	err := p.repo.UpdateStatus(ctx, tx.ID, domain.StatusInProgress, domain.StatusCompleted,
		transactions_repo.UpdateStatusFields{TransferReference: &reference})
	if err == nil {
		p.logger.Info("Transfer completed",
			zap.Int64("transaction_id", tx.ID),
			zap.String("receipt_no", tx.ReceiptNo),
			zap.String("transfer_reference", reference),
		)
		return nil
	}
	if errors.Is(err, domain.ErrStatusConflict) {
		current, getErr := p.repo.GetByID(ctx, tx.ID)
		if getErr != nil {
			return fmt.Errorf("failed to reload transaction %d after completion conflict: %w", tx.ID, getErr)
		}
		// A redelivered message racing an earlier completion, or a
		// cancellation that won. Either way the terminal status stands.
		p.logger.Info("Completion not applied, terminal status already set",
			zap.Int64("transaction_id", tx.ID),
			zap.String("status", string(current.Status)),
		)
		return nil
	}
	return fmt.Errorf("failed to mark transaction %d completed: %w", tx.ID, err)
}

func (p *TransferProcessor) handleFailure(ctx context.Context, tx *domain.Transaction, msg domain.TransferQueueMessage, cause error) error {
	p.logger.Error("Payout execution failed",
		zap.Int64("transaction_id", tx.ID),
		zap.String("transfer_type", string(msg.TransferType)),
		zap.Int("retry_count", msg.RetryCount),
		zap.Error(cause),
	)

	if done := p.markFailed(ctx, tx); done {
		return nil
	}

	retry := msg
	retry.RetryCount++
	if retry.RetryCount > p.maxRetries {
		return p.deadLetter(ctx, tx, retry)
	}

	payload, err := json.Marshal(retry)
	if err != nil {
		return fmt.Errorf("failed to marshal retry task for transaction %d: %w", tx.ID, err)
	}
	if err := p.producer.Produce(ctx, p.taskTopic, strconv.FormatInt(tx.ID, 10), payload); err != nil {
		return fmt.Errorf("failed to republish transfer task for transaction %d: %w", tx.ID, err)
	}
	p.logger.Warn("Transfer task scheduled for retry",
		zap.Int64("transaction_id", tx.ID),
		zap.Int("retry_count", retry.RetryCount),
		zap.Int("max_retries", p.maxRetries),
	)
	return nil
}

// markFailed applies the FAILED transition. It returns true when a terminal
// status won the race and no retry should be scheduled.
func (p *TransferProcessor) markFailed(ctx context.Context, tx *domain.Transaction) bool {
	err := p.repo.UpdateStatus(ctx, tx.ID, tx.Status, domain.StatusFailed, transactions_repo.UpdateStatusFields{})
	if err == nil {
		tx.Status = domain.StatusFailed
		return false
	}
	if errors.Is(err, domain.ErrStatusConflict) {
		current, getErr := p.repo.GetByID(ctx, tx.ID)
		if getErr == nil && current.Status.Terminal() {
			p.logger.Info("Failure not recorded, terminal status already set",
				zap.Int64("transaction_id", tx.ID),
				zap.String("status", string(current.Status)),
			)
			return true
		}
	}
	p.logger.Error("Failed to mark transaction as failed",
		zap.Int64("transaction_id", tx.ID),
		zap.Error(err),
	)
	return false
}

func (p *TransferProcessor) deadLetter(ctx context.Context, tx *domain.Transaction, msg domain.TransferQueueMessage) error {
	if tx.Status != domain.StatusFailed {
		p.markFailed(ctx, tx)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter message for transaction %d: %w", tx.ID, err)
	}
	if err := p.producer.Produce(ctx, p.deadLetterTopic, strconv.FormatInt(msg.TransactionID, 10), payload); err != nil {
		return fmt.Errorf("failed to publish dead-letter message for transaction %d: %w", tx.ID, err)
	}
	p.logger.Error("Transfer task routed to dead-letter topic",
		zap.Int64("transaction_id", tx.ID),
		zap.String("receipt_no", msg.ReceiptNo),
		zap.Int("retry_count", msg.RetryCount),
	)
	return nil
}
