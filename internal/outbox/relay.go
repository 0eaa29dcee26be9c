package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	kafka_infra "settlement/internal/infrastructure/kafka"
	"settlement/internal/repository/outbox_repo"
)

const pendingBatchSize = 25

// Relay publishes committed-but-unsent transfer tasks to Kafka. Because the
// outbox row is written in the same database transaction as the Transaction,
// a Transaction stuck in PAYMENT_PENDING with no broker message can only mean
// a PENDING outbox row, and the relay's next sweep picks it up. Rows are
// marked SENT only after a successful publish; a failed publish leaves the
// row PENDING for the next sweep.
type Relay struct {
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewRelay(
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Relay {
	return &Relay{
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("Starting outbox relay...", zap.Duration("poll_interval", r.pollInterval))
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopping.")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep publishes one batch of pending outbox messages.
func (r *Relay) Sweep(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, r.pollTimeout)
	messages, err := r.outboxRepo.GetPendingMessages(queryCtx, pendingBatchSize)
	cancel()
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	r.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))

	var sentIDs []string
	for _, msg := range messages {
		if err := r.producer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			r.logger.Error("Failed to publish outbox message, leaving it pending",
				zap.String("message_id", msg.ID),
				zap.Int64("transaction_id", msg.TransactionID),
				zap.String("topic", msg.Topic),
				zap.Error(err),
			)
			continue
		}
		sentIDs = append(sentIDs, msg.ID)
	}

	if len(sentIDs) == 0 {
		return
	}
	if err := r.outboxRepo.MarkMessagesAsSent(ctx, sentIDs); err != nil {
		// The messages were published but stay PENDING; the next sweep
		// republishes them, which the consumer tolerates under at-least-once.
		r.logger.Error("Failed to mark outbox messages as sent", zap.Error(err))
		return
	}
	r.logger.Info("Outbox messages published", zap.Int("count", len(sentIDs)))
}
