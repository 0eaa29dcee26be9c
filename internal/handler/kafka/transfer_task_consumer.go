package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"settlement/internal/app/transfers"
	"settlement/internal/domain"
	kafka_infra "settlement/internal/infrastructure/kafka"
)

// TransferTaskMessageHandler adapts the transfer processor to the Kafka
// consumer. A payload that cannot even be decoded is forwarded to the
// dead-letter topic and acknowledged, so a poison message cannot wedge the
// partition.
func TransferTaskMessageHandler(
	processor *transfers.TransferProcessor,
	producer kafka_infra.Producer,
	deadLetterTopic string,
	logger *zap.Logger,
) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var task domain.TransferQueueMessage
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			logger.Error("Failed to unmarshal transfer task, routing to dead-letter topic",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			if dlqErr := producer.Produce(ctx, deadLetterTopic, string(msg.Key), msg.Value); dlqErr != nil {
				return dlqErr
			}
			return nil
		}

		logger.Info("Processing transfer task",
			zap.Int64("transaction_id", task.TransactionID),
			zap.String("receipt_no", task.ReceiptNo),
			zap.String("transfer_type", string(task.TransferType)),
			zap.Int("retry_count", task.RetryCount),
			zap.ByteString("key", msg.Key),
		)

		if err := processor.ProcessMessage(ctx, task); err != nil {
			logger.Error("Failed to process transfer task",
				zap.Int64("transaction_id", task.TransactionID),
				zap.Error(err),
			)
			return err
		}
		return nil
	}
}
