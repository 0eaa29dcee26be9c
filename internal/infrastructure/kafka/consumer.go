package kafka_infra

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one fetched message. A nil return commits the
// offset; an error keeps the consumer on the same message.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// messageReader is the slice of *kafka.Reader the consume loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader       messageReader
	topic        string
	groupID      string
	logger       *zap.Logger
	handler      MessageHandler
	retryBackoff time.Duration
}

// NewConsumer builds a consumer-group reader with manual commits: the offset
// is committed only after the handler returns nil, giving at-least-once
// delivery.
func NewConsumer(brokers []string, topic, groupID string, sessionTimeout time.Duration, handler MessageHandler, l *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		SessionTimeout:    sessionTimeout,
		HeartbeatInterval: 3 * time.Second,
		Logger:            kafka.LoggerFunc(l.Sugar().Debugf),
		ErrorLogger:       kafka.LoggerFunc(l.Sugar().Errorf),
	})

	return &Consumer{
		reader:       reader,
		topic:        topic,
		groupID:      groupID,
		logger:       l,
		handler:      handler,
		retryBackoff: 1 * time.Second,
	}
}

func (c *Consumer) Consume(ctx context.Context) error {
	c.logger.Info("Kafka consumer starting message consumption",
		zap.String("topic", c.topic),
		zap.String("group_id", c.groupID),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer.", zap.String("topic", c.topic))
			return ctx.Err()
		default:
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) {
				c.logger.Info("Consumer stopping due to context cancellation or reader closure.",
					zap.String("topic", c.topic))
				return nil
			}
			c.logger.Error("Error fetching message from Kafka", zap.Error(err), zap.String("topic", c.topic))
			time.Sleep(c.retryBackoff)
			continue
		}

		if err := c.handleMessage(ctx, m); err != nil {
			// Only context cancellation escapes handleMessage.
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("Failed to commit offset for Kafka message",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleMessage runs the handler on one message until it succeeds. The
// consumer never advances past a failed message: committing a later offset on
// the same partition would mark the failed one consumed, and after a
// rebalance it would be lost. Persistent poison is the handler's
// responsibility (decode failures are dead-lettered and acknowledged), so an
// error here is transient by contract and retried in place with backoff.
func (c *Consumer) handleMessage(ctx context.Context, m kafka.Message) error {
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, m)
		if err == nil {
			return nil
		}
		c.logger.Error("Error handling Kafka message, retrying in place",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryBackoff):
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
