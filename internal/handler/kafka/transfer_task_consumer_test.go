package kafka

import (
	"context"
	"testing"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"settlement/internal/app/transfers"
	"settlement/internal/payout"
)

type producerStub struct {
	topics []string
	values [][]byte
}

func (p *producerStub) Produce(ctx context.Context, topic, key string, value []byte) error {
	p.topics = append(p.topics, topic)
	p.values = append(p.values, value)
	return nil
}

func (p *producerStub) Close() error { return nil }

func TestTransferTaskMessageHandlerPoisonMessage(t *testing.T) {
	producer := &producerStub{}
	processor := transfers.NewTransferProcessor(nil, payout.NewRegistry(), producer, "transfer_tasks", "transfer_tasks_dlq", 3, zap.NewNop())
	handler := TransferTaskMessageHandler(processor, producer, "transfer_tasks_dlq", zap.NewNop())

	msg := segmentio.Message{
		Topic: "transfer_tasks",
		Key:   []byte("1"),
		Value: []byte("not json"),
	}

	// A message that cannot be decoded is acknowledged after forwarding, so
	// it never wedges the partition.
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("expected poison message to be acknowledged, got %v", err)
	}
	if len(producer.topics) != 1 || producer.topics[0] != "transfer_tasks_dlq" {
		t.Fatalf("expected the raw payload on the dead-letter topic, got %v", producer.topics)
	}
	if string(producer.values[0]) != "not json" {
		t.Errorf("dead-letter payload = %q, want the raw bytes", producer.values[0])
	}
}
