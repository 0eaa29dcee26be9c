package kafka_infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type readerStub struct {
	messages []kafka.Message
	next     int

	committed []int64

	cancel context.CancelFunc
}

func (r *readerStub) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.next >= len(r.messages) {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := r.messages[r.next]
	r.next++
	return m, nil
}

func (r *readerStub) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *readerStub) Close() error { return nil }

func TestConsumeRetriesFailedMessageBeforeAdvancing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &readerStub{
		messages: []kafka.Message{
			{Topic: "transfer_tasks", Partition: 0, Offset: 5, Value: []byte("first")},
			{Topic: "transfer_tasks", Partition: 0, Offset: 6, Value: []byte("second")},
		},
		cancel: cancel,
	}

	// The first message fails twice before succeeding; the consumer must not
	// fetch the next message until it has been handled and committed.
	failuresLeft := 2
	var handled []string
	handler := func(ctx context.Context, m kafka.Message) error {
		if string(m.Value) == "first" && failuresLeft > 0 {
			failuresLeft--
			return errors.New("storage hiccup")
		}
		handled = append(handled, string(m.Value))
		return nil
	}

	consumer := &Consumer{
		reader:       reader,
		topic:        "transfer_tasks",
		groupID:      "test-group",
		logger:       zap.NewNop(),
		handler:      handler,
		retryBackoff: time.Millisecond,
	}

	if err := consumer.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(handled) != 2 || handled[0] != "first" || handled[1] != "second" {
		t.Fatalf("handled = %v, want [first second] in order", handled)
	}
	if failuresLeft != 0 {
		t.Fatalf("expected the failing message to be retried, %d failures unconsumed", failuresLeft)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 5 || reader.committed[1] != 6 {
		t.Fatalf("committed offsets = %v, want [5 6]", reader.committed)
	}
}

func TestConsumeStopsOnCancelWhileRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reader := &readerStub{
		messages: []kafka.Message{
			{Topic: "transfer_tasks", Partition: 0, Offset: 5, Value: []byte("stuck")},
		},
		cancel: cancel,
	}

	attempts := 0
	handler := func(ctx context.Context, m kafka.Message) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("still failing")
	}

	consumer := &Consumer{
		reader:       reader,
		topic:        "transfer_tasks",
		groupID:      "test-group",
		logger:       zap.NewNop(),
		handler:      handler,
		retryBackoff: time.Millisecond,
	}

	err := consumer.Consume(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(reader.committed) != 0 {
		t.Fatalf("committed offsets = %v, want none for an unhandled message", reader.committed)
	}
}
