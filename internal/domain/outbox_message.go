package domain

import "time"

type OutboxMessageStatus string

const (
	OutboxStatusPending OutboxMessageStatus = "PENDING"
	OutboxStatusSent    OutboxMessageStatus = "SENT"
)

// TransferOutboxMessage is a Kafka publish staged in the same database
// transaction that created its Transaction. The outbox relay publishes
// PENDING rows after commit; a row that fails to publish stays PENDING and is
// swept again, so no committed Transaction can be left without queued work.
type TransferOutboxMessage struct {
	ID            string
	TransactionID int64
	Topic         string
	Key           string
	Payload       []byte
	Status        OutboxMessageStatus
	CreatedAt     time.Time
	SentAt        *time.Time
}
