package domain

// TransferQueueMessage is the unit of payout work published to Kafka after a
// Transaction is created. It is keyed by the transaction id, so all messages
// for one transaction land on the same partition in publish order.
// RetryCount starts at 0 and is incremented by the consumer on every failed
// execution; it is never decremented.
type TransferQueueMessage struct {
	TransactionID int64        `json:"transaction_id"`
	ReceiptNo     string       `json:"receipt_no"`
	TransferType  TransferType `json:"transfer_type"`
	RetryCount    int          `json:"retry_count"`
}
