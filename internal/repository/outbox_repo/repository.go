package outbox_repo

import (
	"context"

	"settlement/internal/domain"
)

type OutboxRepository interface {
	GetPendingMessages(ctx context.Context, limit int) ([]domain.TransferOutboxMessage, error)
	MarkMessagesAsSent(ctx context.Context, ids []string) error
}
