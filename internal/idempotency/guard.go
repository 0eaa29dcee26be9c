package idempotency

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"settlement/internal/domain"
)

// Store is the slice of the transaction record store the guard needs.
type Store interface {
	FindByIdempotencyKey(ctx context.Context, senderID int64, key string) (*domain.Transaction, error)
}

// Normalize trims the caller-supplied key. An empty or whitespace-only key is
// reported as absent.
func Normalize(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	return key, true
}

// Generate produces a fresh key for callers that supplied none, so the
// created transaction is still protected against replays.
func Generate() string {
	return uuid.NewString()
}

// Guard resolves an idempotency key to a previously created transaction for
// the same sender. The storage-level unique index on (sender_id, key) remains
// the final backstop for the check-then-create race.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// FindExisting returns the transaction previously created with this key by
// this sender, or nil when the key is unused.
func (g *Guard) FindExisting(ctx context.Context, senderID int64, key string) (*domain.Transaction, error) {
	tx, err := g.store.FindByIdempotencyKey(ctx, senderID, key)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}
