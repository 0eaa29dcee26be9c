package payout

import (
	"context"

	"settlement/internal/domain"
)

// Executor performs the actual money movement for one transfer type.
// Implementations must be idempotent keyed on the transaction id: a
// transaction whose TransferReference is already set is reported as completed
// with the existing reference instead of being paid out again. That contract
// is what makes at-least-once queue delivery safe.
type Executor interface {
	Execute(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail) (reference string, err error)
}

// Registry maps transfer types to their payout executors.
type Registry struct {
	executors map[domain.TransferType]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.TransferType]Executor)}
}

// NewDefaultRegistry wires the built-in executor per payout channel.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.TransferTypeBankAccountDeposit, &BankAccountDepositExecutor{})
	r.Register(domain.TransferTypeMobileMoney, &MobileMoneyExecutor{})
	r.Register(domain.TransferTypeCashPickup, &CashPickupExecutor{})
	r.Register(domain.TransferTypeKiiBankTransfer, &KiiBankTransferExecutor{})
	return r
}

func (r *Registry) Register(t domain.TransferType, e Executor) {
	r.executors[t] = e
}

// For returns the executor for a transfer type, or false when the type is
// unrecognized.
func (r *Registry) For(t domain.TransferType) (Executor, bool) {
	e, ok := r.executors[t]
	return e, ok
}
