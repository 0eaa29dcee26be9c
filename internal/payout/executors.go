package payout

import (
	"context"
	"encoding/json"
	"fmt"

	"settlement/internal/domain"
	"settlement/internal/util"
)

// The concrete executors below stand in for the partner payout APIs. Each
// validates the payout detail for its channel and issues a reference in the
// partner's format. Real integrations replace these behind the Executor
// interface without touching the consumer.

type BankAccountDepositExecutor struct{}

func (e *BankAccountDepositExecutor) Execute(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail) (string, error) {
	if tx.HasTransferReference() {
		return *tx.TransferReference, nil
	}
	var d domain.BankAccountDepositDetail
	if err := json.Unmarshal(detail.Detail, &d); err != nil {
		return "", fmt.Errorf("decode bank deposit detail: %w", err)
	}
	if d.AccountNumber == "" || d.BankCode == "" {
		return "", fmt.Errorf("bank deposit for transaction %d missing bank code or account number", tx.ID)
	}
	return "BD-" + util.GenerateReference(), nil
}

type MobileMoneyExecutor struct{}

func (e *MobileMoneyExecutor) Execute(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail) (string, error) {
	if tx.HasTransferReference() {
		return *tx.TransferReference, nil
	}
	var d domain.MobileMoneyDetail
	if err := json.Unmarshal(detail.Detail, &d); err != nil {
		return "", fmt.Errorf("decode mobile money detail: %w", err)
	}
	if d.Provider == "" || d.PhoneNumber == "" {
		return "", fmt.Errorf("mobile money payout for transaction %d missing provider or phone number", tx.ID)
	}
	return "MM-" + util.GenerateReference(), nil
}

type CashPickupExecutor struct{}

func (e *CashPickupExecutor) Execute(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail) (string, error) {
	if tx.HasTransferReference() {
		return *tx.TransferReference, nil
	}
	var d domain.CashPickupDetail
	if err := json.Unmarshal(detail.Detail, &d); err != nil {
		return "", fmt.Errorf("decode cash pickup detail: %w", err)
	}
	if d.RecipientName == "" {
		return "", fmt.Errorf("cash pickup for transaction %d missing recipient name", tx.ID)
	}
	return "CP-" + util.GenerateReference(), nil
}

type KiiBankTransferExecutor struct{}

func (e *KiiBankTransferExecutor) Execute(ctx context.Context, tx *domain.Transaction, detail *domain.PayoutDetail) (string, error) {
	if tx.HasTransferReference() {
		return *tx.TransferReference, nil
	}
	var d domain.KiiBankTransferDetail
	if err := json.Unmarshal(detail.Detail, &d); err != nil {
		return "", fmt.Errorf("decode kiibank transfer detail: %w", err)
	}
	if d.DestinationAccountNo == "" {
		return "", fmt.Errorf("kiibank transfer for transaction %d missing destination account", tx.ID)
	}
	return "KB-" + util.GenerateReference(), nil
}
