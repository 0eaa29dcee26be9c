package domain

import (
	"encoding/json"
	"time"
)

// PayoutDetail is the per-channel payout record owned 1:1 by a Transaction.
// It is created in the same database transaction as its Transaction and is
// never re-attached to another one. The Detail payload carries one of the
// typed detail structs below, selected by TransferType.
type PayoutDetail struct {
	TransactionID int64
	TransferType  TransferType
	Detail        json.RawMessage
	CreatedAt     time.Time
}

type BankAccountDepositDetail struct {
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type MobileMoneyDetail struct {
	Provider    string `json:"provider"`
	PhoneNumber string `json:"phone_number"`
}

type CashPickupDetail struct {
	PickupLocation string `json:"pickup_location"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
}

type KiiBankTransferDetail struct {
	DestinationAccountNo string `json:"destination_account_no"`
	DestinationBranch    string `json:"destination_branch"`
}
