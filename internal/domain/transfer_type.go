package domain

type TransferType string

const (
	TransferTypeMobileMoney        TransferType = "MobileMoneyTransfer"
	TransferTypeBankAccountDeposit TransferType = "BankAccountDeposit"
	TransferTypeCashPickup         TransferType = "CashPickup"
	TransferTypeKiiBankTransfer    TransferType = "KiiBankTransfer"
)

func ParseTransferType(s string) (TransferType, bool) {
	switch TransferType(s) {
	case TransferTypeMobileMoney, TransferTypeBankAccountDeposit, TransferTypeCashPickup, TransferTypeKiiBankTransfer:
		return TransferType(s), true
	}
	return "", false
}
