package util

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateReceiptNo produces the human-facing receipt code printed on
// customer receipts.
func GenerateReceiptNo() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TRX" + raw[:12]
}

// GenerateReference produces the payout-reference body used by the stub
// executors.
func GenerateReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:16]
}
