package quote

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"settlement/internal/domain"
)

func newTestResolver() *Resolver {
	return NewDefaultResolver(zap.NewNop())
}

func TestResolveSendingDriven(t *testing.T) {
	q := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(100),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
	})

	if !q.IsValid {
		t.Fatalf("expected valid quote, got message %q", q.ValidationMessage)
	}
	if got := q.Fee.StringFixed(2); got != "2.00" {
		t.Errorf("fee = %s, want 2.00", got)
	}
	if got := q.ReceivingAmount.StringFixed(2); got != "83300.00" {
		t.Errorf("receiving amount = %s, want 83300.00", got)
	}
	if got := q.TotalAmount.StringFixed(2); got != "100.00" {
		t.Errorf("total amount = %s, want 100.00", got)
	}
	if got := q.ExchangeRate.StringFixed(2); got != "850.00" {
		t.Errorf("exchange rate = %s, want 850.00", got)
	}
}

func TestResolveFeeFloor(t *testing.T) {
	// 20 * 1% = 0.20 is below the 0.50 floor for KiiBank transfers.
	q := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(20),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeKiiBankTransfer,
	})

	if !q.IsValid {
		t.Fatalf("expected valid quote, got message %q", q.ValidationMessage)
	}
	if got := q.Fee.StringFixed(2); got != "0.50" {
		t.Errorf("fee = %s, want floor 0.50", got)
	}
}

func TestResolveFeeCap(t *testing.T) {
	// Cash pickup has a 2.00 floor, but 5% of 20 is 1.00 and the cap wins.
	q := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(20),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeCashPickup,
	})

	if !q.IsValid {
		t.Fatalf("expected valid quote, got message %q", q.ValidationMessage)
	}
	if got := q.Fee.StringFixed(2); got != "1.00" {
		t.Errorf("fee = %s, want cap 1.00", got)
	}
}

func TestResolveFirstTransactionFree(t *testing.T) {
	q := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(100),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
		FirstTransaction:  true,
	})

	if !q.IsValid {
		t.Fatalf("expected valid quote, got message %q", q.ValidationMessage)
	}
	if !q.Fee.IsZero() {
		t.Errorf("fee = %s, want 0 for first transaction", q.Fee)
	}
	if !q.Introductory {
		t.Error("expected introductory flag on first transaction quote")
	}
	if got := q.ReceivingAmount.StringFixed(2); got != "85000.00" {
		t.Errorf("receiving amount = %s, want 85000.00", got)
	}
}

func TestResolveReceivingDriven(t *testing.T) {
	q := newTestResolver().Resolve(Request{
		ReceivingAmount:       decimal.NewFromInt(83300),
		SendingCurrency:       "GBP",
		ReceivingCurrency:     "NGN",
		TransferType:          domain.TransferTypeBankAccountDeposit,
		ReceivingAmountDriven: true,
	})

	if !q.IsValid {
		t.Fatalf("expected valid quote, got message %q", q.ValidationMessage)
	}
	if got := q.SendingAmount.StringFixed(2); got != "100.00" {
		t.Errorf("sending amount = %s, want 100.00", got)
	}
	if got := q.Fee.StringFixed(2); got != "2.00" {
		t.Errorf("fee = %s, want 2.00", got)
	}

	// The sending-driven quote for the solved amount must reproduce the
	// requested receiving amount within one cent.
	check := newTestResolver().Resolve(Request{
		SendingAmount:     q.SendingAmount,
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
	})
	diff := check.ReceivingAmount.Sub(q.ReceivingAmount).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.01)) {
		t.Errorf("round trip receiving amount %s, want %s within 0.01", check.ReceivingAmount, q.ReceivingAmount)
	}
}

func TestResolveZeroAmountPreview(t *testing.T) {
	q := newTestResolver().Resolve(Request{
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
	})

	if !q.IsValid {
		t.Fatalf("expected valid preview quote, got message %q", q.ValidationMessage)
	}
	if got := q.ExchangeRate.StringFixed(2); got != "850.00" {
		t.Errorf("exchange rate = %s, want 850.00", got)
	}
	if !q.SendingAmount.IsZero() || !q.ReceivingAmount.IsZero() || !q.Fee.IsZero() {
		t.Error("expected zero amounts on preview quote")
	}
}

func TestResolveAmountLimits(t *testing.T) {
	below := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(10),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
	})
	if below.IsValid {
		t.Fatal("expected quote below minimum to be rejected")
	}
	if !strings.Contains(below.ValidationMessage, "minimum amount for GBP is 20.00") {
		t.Errorf("unexpected validation message %q", below.ValidationMessage)
	}

	above := newTestResolver().Resolve(Request{
		SendingAmount:     decimal.NewFromInt(6000),
		SendingCurrency:   "GBP",
		ReceivingCurrency: "NGN",
		TransferType:      domain.TransferTypeBankAccountDeposit,
	})
	if above.IsValid {
		t.Fatal("expected quote above maximum to be rejected")
	}
	if !strings.Contains(above.ValidationMessage, "maximum amount for GBP is 5000.00") {
		t.Errorf("unexpected validation message %q", above.ValidationMessage)
	}
}

func TestResolveReceivingDrivenLimitsUseReceivingCurrency(t *testing.T) {
	// 500 NGN is below the NGN minimum even though it would be a tiny GBP amount.
	q := newTestResolver().Resolve(Request{
		ReceivingAmount:       decimal.NewFromInt(500),
		SendingCurrency:       "GBP",
		ReceivingCurrency:     "NGN",
		TransferType:          domain.TransferTypeBankAccountDeposit,
		ReceivingAmountDriven: true,
	})
	if q.IsValid {
		t.Fatal("expected quote below receiving-currency minimum to be rejected")
	}
	if !strings.Contains(q.ValidationMessage, "minimum amount for NGN is 1000.00") {
		t.Errorf("unexpected validation message %q", q.ValidationMessage)
	}
}

func TestResolveReceivingDrivenBoundsSolvedSendingAmount(t *testing.T) {
	// 5,000,000 NGN is within the NGN receiving bounds, but the implied
	// sending amount of roughly 6,000 GBP breaks the 5,000 GBP maximum.
	q := newTestResolver().Resolve(Request{
		ReceivingAmount:       decimal.NewFromInt(5000000),
		SendingCurrency:       "GBP",
		ReceivingCurrency:     "NGN",
		TransferType:          domain.TransferTypeBankAccountDeposit,
		ReceivingAmountDriven: true,
	})
	if q.IsValid {
		t.Fatal("expected quote with out-of-bounds solved sending amount to be rejected")
	}
	if !strings.Contains(q.ValidationMessage, "maximum amount for GBP is 5000.00") {
		t.Errorf("unexpected validation message %q", q.ValidationMessage)
	}
}

func TestRateLookupFallsBackToDefault(t *testing.T) {
	table := NewRateTable(map[string]decimal.Decimal{}, decimal.NewFromInt(1))
	rate, fromTable := table.Lookup("GBP", "ZAR")
	if fromTable {
		t.Fatal("expected miss for unknown currency pair")
	}
	if !rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("default rate = %s, want 1", rate)
	}

	rate, fromTable = table.Lookup("GBP", "GBP")
	if !fromTable || !rate.Equal(decimal.NewFromInt(1)) {
		t.Errorf("same-currency rate = %s (fromTable=%v), want 1 from table", rate, fromTable)
	}
}
