package quote

import (
	"github.com/shopspring/decimal"

	"settlement/internal/domain"
)

// RateTable maps currency pairs to exchange rates. Lookups that miss the
// table degrade to the default rate instead of failing, so a quote can always
// be produced.
type RateTable struct {
	rates       map[string]decimal.Decimal
	defaultRate decimal.Decimal
}

func NewRateTable(rates map[string]decimal.Decimal, defaultRate decimal.Decimal) *RateTable {
	cp := make(map[string]decimal.Decimal, len(rates))
	for pair, rate := range rates {
		cp[pair] = rate
	}
	return &RateTable{rates: cp, defaultRate: defaultRate}
}

// Lookup returns the rate for a currency pair and whether it came from the
// table. The second return is false when the default rate was substituted.
func (t *RateTable) Lookup(sendingCurrency, receivingCurrency string) (decimal.Decimal, bool) {
	if sendingCurrency == receivingCurrency {
		return decimal.NewFromInt(1), true
	}
	if rate, ok := t.rates[sendingCurrency+"/"+receivingCurrency]; ok && rate.IsPositive() {
		return rate, true
	}
	return t.defaultRate, false
}

// FeePolicy is the per-channel fee rule: a percentage of the sending amount
// with a floor, capped at 5% of the amount by the resolver.
type FeePolicy struct {
	Percent decimal.Decimal
	MinFee  decimal.Decimal
}

// AmountLimits bounds the driven amount for one currency.
type AmountLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultRates returns the built-in corridor table used when no external rate
// source is configured.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"GBP/NGN": decimal.NewFromFloat(850.0),
		"USD/NGN": decimal.NewFromFloat(780.0),
		"EUR/NGN": decimal.NewFromFloat(905.5),
		"GBP/GHS": decimal.NewFromFloat(15.2),
		"USD/GHS": decimal.NewFromFloat(12.1),
		"GBP/KES": decimal.NewFromFloat(163.4),
		"USD/KES": decimal.NewFromFloat(129.0),
	}
}

// DefaultFeePolicies returns the per-channel fee rules in sending-currency
// units.
func DefaultFeePolicies() map[domain.TransferType]FeePolicy {
	return map[domain.TransferType]FeePolicy{
		domain.TransferTypeBankAccountDeposit: {Percent: decimal.NewFromFloat(0.02), MinFee: decimal.NewFromFloat(1.0)},
		domain.TransferTypeMobileMoney:        {Percent: decimal.NewFromFloat(0.015), MinFee: decimal.NewFromFloat(0.5)},
		domain.TransferTypeCashPickup:         {Percent: decimal.NewFromFloat(0.03), MinFee: decimal.NewFromFloat(2.0)},
		domain.TransferTypeKiiBankTransfer:    {Percent: decimal.NewFromFloat(0.01), MinFee: decimal.NewFromFloat(0.5)},
	}
}

// DefaultAmountLimits returns per-currency sending bounds.
func DefaultAmountLimits() map[string]AmountLimits {
	return map[string]AmountLimits{
		"GBP": {Min: decimal.NewFromInt(20), Max: decimal.NewFromInt(5000)},
		"USD": {Min: decimal.NewFromInt(20), Max: decimal.NewFromInt(5000)},
		"EUR": {Min: decimal.NewFromInt(20), Max: decimal.NewFromInt(5000)},
		"NGN": {Min: decimal.NewFromInt(1000), Max: decimal.NewFromInt(5000000)},
		"GHS": {Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(75000)},
		"KES": {Min: decimal.NewFromInt(1000), Max: decimal.NewFromInt(650000)},
	}
}
