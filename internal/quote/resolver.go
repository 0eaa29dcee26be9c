package quote

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"settlement/internal/domain"
)

// maxFeeRatio caps every fee at 5% of the sending amount.
var maxFeeRatio = decimal.NewFromFloat(0.05)

// solveIterations bounds the fixed-point iteration in receiving-amount-driven
// mode. The fee is a slowly varying, clamped function of the sending amount,
// so three passes land within rounding tolerance.
const solveIterations = 3

// Request describes one quote computation. Exactly one of SendingAmount or
// ReceivingAmount drives the quote, selected by ReceivingAmountDriven.
type Request struct {
	SendingAmount         decimal.Decimal
	ReceivingAmount       decimal.Decimal
	SendingCurrency       string
	ReceivingCurrency     string
	SendingCountryCode    string
	ReceivingCountryCode  string
	TransferType          domain.TransferType
	ReceivingAmountDriven bool
	FirstTransaction      bool
}

// Quote is the resolver output. IsValid=false carries a human-readable
// ValidationMessage; the resolver itself never returns an error.
type Quote struct {
	SendingAmount     decimal.Decimal
	ReceivingAmount   decimal.Decimal
	Fee               decimal.Decimal
	TotalAmount       decimal.Decimal
	ExchangeRate      decimal.Decimal
	Introductory      bool
	IsValid           bool
	ValidationMessage string
}

// Resolver computes amounts, fee and rate for a requested transfer. It holds
// no mutable state and is safe for concurrent use.
type Resolver struct {
	rates  *RateTable
	fees   map[domain.TransferType]FeePolicy
	limits map[string]AmountLimits
	logger *zap.Logger
}

func NewResolver(rates *RateTable, fees map[domain.TransferType]FeePolicy, limits map[string]AmountLimits, logger *zap.Logger) *Resolver {
	return &Resolver{rates: rates, fees: fees, limits: limits, logger: logger}
}

// NewDefaultResolver builds a resolver on the built-in corridor tables.
func NewDefaultResolver(logger *zap.Logger) *Resolver {
	return NewResolver(
		NewRateTable(DefaultRates(), decimal.NewFromInt(1)),
		DefaultFeePolicies(),
		DefaultAmountLimits(),
		logger,
	)
}

func (r *Resolver) Resolve(req Request) Quote {
	rate, fromTable := r.rates.Lookup(req.SendingCurrency, req.ReceivingCurrency)
	if !fromTable {
		r.logger.Warn("no rate for currency pair, using default rate",
			zap.String("sending_currency", req.SendingCurrency),
			zap.String("receiving_currency", req.ReceivingCurrency),
			zap.String("default_rate", rate.String()),
		)
	}

	driven := req.SendingAmount
	drivenCurrency := req.SendingCurrency
	if req.ReceivingAmountDriven {
		driven = req.ReceivingAmount
		drivenCurrency = req.ReceivingCurrency
	}

	// Zero-amount preview: a quote screen may ask for the live rate before
	// any amount is entered.
	if driven.IsZero() {
		return Quote{
			ExchangeRate: rate,
			Introductory: req.FirstTransaction,
			IsValid:      true,
		}
	}

	if msg, ok := r.checkLimits(driven, drivenCurrency); !ok {
		return Quote{ExchangeRate: rate, IsValid: false, ValidationMessage: msg}
	}

	policy := r.feePolicy(req.TransferType)

	if req.ReceivingAmountDriven {
		return r.resolveReceivingDriven(req, rate, policy)
	}
	return r.resolveSendingDriven(req, rate, policy)
}

func (r *Resolver) resolveSendingDriven(req Request, rate decimal.Decimal, policy FeePolicy) Quote {
	sending := req.SendingAmount
	fee := r.fee(sending, policy, req.FirstTransaction)
	receiving := sending.Sub(fee).Mul(rate).Round(2)

	return Quote{
		SendingAmount:   sending.Round(2),
		ReceivingAmount: receiving,
		Fee:             fee,
		TotalAmount:     sending.Round(2),
		ExchangeRate:    rate,
		Introductory:    req.FirstTransaction,
		IsValid:         true,
	}
}

// resolveReceivingDriven solves sendingAmount from
// receivingAmount = (sendingAmount - fee(sendingAmount)) * rate by fixed-point
// iteration. The fee clamp breaks linearity, so there is no closed form.
func (r *Resolver) resolveReceivingDriven(req Request, rate decimal.Decimal, policy FeePolicy) Quote {
	receiving := req.ReceivingAmount
	base := receiving.Div(rate)

	sending := base
	for i := 0; i < solveIterations; i++ {
		sending = base.Add(r.fee(sending, policy, req.FirstTransaction))
	}
	fee := r.fee(sending, policy, req.FirstTransaction)
	sending = base.Add(fee).Round(2)

	// The solved sending amount is bound by its own currency's limits; a
	// receiving amount within bounds can still imply an out-of-bounds send.
	if msg, ok := r.checkLimits(sending, req.SendingCurrency); !ok {
		return Quote{ExchangeRate: rate, IsValid: false, ValidationMessage: msg}
	}

	return Quote{
		SendingAmount:   sending,
		ReceivingAmount: receiving.Round(2),
		Fee:             fee,
		TotalAmount:     sending,
		ExchangeRate:    rate,
		Introductory:    req.FirstTransaction,
		IsValid:         true,
	}
}

// fee applies the channel percentage clamped to [MinFee, 5% of amount],
// rounded to 2 decimal places. The first transaction of a sender is free.
func (r *Resolver) fee(amount decimal.Decimal, policy FeePolicy, firstTransaction bool) decimal.Decimal {
	if firstTransaction || !amount.IsPositive() {
		return decimal.Zero
	}
	fee := amount.Mul(policy.Percent)
	if fee.LessThan(policy.MinFee) {
		fee = policy.MinFee
	}
	if ceiling := amount.Mul(maxFeeRatio); fee.GreaterThan(ceiling) {
		fee = ceiling
	}
	return fee.Round(2)
}

func (r *Resolver) feePolicy(transferType domain.TransferType) FeePolicy {
	if policy, ok := r.fees[transferType]; ok {
		return policy
	}
	r.logger.Warn("no fee policy for transfer type, using bank deposit policy",
		zap.String("transfer_type", string(transferType)))
	return r.fees[domain.TransferTypeBankAccountDeposit]
}

func (r *Resolver) checkLimits(amount decimal.Decimal, currency string) (string, bool) {
	limits, ok := r.limits[currency]
	if !ok {
		if amount.IsNegative() {
			return "amount must be greater than zero", false
		}
		return "", true
	}
	if amount.LessThan(limits.Min) {
		return fmt.Sprintf("minimum amount for %s is %s", currency, limits.Min.StringFixed(2)), false
	}
	if amount.GreaterThan(limits.Max) {
		return fmt.Sprintf("maximum amount for %s is %s", currency, limits.Max.StringFixed(2)), false
	}
	return "", true
}
