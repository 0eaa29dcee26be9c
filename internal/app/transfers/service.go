package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"settlement/internal/domain"
	"settlement/internal/idempotency"
	"settlement/internal/quote"
	"settlement/internal/repository/transactions_repo"
	"settlement/internal/util"
)

// QuoteRejectedError carries the human-readable validation message for a
// quote the resolver refused.
type QuoteRejectedError struct {
	Message string
}

func (e *QuoteRejectedError) Error() string {
	return e.Message
}

type CreateTransferRequest struct {
	SenderID              int64
	IdempotencyKey        string
	SendingAmount         decimal.Decimal
	ReceivingAmount       decimal.Decimal
	SendingCurrency       string
	ReceivingCurrency     string
	SendingCountryCode    string
	ReceivingCountryCode  string
	TransferType          domain.TransferType
	ReceivingAmountDriven bool
	FirstTransaction      bool
	PayoutDetail          json.RawMessage
}

type TransferService interface {
	Quote(req quote.Request) quote.Quote
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*domain.Transaction, error)
	GetTransferByReceiptNo(ctx context.Context, receiptNo string) (*domain.Transaction, error)
	CancelTransfer(ctx context.Context, id int64) (*domain.Transaction, error)
}

type transferService struct {
	repo      transactions_repo.TransactionRepository
	resolver  *quote.Resolver
	guard     *idempotency.Guard
	taskTopic string
	logger    *zap.Logger
}

func NewTransferService(
	repo transactions_repo.TransactionRepository,
	resolver *quote.Resolver,
	guard *idempotency.Guard,
	taskTopic string,
	logger *zap.Logger,
) TransferService {
	return &transferService{
		repo:      repo,
		resolver:  resolver,
		guard:     guard,
		taskTopic: taskTopic,
		logger:    logger,
	}
}

func (s *transferService) Quote(req quote.Request) quote.Quote {
	return s.resolver.Resolve(req)
}

// hasPayoutDetail reports whether the request carries a payout detail
// payload. The column is NOT NULL, and an absent detail would only surface
// later as an opaque storage error.
func hasPayoutDetail(detail json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(detail))
	return trimmed != "" && trimmed != "null"
}

// CreateTransfer resolves the server-side quote, checks the idempotency key
// against previously created transfers of the same sender and persists the
// transaction, its payout detail and the transfer task in one database
// transaction. The transfer task reaches the broker through the outbox relay
// after commit.
func (s *transferService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*domain.Transaction, error) {
	if _, ok := domain.ParseTransferType(string(req.TransferType)); !ok {
		return nil, domain.ErrUnknownTransferType
	}
	if !hasPayoutDetail(req.PayoutDetail) {
		return nil, domain.ErrMissingPayoutDetail
	}

	q := s.resolver.Resolve(quote.Request{
		SendingAmount:         req.SendingAmount,
		ReceivingAmount:       req.ReceivingAmount,
		SendingCurrency:       req.SendingCurrency,
		ReceivingCurrency:     req.ReceivingCurrency,
		SendingCountryCode:    req.SendingCountryCode,
		ReceivingCountryCode:  req.ReceivingCountryCode,
		TransferType:          req.TransferType,
		ReceivingAmountDriven: req.ReceivingAmountDriven,
		FirstTransaction:      req.FirstTransaction,
	})
	if !q.IsValid {
		return nil, &QuoteRejectedError{Message: q.ValidationMessage}
	}
	if !q.SendingAmount.IsPositive() {
		return nil, &QuoteRejectedError{Message: "a positive amount is required to create a transfer"}
	}

	key, present := idempotency.Normalize(req.IdempotencyKey)
	if present {
		existing, err := s.guard.FindExisting(ctx, req.SenderID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate transfer request resolved to existing transaction",
				zap.Int64("sender_id", req.SenderID),
				zap.Int64("transaction_id", existing.ID),
				zap.String("receipt_no", existing.ReceiptNo),
			)
			return existing, nil
		}
	} else {
		// Assign a key anyway so a replayed request can be matched later.
		key = idempotency.Generate()
	}

	tx := &domain.Transaction{
		ReceiptNo:            util.GenerateReceiptNo(),
		IdempotencyKey:       &key,
		SenderID:             req.SenderID,
		SendingAmount:        q.SendingAmount,
		ReceivingAmount:      q.ReceivingAmount,
		Fee:                  q.Fee,
		TotalAmount:          q.TotalAmount,
		ExchangeRate:         q.ExchangeRate,
		SendingCountryCode:   req.SendingCountryCode,
		ReceivingCountryCode: req.ReceivingCountryCode,
		SendingCurrency:      req.SendingCurrency,
		ReceivingCurrency:    req.ReceivingCurrency,
		TransferType:         req.TransferType,
		Status:               domain.StatusPaymentPending,
	}
	detail := &domain.PayoutDetail{
		TransferType: req.TransferType,
		Detail:       req.PayoutDetail,
	}

	created, err := s.repo.CreateTransfer(ctx, tx, detail, s.taskTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	s.logger.Info("Transfer created",
		zap.Int64("transaction_id", created.ID),
		zap.String("receipt_no", created.ReceiptNo),
		zap.Int64("sender_id", created.SenderID),
		zap.String("transfer_type", string(created.TransferType)),
		zap.String("sending_amount", created.SendingAmount.String()),
		zap.String("receiving_amount", created.ReceivingAmount.String()),
	)
	return created, nil
}

func (s *transferService) GetTransferByReceiptNo(ctx context.Context, receiptNo string) (*domain.Transaction, error) {
	return s.repo.GetByReceiptNo(ctx, receiptNo)
}

// CancelTransfer cancels a transfer when its current status allows it.
// Cancellation races with in-flight payout execution; the compare-and-swap
// status write settles the race, and a transfer that completed first stays
// completed.
func (s *transferService) CancelTransfer(ctx context.Context, id int64) (*domain.Transaction, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tx, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tx.Status == domain.StatusCancelled {
			return tx, nil
		}
		if !tx.Status.Cancellable() {
			return nil, domain.ErrCancellationNotAllowed
		}

		err = s.repo.UpdateStatus(ctx, id, tx.Status, domain.StatusCancelled, transactions_repo.UpdateStatusFields{})
		if err == nil {
			s.logger.Info("Transfer cancelled",
				zap.Int64("transaction_id", id),
				zap.String("previous_status", string(tx.Status)),
			)
			return s.repo.GetByID(ctx, id)
		}
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		return nil, err
	}
	return nil, domain.ErrCancellationNotAllowed
}
