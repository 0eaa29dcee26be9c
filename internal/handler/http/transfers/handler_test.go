package transfers_http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"settlement/internal/app/transfers"
	"settlement/internal/domain"
	"settlement/internal/quote"
)

type serviceStub struct {
	quote quote.Quote

	tx        *domain.Transaction
	createErr error
	getErr    error
	cancelErr error

	createdReq transfers.CreateTransferRequest
	cancelID   int64
}

func (s *serviceStub) Quote(req quote.Request) quote.Quote {
	return s.quote
}

func (s *serviceStub) CreateTransfer(ctx context.Context, req transfers.CreateTransferRequest) (*domain.Transaction, error) {
	s.createdReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.tx, nil
}

func (s *serviceStub) GetTransferByReceiptNo(ctx context.Context, receiptNo string) (*domain.Transaction, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.tx, nil
}

func (s *serviceStub) CancelTransfer(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.cancelID = id
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return s.tx, nil
}

func newTestRouter(svc *serviceStub) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return r
}

func testTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:           9,
		ReceiptNo:    "TRX9",
		SenderID:     7,
		TransferType: domain.TransferTypeBankAccountDeposit,
		Status:       domain.StatusPaymentPending,
	}
}

func TestCreateTransferHandler(t *testing.T) {
	svc := &serviceStub{tx: testTransaction()}
	router := newTestRouter(svc)

	body := `{
		"sender_id": 7,
		"sending_amount": "100",
		"sending_currency": "GBP",
		"receiving_currency": "NGN",
		"transfer_type": "BankAccountDeposit",
		"payout_detail": {"bank_code":"058","account_number":"0123456789"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-77")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.createdReq.IdempotencyKey != "key-77" {
		t.Errorf("idempotency key = %q, want key-77", svc.createdReq.IdempotencyKey)
	}
	if svc.createdReq.SenderID != 7 {
		t.Errorf("sender id = %d, want 7", svc.createdReq.SenderID)
	}

	var resp TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.ReceiptNo != "TRX9" || resp.Status != string(domain.StatusPaymentPending) {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCreateTransferHandlerRejectedQuote(t *testing.T) {
	svc := &serviceStub{createErr: &transfers.QuoteRejectedError{Message: "minimum amount for GBP is 20.00"}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"sender_id":7}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "minimum amount for GBP") {
		t.Errorf("body = %q, want the validation message", rec.Body.String())
	}
}

func TestCreateTransferHandlerUnknownType(t *testing.T) {
	svc := &serviceStub{createErr: domain.ErrUnknownTransferType}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"sender_id":7,"transfer_type":"WireTransfer"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateTransferHandlerMissingPayoutDetail(t *testing.T) {
	svc := &serviceStub{createErr: domain.ErrMissingPayoutDetail}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"sender_id":7,"transfer_type":"BankAccountDeposit"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "payout_detail") {
		t.Errorf("body = %q, want mention of payout_detail", rec.Body.String())
	}
}

func TestCreateTransferHandlerMissingSender(t *testing.T) {
	svc := &serviceStub{tx: testTransaction()}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"sending_amount":"100"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetTransferHandlerNotFound(t *testing.T) {
	svc := &serviceStub{getErr: domain.ErrTransactionNotFound}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/transfers/TRX404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCancelTransferHandler(t *testing.T) {
	tx := testTransaction()
	svc := &serviceStub{tx: tx}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers/TRX9/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.cancelID != tx.ID {
		t.Errorf("cancelled transaction %d, want %d", svc.cancelID, tx.ID)
	}
}

func TestCancelTransferHandlerRefused(t *testing.T) {
	svc := &serviceStub{tx: testTransaction(), cancelErr: domain.ErrCancellationNotAllowed}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/transfers/TRX9/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestQuoteHandler(t *testing.T) {
	svc := &serviceStub{quote: quote.Quote{IsValid: true}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"sending_amount":"100","sending_currency":"GBP","receiving_currency":"NGN","transfer_type":"BankAccountDeposit"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp QuoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.IsValid {
		t.Error("expected a valid quote response")
	}
}
