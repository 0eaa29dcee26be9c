package transfers_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"settlement/internal/app/transfers"
)

func RegisterRoutes(r chi.Router, s transfers.TransferService, l *zap.Logger) {
	handler := NewTransferHandler(s, l.With(zap.String("component", "TransferHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/quotes", func(r chi.Router) {
		r.Post("/", handler.QuoteHandler)
	})

	r.Route("/transfers", func(r chi.Router) {
		r.Post("/", handler.CreateTransferHandler)
		r.Get("/{receiptNo}", handler.GetTransferHandler)
		r.Post("/{receiptNo}/cancel", handler.CancelTransferHandler)
	})
}
