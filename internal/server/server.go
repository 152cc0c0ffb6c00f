// Package server assembles the HTTP routes and middleware chain.
package server

import (
	"net/http"

	"github.com/josh-kwaku/card-service/internal/handler"
	"github.com/josh-kwaku/card-service/internal/metrics"
	"github.com/josh-kwaku/card-service/internal/middleware"
)

type Handlers struct {
	Health *handler.HealthHandler
	Credit *handler.CreditCardHandler
	Debit  *handler.DebitCardHandler
	Cards  *handler.CardHandler
}

type Options struct {
	JWTSecret   string
	Idempotency middleware.IdempotencyRepository
	Metrics     *metrics.Metrics
}

// NewHandler returns the root handler. Health and metrics endpoints are
// public; everything under /api/v1 needs a client token, and its POSTs an
// Idempotency-Key.
func NewHandler(h Handlers, opts Options) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/v1/credit-cards", h.Credit.Create)
	api.HandleFunc("POST /api/v1/credit-cards/{number}/charges", h.Credit.Charge)
	api.HandleFunc("POST /api/v1/credit-cards/{number}/payments", h.Credit.Payment)
	api.HandleFunc("GET /api/v1/credit-cards/{number}/balance", h.Credit.Balance)

	api.HandleFunc("POST /api/v1/debit-cards", h.Debit.Create)
	api.HandleFunc("POST /api/v1/debit-cards/{number}/purchases", h.Debit.Purchase)
	api.HandleFunc("POST /api/v1/debit-cards/{number}/accounts", h.Debit.AssociateAccount)
	api.HandleFunc("GET /api/v1/debit-cards/{number}/primary-account/balance", h.Debit.PrimaryAccountBalance)
	api.HandleFunc("GET /api/v1/debit-cards/{number}/movements", h.Debit.Movements)

	api.HandleFunc("GET /api/v1/cards/active-count", h.Cards.ActiveCount)
	api.HandleFunc("GET /api/v1/transactions/summary", h.Cards.TransactionSummary)

	var protected http.Handler = api
	if opts.Idempotency != nil {
		protected = middleware.Idempotency(opts.Idempotency)(protected)
	}
	protected = middleware.Logging(protected)
	protected = middleware.Auth(opts.JWTSecret)(protected)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", h.Health.Liveness)
	root.HandleFunc("GET /health/ready", h.Health.Readiness)
	root.Handle("GET /metrics", opts.Metrics.Handler())
	root.Handle("/api/", protected)

	var out http.Handler = root
	out = middleware.Metrics(opts.Metrics)(out)
	out = middleware.Recovery(out)
	out = middleware.RequestID(out)
	return out
}
