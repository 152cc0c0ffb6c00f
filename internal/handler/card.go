package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

type cardReporter interface {
	CountActiveCards(ctx context.Context, cardType domain.CardType) (int, error)
	GetTransactionSummary(ctx context.Context, start, end time.Time) (domain.TransactionSummary, error)
}

type CardHandler struct {
	cards cardReporter
}

func NewCardHandler(cards cardReporter) *CardHandler {
	return &CardHandler{cards: cards}
}

type transactionSummaryDTO struct {
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
}

func (h *CardHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	cardType := domain.CardType(strings.ToUpper(r.URL.Query().Get("type")))
	if !cardType.IsValid() {
		RespondValidationError(w, []FieldError{{Field: "type", Message: "must be CREDIT or DEBIT"}})
		return
	}

	n, err := h.cards.CountActiveCards(r.Context(), cardType)
	if err != nil {
		logging.FromContext(r.Context()).Warn("active card count failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"card_type":    cardType,
		"active_count": n,
	})
}

func (h *CardHandler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fields []FieldError
	start, err := time.Parse(time.DateOnly, q.Get("start_date"))
	if err != nil {
		fields = append(fields, FieldError{Field: "start_date", Message: "must be YYYY-MM-DD"})
	}
	end, err := time.Parse(time.DateOnly, q.Get("end_date"))
	if err != nil {
		fields = append(fields, FieldError{Field: "end_date", Message: "must be YYYY-MM-DD"})
	}
	if len(fields) == 0 && end.Before(start) {
		fields = append(fields, FieldError{Field: "end_date", Message: "must not be before start_date"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	summary, err := h.cards.GetTransactionSummary(r.Context(), start, end)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction summary failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, transactionSummaryDTO{
		StartDate:         start.Format(time.DateOnly),
		EndDate:           end.Format(time.DateOnly),
		TotalTransactions: summary.TotalTransactions,
		TotalAmount:       summary.TotalAmount,
	})
}
