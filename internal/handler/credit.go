package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

type creditCardIssuer interface {
	CreateCreditCard(ctx context.Context, customerID string, creditLimit decimal.Decimal) (*domain.Card, error)
}

type creditService interface {
	AuthorizeCharge(ctx context.Context, cardNumber string, amount decimal.Decimal) (*domain.ChargeResult, error)
	ProcessPayment(ctx context.Context, cardNumber string, amount decimal.Decimal) (*domain.PaymentResult, error)
	GetCardBalance(ctx context.Context, cardNumber string) (*domain.CardBalance, error)
}

type CreditCardHandler struct {
	cards  creditCardIssuer
	credit creditService
}

func NewCreditCardHandler(cards creditCardIssuer, credit creditService) *CreditCardHandler {
	return &CreditCardHandler{cards: cards, credit: credit}
}

type createCreditCardRequest struct {
	CustomerID  string          `json:"customer_id"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

func (r createCreditCardRequest) Validate() []FieldError {
	var errs []FieldError

	if r.CustomerID == "" {
		errs = append(errs, FieldError{Field: "customer_id", Message: "required"})
	}
	if !r.CreditLimit.IsPositive() {
		errs = append(errs, FieldError{Field: "credit_limit", Message: "must be greater than 0"})
	}

	return errs
}

// amountRequest carries charges and payments. A non-positive amount is not
// rejected here: it is a business decline reported in the result.
type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (r amountRequest) Validate() []FieldError {
	if r.Amount == nil {
		return []FieldError{{Field: "amount", Message: "required"}}
	}
	return nil
}

type creditCardDTO struct {
	ID              uuid.UUID       `json:"id"`
	CardNumber      string          `json:"card_number"`
	CustomerID      string          `json:"customer_id"`
	CardType        string          `json:"card_type"`
	CreditCardType  string          `json:"credit_card_type"`
	Status          string          `json:"status"`
	IsActive        bool            `json:"is_active"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	MinimumPayment  decimal.Decimal `json:"minimum_payment"`
	PaymentDueDate  *time.Time      `json:"payment_due_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toCreditCardDTO(c *domain.Card) creditCardDTO {
	return creditCardDTO{
		ID:              c.ID,
		CardNumber:      c.CardNumber,
		CustomerID:      c.CustomerID,
		CardType:        string(c.Type),
		CreditCardType:  string(c.Credit.CreditCardType),
		Status:          string(c.Status),
		IsActive:        c.IsActive,
		CreditLimit:     c.Credit.CreditLimit,
		AvailableCredit: c.Credit.AvailableCredit,
		CurrentBalance:  c.Credit.CurrentBalance,
		MinimumPayment:  c.Credit.MinimumPayment,
		PaymentDueDate:  c.Credit.PaymentDueDate,
		CreatedAt:       c.CreatedAt,
	}
}

type chargeResultDTO struct {
	CardID               uuid.UUID       `json:"card_id"`
	Approved             bool            `json:"approved"`
	AuthorizationCode    string          `json:"authorization_code,omitempty"`
	AuthorizedAmount     decimal.Decimal `json:"authorized_amount"`
	AvailableCreditAfter decimal.Decimal `json:"available_credit_after"`
	DeclineReason        string          `json:"decline_reason,omitempty"`
	ProcessedAt          time.Time       `json:"processed_at"`
}

type paymentResultDTO struct {
	CardID               uuid.UUID       `json:"card_id"`
	Success              bool            `json:"success"`
	RequestedAmount      decimal.Decimal `json:"requested_amount"`
	ActualPaymentAmount  decimal.Decimal `json:"actual_payment_amount"`
	AvailableCreditAfter decimal.Decimal `json:"available_credit_after"`
	CurrentBalanceAfter  decimal.Decimal `json:"current_balance_after"`
	DeclineReason        string          `json:"decline_reason,omitempty"`
	ProcessedAt          time.Time       `json:"processed_at"`
}

type cardBalanceDTO struct {
	CardID                uuid.UUID       `json:"card_id"`
	CardNumber            string          `json:"card_number"`
	CreditLimit           decimal.Decimal `json:"credit_limit"`
	AvailableCredit       decimal.Decimal `json:"available_credit"`
	CurrentBalance        decimal.Decimal `json:"current_balance"`
	MinimumPayment        decimal.Decimal `json:"minimum_payment"`
	UtilizationPercentage decimal.Decimal `json:"utilization_percentage"`
	IsActive              bool            `json:"is_active"`
}

func (h *CreditCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCreditCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	card, err := h.cards.CreateCreditCard(r.Context(), req.CustomerID, req.CreditLimit)
	if err != nil {
		logging.FromContext(r.Context()).Warn("credit card creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/credit-cards/%s/balance", card.CardNumber))
	RespondSuccess(w, http.StatusCreated, toCreditCardDTO(card))
}

func (h *CreditCardHandler) Charge(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.credit.AuthorizeCharge(r.Context(), number, *req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Warn("charge authorization failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, chargeResultDTO{
		CardID:               res.CardID,
		Approved:             res.Approved,
		AuthorizationCode:    res.AuthorizationCode,
		AuthorizedAmount:     res.AuthorizedAmount,
		AvailableCreditAfter: res.AvailableCreditAfter,
		DeclineReason:        string(res.DeclineReason),
		ProcessedAt:          res.ProcessedAt,
	})
}

func (h *CreditCardHandler) Payment(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.credit.ProcessPayment(r.Context(), number, *req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, paymentResultDTO{
		CardID:               res.CardID,
		Success:              res.Success,
		RequestedAmount:      res.RequestedAmount,
		ActualPaymentAmount:  res.ActualPaymentAmount,
		AvailableCreditAfter: res.AvailableCreditAfter,
		CurrentBalanceAfter:  res.CurrentBalanceAfter,
		DeclineReason:        string(res.DeclineReason),
		ProcessedAt:          res.ProcessedAt,
	})
}

func (h *CreditCardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	b, err := h.credit.GetCardBalance(r.Context(), number)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, cardBalanceDTO{
		CardID:                b.CardID,
		CardNumber:            b.CardNumber,
		CreditLimit:           b.CreditLimit,
		AvailableCredit:       b.AvailableCredit,
		CurrentBalance:        b.CurrentBalance,
		MinimumPayment:        b.MinimumPayment,
		UtilizationPercentage: b.UtilizationPercentage,
		IsActive:              b.IsActive,
	})
}

// cardNumberFromPath answers 404 itself for anything that cannot be a card
// number.
func cardNumberFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	number := r.PathValue("number")
	if len(number) != 16 {
		RespondAppError(w, ErrCardNotFound, nil)
		return "", false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			RespondAppError(w, ErrCardNotFound, nil)
			return "", false
		}
	}
	return number, true
}
