package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

type debitCardIssuer interface {
	CreateDebitCard(ctx context.Context, customerID, primaryAccountID string) (*domain.Card, error)
}

type debitService interface {
	ProcessPurchase(ctx context.Context, cardNumber string, amount decimal.Decimal, kind domain.DebitKind) (*domain.PurchaseResult, error)
	AssociateAccount(ctx context.Context, cardNumber, accountID string) (*domain.Card, error)
	GetPrimaryAccountBalance(ctx context.Context, cardNumber string) (*domain.PrimaryAccountBalance, error)
	GetCardMovements(ctx context.Context, cardNumber string, limit int) ([]domain.Movement, error)
}

type DebitCardHandler struct {
	cards debitCardIssuer
	debit debitService
}

func NewDebitCardHandler(cards debitCardIssuer, debit debitService) *DebitCardHandler {
	return &DebitCardHandler{cards: cards, debit: debit}
}

type createDebitCardRequest struct {
	CustomerID       string `json:"customer_id"`
	PrimaryAccountID string `json:"primary_account_id"`
}

func (r createDebitCardRequest) Validate() []FieldError {
	var errs []FieldError

	if r.CustomerID == "" {
		errs = append(errs, FieldError{Field: "customer_id", Message: "required"})
	}
	if r.PrimaryAccountID == "" {
		errs = append(errs, FieldError{Field: "primary_account_id", Message: "required"})
	}

	return errs
}

type purchaseRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Kind   string           `json:"kind"`
}

func (r purchaseRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	if r.Kind != "" && !domain.DebitKind(r.Kind).IsValid() {
		errs = append(errs, FieldError{Field: "kind", Message: "must be PURCHASE, WITHDRAWAL, or PAYMENT"})
	}

	return errs
}

type associateAccountRequest struct {
	AccountID string `json:"account_id"`
}

func (r associateAccountRequest) Validate() []FieldError {
	if r.AccountID == "" {
		return []FieldError{{Field: "account_id", Message: "required"}}
	}
	return nil
}

type debitCardDTO struct {
	ID                   uuid.UUID `json:"id"`
	CardNumber           string    `json:"card_number"`
	CustomerID           string    `json:"customer_id"`
	CardType             string    `json:"card_type"`
	Status               string    `json:"status"`
	IsActive             bool      `json:"is_active"`
	PrimaryAccountID     string    `json:"primary_account_id"`
	AssociatedAccountIDs []string  `json:"associated_account_ids"`
	CreatedAt            time.Time `json:"created_at"`
}

func toDebitCardDTO(c *domain.Card) debitCardDTO {
	associated := c.Debit.AssociatedAccountIDs
	if associated == nil {
		associated = []string{}
	}
	return debitCardDTO{
		ID:                   c.ID,
		CardNumber:           c.CardNumber,
		CustomerID:           c.CustomerID,
		CardType:             string(c.Type),
		Status:               string(c.Status),
		IsActive:             c.IsActive,
		PrimaryAccountID:     c.Debit.PrimaryAccountID,
		AssociatedAccountIDs: associated,
		CreatedAt:            c.CreatedAt,
	}
}

type accountUsageDTO struct {
	AccountID        string          `json:"account_id"`
	AmountDeducted   decimal.Decimal `json:"amount_deducted"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type purchaseResultDTO struct {
	CardID          uuid.UUID         `json:"card_id"`
	Success         bool              `json:"success"`
	TransactionID   string            `json:"transaction_id,omitempty"`
	RequestedAmount decimal.Decimal   `json:"requested_amount"`
	ProcessedAmount decimal.Decimal   `json:"processed_amount"`
	AccountsUsed    []accountUsageDTO `json:"accounts_used"`
	DeclineReason   string            `json:"decline_reason,omitempty"`
	ProcessedAt     time.Time         `json:"processed_at"`
}

func toPurchaseResultDTO(res *domain.PurchaseResult) purchaseResultDTO {
	used := make([]accountUsageDTO, 0, len(res.AccountsUsed))
	for _, u := range res.AccountsUsed {
		used = append(used, accountUsageDTO{
			AccountID:        u.AccountID,
			AmountDeducted:   u.AmountDeducted,
			RemainingBalance: u.RemainingBalance,
		})
	}
	return purchaseResultDTO{
		CardID:          res.CardID,
		Success:         res.Success,
		TransactionID:   res.TransactionID,
		RequestedAmount: res.RequestedAmount,
		ProcessedAmount: res.ProcessedAmount,
		AccountsUsed:    used,
		DeclineReason:   string(res.DeclineReason),
		ProcessedAt:     res.ProcessedAt,
	}
}

type primaryAccountBalanceDTO struct {
	CardID           uuid.UUID       `json:"card_id"`
	AccountID        string          `json:"account_id"`
	AccountNumber    string          `json:"account_number"`
	AccountType      string          `json:"account_type"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Currency         string          `json:"currency"`
	LastMovementDate *time.Time      `json:"last_movement_date,omitempty"`
}

type movementDTO struct {
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Status          string          `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (h *DebitCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDebitCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	card, err := h.cards.CreateDebitCard(r.Context(), req.CustomerID, req.PrimaryAccountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("debit card creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/debit-cards/%s/primary-account/balance", card.CardNumber))
	RespondSuccess(w, http.StatusCreated, toDebitCardDTO(card))
}

func (h *DebitCardHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.debit.ProcessPurchase(r.Context(), number, *req.Amount, domain.DebitKind(req.Kind))
	if err != nil {
		logging.FromContext(r.Context()).Warn("debit purchase failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPurchaseResultDTO(res))
}

func (h *DebitCardHandler) AssociateAccount(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	var req associateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	card, err := h.debit.AssociateAccount(r.Context(), number, req.AccountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("account association failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toDebitCardDTO(card))
}

func (h *DebitCardHandler) PrimaryAccountBalance(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	b, err := h.debit.GetPrimaryAccountBalance(r.Context(), number)
	if err != nil {
		logging.FromContext(r.Context()).Warn("primary account balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, primaryAccountBalanceDTO{
		CardID:           b.CardID,
		AccountID:        b.Balance.AccountID,
		AccountNumber:    b.Details.AccountNumber,
		AccountType:      b.Details.AccountType,
		AvailableBalance: b.Balance.AvailableBalance,
		CurrentBalance:   b.Balance.CurrentBalance,
		Currency:         b.Balance.Currency,
		LastMovementDate: b.Details.LastMovementDate,
	})
}

func (h *DebitCardHandler) Movements(w http.ResponseWriter, r *http.Request) {
	number, ok := cardNumberFromPath(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be a positive integer"}})
			return
		}
		limit = n
	}

	movements, err := h.debit.GetCardMovements(r.Context(), number, limit)
	if err != nil {
		logging.FromContext(r.Context()).Warn("movements lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	out := make([]movementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementDTO{
			TransactionID:   m.TransactionID,
			Amount:          m.Amount,
			TransactionType: m.TransactionType,
			Status:          m.Status,
			Timestamp:       m.Timestamp,
		})
	}
	RespondSuccess(w, http.StatusOK, out)
}
