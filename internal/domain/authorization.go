package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DeclineReason string

const (
	DeclineCardInactive       DeclineReason = "CARD_INACTIVE"
	DeclineInvalidAmount      DeclineReason = "INVALID_AMOUNT"
	DeclineInsufficientCredit DeclineReason = "INSUFFICIENT_CREDIT"
	DeclineInsufficientFunds  DeclineReason = "INSUFFICIENT_FUNDS"
	DeclineZeroCurrentBalance DeclineReason = "ZERO_CURRENT_BALANCE"
)

type ChargeResult struct {
	CardID               uuid.UUID
	Approved             bool
	AuthorizationCode    string
	AuthorizedAmount     decimal.Decimal
	AvailableCreditAfter decimal.Decimal
	DeclineReason        DeclineReason
	ProcessedAt          time.Time
}

type PaymentResult struct {
	CardID               uuid.UUID
	Success              bool
	RequestedAmount      decimal.Decimal
	ActualPaymentAmount  decimal.Decimal
	AvailableCreditAfter decimal.Decimal
	CurrentBalanceAfter  decimal.Decimal
	DeclineReason        DeclineReason
	ProcessedAt          time.Time
}

type DebitKind string

const (
	DebitKindPurchase   DebitKind = "PURCHASE"
	DebitKindWithdrawal DebitKind = "WITHDRAWAL"
	DebitKindPayment    DebitKind = "PAYMENT"
)

func (k DebitKind) IsValid() bool {
	switch k {
	case DebitKindPurchase, DebitKindWithdrawal, DebitKindPayment:
		return true
	default:
		return false
	}
}

// TransactionType is the ledger type recorded for the debit kind.
func (k DebitKind) TransactionType() string {
	switch k {
	case DebitKindWithdrawal:
		return "DEBIT_WITHDRAWAL"
	case DebitKindPayment:
		return "DEBIT_PAYMENT"
	default:
		return "DEBIT_PURCHASE"
	}
}

// AccountUsage is one account touched while settling a debit purchase.
type AccountUsage struct {
	AccountID        string
	AmountDeducted   decimal.Decimal
	RemainingBalance decimal.Decimal
}

func TotalDeducted(usages []AccountUsage) decimal.Decimal {
	total := decimal.Zero
	for _, u := range usages {
		total = total.Add(u.AmountDeducted)
	}
	return total
}

type PurchaseResult struct {
	CardID          uuid.UUID
	Success         bool
	TransactionID   string
	RequestedAmount decimal.Decimal
	ProcessedAmount decimal.Decimal
	AccountsUsed    []AccountUsage
	DeclineReason   DeclineReason
	ProcessedAt     time.Time
}

type CardBalance struct {
	CardID                uuid.UUID
	CardNumber            string
	CreditLimit           decimal.Decimal
	AvailableCredit       decimal.Decimal
	CurrentBalance        decimal.Decimal
	MinimumPayment        decimal.Decimal
	UtilizationPercentage decimal.Decimal
	IsActive              bool
}

type DailyBalance struct {
	ID              uuid.UUID
	CustomerID      string
	CardID          uuid.UUID
	CardNumber      string
	BalanceDate     time.Time
	CurrentBalance  decimal.Decimal
	AvailableCredit decimal.Decimal
	CreditLimit     decimal.Decimal
	CapturedAt      time.Time
}
