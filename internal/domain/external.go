package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shapes exchanged with the Account, Customer and Transaction services.

type AccountBalance struct {
	AccountID        string
	AvailableBalance decimal.Decimal
	CurrentBalance   decimal.Decimal
	Currency         string
}

type AccountDetails struct {
	AccountID        string
	AccountNumber    string
	AccountType      string
	Currency         string
	LastMovementDate *time.Time
}

type AccountMovement struct {
	Amount      decimal.Decimal
	Description string
	Reference   string
}

type AccountMovementResult struct {
	TransactionID string
	Status        string
}

type Customer struct {
	ID           string
	Type         CustomerType
	FullName     string
	DocumentType string
	Document     string
}

type AffectedAccount struct {
	AccountID      string
	AmountDeducted decimal.Decimal
}

type TransactionRecord struct {
	TransactionID     string
	CardID            uuid.UUID
	Amount            decimal.Decimal
	TransactionType   string
	AuthorizationCode string
	Status            string
	Timestamp         time.Time
	AccountsAffected  []AffectedAccount
}

type TransactionSummary struct {
	TotalTransactions int64
	TotalAmount       decimal.Decimal
}

type Movement struct {
	TransactionID   string
	Amount          decimal.Decimal
	TransactionType string
	Status          string
	Timestamp       time.Time
}

// PrimaryAccountBalance is the balance of a debit card's primary account
// together with the account's details.
type PrimaryAccountBalance struct {
	CardID  uuid.UUID
	Balance AccountBalance
	Details AccountDetails
}
