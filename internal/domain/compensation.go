package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CompensationStatus string

const (
	CompensationStatusPending    CompensationStatus = "pending"
	CompensationStatusInProgress CompensationStatus = "in_progress"
	CompensationStatusDone       CompensationStatus = "done"
	CompensationStatusFailed     CompensationStatus = "failed"

	// CompensationStatusUnknown marks a debit whose outcome was never
	// confirmed. It is not retried; reconciliation decides whether a
	// credit-back is owed.
	CompensationStatusUnknown CompensationStatus = "unknown"
)

// RevertDescription tags credit-backs issued to undo a debit card purchase.
const RevertDescription = "REVERT_DEBIT_CARD_PURCHASE"

// CompensationTask is a credit-back still owed to an account after the
// inline attempt failed.
type CompensationTask struct {
	ID          uuid.UUID
	Reference   string
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Status      CompensationStatus
	Attempts    int
	LastError   *string
	LastAttempt *time.Time
	ClaimedAt   *time.Time
	CreatedAt   time.Time
}
