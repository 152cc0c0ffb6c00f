package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
)

var fixtureNumbers atomic.Int64

// nextCardNumber hands out numbers outside both issuer ranges the service
// allocates from, so fixtures never collide with generated cards.
func nextCardNumber() string {
	return fmt.Sprintf("5%015d", fixtureNumbers.Add(1))
}

func SeedCreditCard(t *testing.T, db *sql.DB, customerID string, limit, balance decimal.Decimal) *domain.Card {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &domain.Card{
		ID:         uuid.New(),
		CardNumber: nextCardNumber(),
		CustomerID: customerID,
		Type:       domain.CardTypeCredit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Credit: &domain.CreditDetails{
			CreditCardType:  domain.CustomerTypeEnterprise,
			CreditLimit:     limit,
			AvailableCredit: limit.Sub(balance),
			CurrentBalance:  balance,
			MinimumPayment:  domain.MinimumPaymentFor(balance),
		},
	}

	_, err := db.Exec(
		`INSERT INTO cards (id, card_number, customer_id, card_type, is_active, status,
			credit_card_type, credit_limit, available_credit, current_balance, minimum_payment,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.CardNumber, c.CustomerID, c.Type, c.IsActive, c.Status,
		c.Credit.CreditCardType, c.Credit.CreditLimit, c.Credit.AvailableCredit, c.Credit.CurrentBalance,
		c.Credit.MinimumPayment, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed credit card for %s: %v", customerID, err)
	}
	return c
}

func SeedDebitCard(t *testing.T, db *sql.DB, customerID, primaryAccountID string, associated ...string) *domain.Card {
	t.Helper()

	if associated == nil {
		associated = []string{}
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &domain.Card{
		ID:         uuid.New(),
		CardNumber: nextCardNumber(),
		CustomerID: customerID,
		Type:       domain.CardTypeDebit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Debit: &domain.DebitDetails{
			PrimaryAccountID:     primaryAccountID,
			AssociatedAccountIDs: associated,
		},
	}

	_, err := db.Exec(
		`INSERT INTO cards (id, card_number, customer_id, card_type, is_active, status,
			primary_account_id, associated_account_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.CardNumber, c.CustomerID, c.Type, c.IsActive, c.Status,
		c.Debit.PrimaryAccountID, pq.Array(c.Debit.AssociatedAccountIDs), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed debit card for %s: %v", customerID, err)
	}
	return c
}

// GetCreditState reads the fields a charge or payment touches.
func GetCreditState(t *testing.T, db *sql.DB, cardID uuid.UUID) (status domain.CardStatus, available, balance decimal.Decimal, version int64) {
	t.Helper()

	err := db.QueryRow(
		`SELECT status, available_credit, current_balance, version FROM cards WHERE id = $1`, cardID,
	).Scan(&status, &available, &balance, &version)
	if err != nil {
		t.Fatalf("get credit state %s: %v", cardID, err)
	}
	return status, available, balance, version
}

func CountCompensationTasks(t *testing.T, db *sql.DB, status domain.CompensationStatus) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM compensation_tasks WHERE status = $1`, status).Scan(&count)
	if err != nil {
		t.Fatalf("count compensation tasks: %v", err)
	}
	return count
}
