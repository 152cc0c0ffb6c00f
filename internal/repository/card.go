package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
)

const cardColumns = `id, card_number, customer_id, card_type, is_active, status,
	credit_card_type, credit_limit, available_credit, current_balance,
	payment_due_date, minimum_payment, is_overdue, overdue_days,
	primary_account_id, associated_account_ids,
	pending_authorization_code, pending_amount, pending_since,
	version, created_at, updated_at`

const (
	constraintCardNumber        = "cards_card_number_key"
	constraintOnePersonalCredit = "cards_one_personal_credit_key"
)

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// GetByNumber resolves either card variant in one query; the card_type
// column decides which details are populated.
func (r *CardRepository) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE card_number = $1`, number,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByNumber: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return c, nil
}

func (r *CardRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE card_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByNumber: %w", err)
	}
	return exists, nil
}

func (r *CardRepository) NextNumberSequence(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('card_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("NextNumberSequence: %w", err)
	}
	return n, nil
}

func (r *CardRepository) CountActiveByCustomer(ctx context.Context, customerID string, cardType domain.CardType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE customer_id = $1 AND card_type = $2 AND is_active`,
		customerID, cardType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountActiveByCustomer: %w", err)
	}
	return n, nil
}

func (r *CardRepository) CountActive(ctx context.Context, cardType domain.CardType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE card_type = $1 AND is_active`, cardType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountActive: %w", err)
	}
	return n, nil
}

func (r *CardRepository) ListActiveCredit(ctx context.Context) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		WHERE card_type = $1 AND is_active ORDER BY created_at`,
		domain.CardTypeCredit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCredit: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveCredit: scan: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActiveCredit: rows: %w", err)
	}
	return cards, nil
}

// ListStalePending returns credit cards that entered CHARGE_PENDING before
// the cutoff and were never settled.
func (r *CardRepository) ListStalePending(ctx context.Context, before time.Time) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		WHERE status = $1 AND pending_since < $2 ORDER BY pending_since`,
		domain.CardStatusChargePending, before,
	)
	if err != nil {
		return nil, fmt.Errorf("ListStalePending: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStalePending: scan: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStalePending: rows: %w", err)
	}
	return cards, nil
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	f := flattenCard(card)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (
			id, card_number, customer_id, card_type, is_active, status,
			credit_card_type, credit_limit, available_credit, current_balance,
			payment_due_date, minimum_payment, is_overdue, overdue_days,
			primary_account_id, associated_account_ids,
			pending_authorization_code, pending_amount, pending_since,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		card.ID, card.CardNumber, card.CustomerID, card.Type, card.IsActive, card.Status,
		f.creditCardType, f.creditLimit, f.availableCredit, f.currentBalance,
		f.paymentDueDate, f.minimumPayment, f.isOverdue, f.overdueDays,
		f.primaryAccountID, pq.Array(f.associatedAccountIDs),
		f.pendingCode, f.pendingAmount, f.pendingSince,
		card.Version, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case constraintCardNumber:
				return fmt.Errorf("Create: %w", domain.ErrDuplicateCardNumber)
			case constraintOnePersonalCredit:
				return fmt.Errorf("Create: %w", domain.ErrPersonalCardLimit)
			}
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Update writes every mutable field when the stored version still matches
// card.Version, then advances card.Version.
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	f := flattenCard(card)
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET
			is_active = $1, status = $2,
			credit_limit = $3, available_credit = $4, current_balance = $5,
			payment_due_date = $6, minimum_payment = $7, is_overdue = $8, overdue_days = $9,
			primary_account_id = $10, associated_account_ids = $11,
			pending_authorization_code = $12, pending_amount = $13, pending_since = $14,
			version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17`,
		card.IsActive, card.Status,
		f.creditLimit, f.availableCredit, f.currentBalance,
		f.paymentDueDate, f.minimumPayment, f.isOverdue, f.overdueDays,
		f.primaryAccountID, pq.Array(f.associatedAccountIDs),
		f.pendingCode, f.pendingAmount, f.pendingSince,
		now, card.ID, card.Version,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrVersionConflict)
	}

	card.Version++
	card.UpdatedAt = now
	return nil
}

type cardRow struct {
	creditCardType       sql.NullString
	creditLimit          decimal.NullDecimal
	availableCredit      decimal.NullDecimal
	currentBalance       decimal.NullDecimal
	paymentDueDate       sql.NullTime
	minimumPayment       decimal.NullDecimal
	isOverdue            bool
	overdueDays          int
	primaryAccountID     sql.NullString
	associatedAccountIDs []string
	pendingCode          sql.NullString
	pendingAmount        decimal.NullDecimal
	pendingSince         sql.NullTime
}

func flattenCard(card *domain.Card) cardRow {
	row := cardRow{associatedAccountIDs: []string{}}

	if cr := card.Credit; cr != nil {
		row.creditCardType = sql.NullString{String: string(cr.CreditCardType), Valid: true}
		row.creditLimit = decimal.NewNullDecimal(cr.CreditLimit)
		row.availableCredit = decimal.NewNullDecimal(cr.AvailableCredit)
		row.currentBalance = decimal.NewNullDecimal(cr.CurrentBalance)
		row.minimumPayment = decimal.NewNullDecimal(cr.MinimumPayment)
		row.isOverdue = cr.IsOverdue
		row.overdueDays = cr.OverdueDays
		if cr.PaymentDueDate != nil {
			row.paymentDueDate = sql.NullTime{Time: *cr.PaymentDueDate, Valid: true}
		}
	}

	if dd := card.Debit; dd != nil {
		row.primaryAccountID = sql.NullString{String: dd.PrimaryAccountID, Valid: dd.PrimaryAccountID != ""}
		if dd.AssociatedAccountIDs != nil {
			row.associatedAccountIDs = dd.AssociatedAccountIDs
		}
	}

	if p := card.Pending; p != nil {
		row.pendingCode = sql.NullString{String: p.AuthorizationCode, Valid: true}
		row.pendingAmount = decimal.NewNullDecimal(p.Amount)
		row.pendingSince = sql.NullTime{Time: p.Since, Valid: true}
	}

	return row
}

func scanCard(s scanner) (*domain.Card, error) {
	var c domain.Card
	var f cardRow
	err := s.Scan(
		&c.ID, &c.CardNumber, &c.CustomerID, &c.Type, &c.IsActive, &c.Status,
		&f.creditCardType, &f.creditLimit, &f.availableCredit, &f.currentBalance,
		&f.paymentDueDate, &f.minimumPayment, &f.isOverdue, &f.overdueDays,
		&f.primaryAccountID, pq.Array(&f.associatedAccountIDs),
		&f.pendingCode, &f.pendingAmount, &f.pendingSince,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case domain.CardTypeCredit:
		cr := &domain.CreditDetails{
			CreditCardType:  domain.CustomerType(f.creditCardType.String),
			CreditLimit:     f.creditLimit.Decimal,
			AvailableCredit: f.availableCredit.Decimal,
			CurrentBalance:  f.currentBalance.Decimal,
			MinimumPayment:  f.minimumPayment.Decimal,
			IsOverdue:       f.isOverdue,
			OverdueDays:     f.overdueDays,
		}
		if f.paymentDueDate.Valid {
			due := f.paymentDueDate.Time
			cr.PaymentDueDate = &due
		}
		c.Credit = cr
	case domain.CardTypeDebit:
		c.Debit = &domain.DebitDetails{
			PrimaryAccountID:     f.primaryAccountID.String,
			AssociatedAccountIDs: f.associatedAccountIDs,
		}
	}

	if f.pendingSince.Valid {
		c.Pending = &domain.PendingCharge{
			AuthorizationCode: f.pendingCode.String,
			Amount:            f.pendingAmount.Decimal,
			Since:             f.pendingSince.Time,
		}
	}

	return &c, nil
}
