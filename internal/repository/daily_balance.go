package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/josh-kwaku/card-service/internal/domain"
)

const dailyBalanceColumns = `id, customer_id, card_id, card_number, balance_date,
	current_balance, available_credit, credit_limit, captured_at`

type DailyBalanceRepository struct {
	db *sql.DB
}

func NewDailyBalanceRepository(db *sql.DB) *DailyBalanceRepository {
	return &DailyBalanceRepository{db: db}
}

// Create stores the snapshot unless one already exists for the card and
// day. It reports whether a row was written.
func (r *DailyBalanceRepository) Create(ctx context.Context, b *domain.DailyBalance) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_balances (
			id, customer_id, card_id, card_number, balance_date,
			current_balance, available_credit, credit_limit, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (card_id, balance_date) DO NOTHING`,
		b.ID, b.CustomerID, b.CardID, b.CardNumber, b.BalanceDate,
		b.CurrentBalance, b.AvailableCredit, b.CreditLimit, b.CapturedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Create: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *DailyBalanceRepository) ListByCustomer(ctx context.Context, customerID string, from, to time.Time) ([]domain.DailyBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dailyBalanceColumns+` FROM daily_balances
		WHERE customer_id = $1 AND balance_date BETWEEN $2 AND $3
		ORDER BY balance_date, card_id`,
		customerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByCustomer: %w", err)
	}
	defer rows.Close()

	var balances []domain.DailyBalance
	for rows.Next() {
		var b domain.DailyBalance
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.CardID, &b.CardNumber, &b.BalanceDate,
			&b.CurrentBalance, &b.AvailableCredit, &b.CreditLimit, &b.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("ListByCustomer: scan: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByCustomer: rows: %w", err)
	}
	return balances, nil
}
