package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

var hundred = decimal.NewFromInt(100)

func (s *Service) GetCardBalance(ctx context.Context, cardNumber string) (*domain.CardBalance, error) {
	card, err := s.creditCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("GetCardBalance: %w", err)
	}

	cr := card.Credit
	return &domain.CardBalance{
		CardID:                card.ID,
		CardNumber:            card.CardNumber,
		CreditLimit:           cr.CreditLimit,
		AvailableCredit:       cr.AvailableCredit,
		CurrentBalance:        cr.CurrentBalance,
		MinimumPayment:        cr.MinimumPayment,
		UtilizationPercentage: utilization(cr.CurrentBalance, cr.CreditLimit),
		IsActive:              card.IsActive,
	}, nil
}

func utilization(balance, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return balance.Mul(hundred).Div(limit).Round(2)
}

// CaptureDailyBalances writes one snapshot per active credit card for day.
// Snapshots already taken for that day are left alone, so the job can be
// rerun. It returns how many new snapshots were written; per-card failures
// are collected and do not stop the run.
func (s *Service) CaptureDailyBalances(ctx context.Context, day time.Time) (int, error) {
	log := logging.FromContext(ctx)

	cards, err := s.cards.ListActiveCredit(ctx)
	if err != nil {
		return 0, fmt.Errorf("CaptureDailyBalances: %w", err)
	}

	balanceDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	capturedAt := s.now()

	var (
		written int
		errs    []error
	)
	for i := range cards {
		card := &cards[i]
		created, err := s.balances.Create(ctx, &domain.DailyBalance{
			ID:              uuid.New(),
			CustomerID:      card.CustomerID,
			CardID:          card.ID,
			CardNumber:      card.CardNumber,
			BalanceDate:     balanceDate,
			CurrentBalance:  card.Credit.CurrentBalance,
			AvailableCredit: card.Credit.AvailableCredit,
			CreditLimit:     card.Credit.CreditLimit,
			CapturedAt:      capturedAt,
		})
		if err != nil {
			log.Error("failed to capture daily balance", "card_id", card.ID, "error", err)
			errs = append(errs, fmt.Errorf("card %s: %w", card.ID, err))
			continue
		}
		if created {
			written++
		}
	}

	log.Info("daily balances captured",
		"date", balanceDate.Format(time.DateOnly),
		"cards", len(cards),
		"written", written,
		"failed", len(errs),
	)

	if len(errs) > 0 {
		return written, fmt.Errorf("CaptureDailyBalances: %w", errors.Join(errs...))
	}
	return written, nil
}
