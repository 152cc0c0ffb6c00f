package credit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

// ProcessPayment applies a payment against the card balance. Overpayments are
// capped at the current balance; the difference is reported through
// ActualPaymentAmount rather than rejected.
func (s *Service) ProcessPayment(ctx context.Context, cardNumber string, amount decimal.Decimal) (*domain.PaymentResult, error) {
	card, err := s.creditCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	ctx, log := logging.With(ctx, "card_id", card.ID)

	if card.PendingExpired(s.now(), s.pendingTTL) {
		if err := s.settlePending(ctx, card); err != nil {
			return nil, fmt.Errorf("ProcessPayment: %w", err)
		}
	}

	if reason, declined := validatePayment(card, amount); declined {
		s.metrics.PaymentOutcome("declined")
		log.Info("payment declined", "reason", reason, "amount", amount)
		return s.declinedPayment(card, amount, reason), nil
	}
	if card.Status == domain.CardStatusChargePending {
		return nil, fmt.Errorf("ProcessPayment: %w", domain.ErrChargeInProgress)
	}

	cr := card.Credit
	actual := decimal.Min(amount, cr.CurrentBalance)

	cr.CurrentBalance = cr.CurrentBalance.Sub(actual)
	cr.AvailableCredit = cr.AvailableCredit.Add(actual)
	cr.MinimumPayment = domain.MinimumPaymentFor(cr.CurrentBalance)
	if cr.CurrentBalance.IsZero() {
		cr.PaymentDueDate = nil
		cr.IsOverdue = false
		cr.OverdueDays = 0
	}

	if err := s.cards.Update(ctx, card); err != nil {
		s.metrics.PaymentOutcome("error")
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	s.metrics.PaymentOutcome("approved")
	log.Info("payment applied",
		"requested", amount,
		"applied", actual,
		"current_balance", cr.CurrentBalance,
	)

	return &domain.PaymentResult{
		CardID:               card.ID,
		Success:              true,
		RequestedAmount:      amount,
		ActualPaymentAmount:  actual,
		AvailableCreditAfter: cr.AvailableCredit,
		CurrentBalanceAfter:  cr.CurrentBalance,
		ProcessedAt:          s.now(),
	}, nil
}

func validatePayment(card *domain.Card, amount decimal.Decimal) (domain.DeclineReason, bool) {
	switch {
	case !card.CanTransact():
		return domain.DeclineCardInactive, true
	case !amount.IsPositive():
		return domain.DeclineInvalidAmount, true
	case !card.Credit.CurrentBalance.IsPositive():
		return domain.DeclineZeroCurrentBalance, true
	default:
		return "", false
	}
}

func (s *Service) declinedPayment(card *domain.Card, amount decimal.Decimal, reason domain.DeclineReason) *domain.PaymentResult {
	return &domain.PaymentResult{
		CardID:               card.ID,
		Success:              false,
		RequestedAmount:      amount,
		ActualPaymentAmount:  decimal.Zero,
		AvailableCreditAfter: card.Credit.AvailableCredit,
		CurrentBalanceAfter:  card.Credit.CurrentBalance,
		DeclineReason:        reason,
		ProcessedAt:          s.now(),
	}
}
