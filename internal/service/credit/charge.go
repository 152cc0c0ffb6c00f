package credit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

const (
	chargeTransactionType = "CHARGE"
	chargeStatusApproved  = "APPROVED"
)

// creditSnapshot holds the fields a failed charge must put back.
type creditSnapshot struct {
	status          domain.CardStatus
	pending         *domain.PendingCharge
	availableCredit decimal.Decimal
	currentBalance  decimal.Decimal
	minimumPayment  decimal.Decimal
	paymentDueDate  *time.Time
}

func snapshotOf(card *domain.Card) creditSnapshot {
	return creditSnapshot{
		status:          card.Status,
		pending:         card.Pending,
		availableCredit: card.Credit.AvailableCredit,
		currentBalance:  card.Credit.CurrentBalance,
		minimumPayment:  card.Credit.MinimumPayment,
		paymentDueDate:  card.Credit.PaymentDueDate,
	}
}

func (snap creditSnapshot) restore(card *domain.Card) {
	card.Status = snap.status
	card.Pending = snap.pending
	card.Credit.AvailableCredit = snap.availableCredit
	card.Credit.CurrentBalance = snap.currentBalance
	card.Credit.MinimumPayment = snap.minimumPayment
	card.Credit.PaymentDueDate = snap.paymentDueDate
}

// AuthorizeCharge moves the card ACTIVE -> CHARGE_PENDING, records the charge
// with the Transaction service, then applies it and moves back to ACTIVE. If
// recording fails the card is restored to its pre-charge state and
// domain.ErrTransactionServiceUnavailable is returned. Business rejections
// come back as a declined result, not an error.
//
// A card still pending after the pending TTL is settled against the ledger
// before the new charge is considered.
func (s *Service) AuthorizeCharge(ctx context.Context, cardNumber string, amount decimal.Decimal) (*domain.ChargeResult, error) {
	card, err := s.creditCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("AuthorizeCharge: %w", err)
	}

	ctx, log := logging.With(ctx, "card_id", card.ID)

	if card.PendingExpired(s.now(), s.pendingTTL) {
		if err := s.settlePending(ctx, card); err != nil {
			return nil, fmt.Errorf("AuthorizeCharge: %w", err)
		}
	}

	if reason, declined := s.validateCharge(card, amount); declined {
		s.metrics.ChargeOutcome("declined")
		log.Info("charge declined", "reason", reason, "amount", amount)
		return s.declinedCharge(card, reason), nil
	}
	if card.Status == domain.CardStatusChargePending {
		return nil, fmt.Errorf("AuthorizeCharge: %w", domain.ErrChargeInProgress)
	}

	before := snapshotOf(card)
	now := s.now()
	authCode := newAuthorizationCode(now)

	card.Status = domain.CardStatusChargePending
	card.Pending = &domain.PendingCharge{AuthorizationCode: authCode, Amount: amount, Since: now}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, fmt.Errorf("AuthorizeCharge: mark pending: %w", err)
	}

	err = s.ledger.CreateTransaction(ctx, domain.TransactionRecord{
		TransactionID:     authCode,
		CardID:            card.ID,
		Amount:            amount,
		TransactionType:   chargeTransactionType,
		AuthorizationCode: authCode,
		Status:            chargeStatusApproved,
		Timestamp:         now,
	})
	if err != nil {
		s.revertPending(ctx, card, before, authCode)
		s.metrics.ChargeOutcome("reverted")
		return nil, fmt.Errorf("AuthorizeCharge: %w", err)
	}

	card.ApplyCharge(amount, now)

	// The charge is already on the ledger; finish the commit even if the
	// caller has gone away. A card left pending here is settled later by
	// settlePending.
	if err := s.persist(ctx, card); err != nil {
		log.Error("charge recorded but card commit failed",
			"authorization_code", authCode,
			"amount", amount,
			"error", err,
		)
		s.metrics.ChargeOutcome("error")
		return nil, fmt.Errorf("AuthorizeCharge: commit: %w", err)
	}

	s.metrics.ChargeOutcome("approved")
	log.Info("charge approved",
		"authorization_code", authCode,
		"amount", amount,
		"available_credit", card.Credit.AvailableCredit,
	)

	return &domain.ChargeResult{
		CardID:               card.ID,
		Approved:             true,
		AuthorizationCode:    authCode,
		AuthorizedAmount:     amount,
		AvailableCreditAfter: card.Credit.AvailableCredit,
		ProcessedAt:          now,
	}, nil
}

func (s *Service) validateCharge(card *domain.Card, amount decimal.Decimal) (domain.DeclineReason, bool) {
	switch {
	case !card.CanTransact():
		return domain.DeclineCardInactive, true
	case !amount.IsPositive():
		return domain.DeclineInvalidAmount, true
	case card.Credit.AvailableCredit.LessThan(amount):
		return domain.DeclineInsufficientCredit, true
	default:
		return "", false
	}
}

func (s *Service) declinedCharge(card *domain.Card, reason domain.DeclineReason) *domain.ChargeResult {
	return &domain.ChargeResult{
		CardID:               card.ID,
		Approved:             false,
		AuthorizedAmount:     decimal.Zero,
		AvailableCreditAfter: card.Credit.AvailableCredit,
		DeclineReason:        reason,
		ProcessedAt:          s.now(),
	}
}

func (s *Service) revertPending(ctx context.Context, card *domain.Card, before creditSnapshot, authCode string) {
	log := logging.FromContext(ctx)

	before.restore(card)
	if err := s.persist(ctx, card); err != nil {
		log.Error("failed to revert pending charge",
			"authorization_code", authCode,
			"error", err,
		)
		return
	}
	log.Warn("charge reverted after ledger failure", "authorization_code", authCode)
}

// newAuthorizationCode is the millisecond timestamp plus a random suffix so
// codes minted in the same millisecond stay distinct.
func newAuthorizationCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("AUTH-%d-%s", now.UnixMilli(), suffix)
}
