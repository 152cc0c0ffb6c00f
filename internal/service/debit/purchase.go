package debit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

const (
	debitDescription       = "DEBIT_CARD_PAYMENT"
	purchaseStatusApproved = "APPROVED"
)

// ProcessPurchase settles amount against the card's accounts in settlement
// order, taking what each account can give until the amount is covered.
// Debits are issued one at a time. Whenever the purchase cannot complete
// after some accounts were debited (insufficient funds across all accounts,
// a failed debit, or a failed ledger write) those debits are credited back.
// A debit that timed out is neither counted nor credited back; it is parked
// as an unknown-outcome compensation task.
func (s *Service) ProcessPurchase(ctx context.Context, cardNumber string, amount decimal.Decimal, kind domain.DebitKind) (*domain.PurchaseResult, error) {
	if kind == "" {
		kind = domain.DebitKindPurchase
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("ProcessPurchase: debit kind %q: %w", kind, domain.ErrInvalidRequest)
	}

	card, err := s.debitCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("ProcessPurchase: %w", err)
	}

	reference := uuid.NewString()
	ctx, log := logging.With(ctx, "card_id", card.ID, "reference", reference)

	switch {
	case !card.CanTransact():
		return s.declinedPurchase(ctx, card, amount, domain.DeclineCardInactive), nil
	case !amount.IsPositive():
		return s.declinedPurchase(ctx, card, amount, domain.DeclineInvalidAmount), nil
	}

	usages, err := s.allocate(ctx, card.Debit.SettlementOrder(), amount, reference)
	if err != nil {
		s.compensate(ctx, reference, usages)
		s.metrics.PurchaseOutcome("reverted")
		return nil, fmt.Errorf("ProcessPurchase: %w: %w", domain.ErrPurchaseReverted, err)
	}

	processed := domain.TotalDeducted(usages)
	if processed.LessThan(amount) {
		s.compensate(ctx, reference, usages)
		log.Info("insufficient funds across accounts", "requested", amount, "available", processed)
		return s.declinedPurchase(ctx, card, amount, domain.DeclineInsufficientFunds), nil
	}

	now := s.now()
	txnID := newTransactionID(now)

	err = s.transactions.CreateTransaction(ctx, domain.TransactionRecord{
		TransactionID:     txnID,
		CardID:            card.ID,
		Amount:            amount,
		TransactionType:   kind.TransactionType(),
		AuthorizationCode: txnID,
		Status:            purchaseStatusApproved,
		Timestamp:         now,
		AccountsAffected:  affectedAccounts(usages),
	})
	if err != nil {
		log.Error("ledger write failed after debits, reverting",
			"transaction_id", txnID,
			"error", err,
		)
		s.compensate(ctx, reference, usages)
		s.metrics.PurchaseOutcome("reverted")
		return nil, fmt.Errorf("ProcessPurchase: %w: %w", domain.ErrPurchaseReverted, err)
	}

	s.metrics.PurchaseOutcome("approved")
	log.Info("purchase approved",
		"transaction_id", txnID,
		"amount", amount,
		"accounts_used", len(usages),
	)

	return &domain.PurchaseResult{
		CardID:          card.ID,
		Success:         true,
		TransactionID:   txnID,
		RequestedAmount: amount,
		ProcessedAmount: processed,
		AccountsUsed:    usages,
		ProcessedAt:     now,
	}, nil
}

// allocate walks accounts in order and debits each for as much of the
// outstanding amount as it holds. Accounts with nothing available get a zero
// entry. On error the usages applied so far are returned with it.
func (s *Service) allocate(ctx context.Context, accounts []string, amount decimal.Decimal, reference string) ([]domain.AccountUsage, error) {
	log := logging.FromContext(ctx)

	usages := make([]domain.AccountUsage, 0, len(accounts))
	remaining := amount

	for _, accountID := range accounts {
		if !remaining.IsPositive() {
			break
		}

		balance, err := s.accounts.GetAccountBalance(ctx, accountID)
		if err != nil {
			return usages, fmt.Errorf("allocate: %w", err)
		}

		available := balance.AvailableBalance
		if !available.IsPositive() {
			usages = append(usages, domain.AccountUsage{
				AccountID:        accountID,
				AmountDeducted:   decimal.Zero,
				RemainingBalance: available,
			})
			continue
		}

		deduct := decimal.Min(remaining, available)
		_, err = s.accounts.DebitAccount(ctx, accountID, domain.AccountMovement{
			Amount:      deduct,
			Description: debitDescription,
			Reference:   reference,
		})
		if err != nil {
			if errors.Is(err, domain.ErrOutcomeUnknown) {
				// The account may have been debited. Crediting it back
				// blind could pay out money that never left, so the debit
				// is parked for reconciliation under the same reference.
				s.compensation.ParkUnknown(context.WithoutCancel(ctx), reference, domain.AccountUsage{
					AccountID:        accountID,
					AmountDeducted:   deduct,
					RemainingBalance: available.Sub(deduct),
				}, err)
			}
			return usages, fmt.Errorf("allocate: %w", err)
		}

		usages = append(usages, domain.AccountUsage{
			AccountID:        accountID,
			AmountDeducted:   deduct,
			RemainingBalance: available.Sub(deduct),
		})
		remaining = remaining.Sub(deduct)

		log.Debug("account debited", "account_id", accountID, "amount", deduct, "outstanding", remaining)
	}

	return usages, nil
}

// compensate runs detached from ctx so a cancelled request still gets its
// debits returned.
func (s *Service) compensate(ctx context.Context, reference string, usages []domain.AccountUsage) {
	if domain.TotalDeducted(usages).IsZero() {
		return
	}
	s.compensation.Revert(context.WithoutCancel(ctx), reference, usages)
}

func (s *Service) declinedPurchase(ctx context.Context, card *domain.Card, amount decimal.Decimal, reason domain.DeclineReason) *domain.PurchaseResult {
	s.metrics.PurchaseOutcome("declined")
	logging.FromContext(ctx).Info("purchase declined", "reason", reason, "amount", amount)

	return &domain.PurchaseResult{
		CardID:          card.ID,
		Success:         false,
		RequestedAmount: amount,
		ProcessedAmount: decimal.Zero,
		AccountsUsed:    []domain.AccountUsage{},
		DeclineReason:   reason,
		ProcessedAt:     s.now(),
	}
}

func affectedAccounts(usages []domain.AccountUsage) []domain.AffectedAccount {
	out := make([]domain.AffectedAccount, 0, len(usages))
	for _, u := range usages {
		if !u.AmountDeducted.IsPositive() {
			continue
		}
		out = append(out, domain.AffectedAccount{AccountID: u.AccountID, AmountDeducted: u.AmountDeducted})
	}
	return out
}

func newTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("DTX-%d-%s", now.UnixMilli(), suffix)
}
