package debit

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

// AssociateAccount links accountID to the card. A card with no primary
// account takes it as primary; otherwise it joins the end of the settlement
// order.
func (s *Service) AssociateAccount(ctx context.Context, cardNumber, accountID string) (*domain.Card, error) {
	if accountID == "" {
		return nil, fmt.Errorf("AssociateAccount: %w", domain.ErrInvalidRequest)
	}

	card, err := s.debitCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("AssociateAccount: %w", err)
	}
	if !card.IsActive {
		return nil, fmt.Errorf("AssociateAccount: %w", domain.ErrCardInactive)
	}
	if card.Debit.HasAccount(accountID) {
		return nil, fmt.Errorf("AssociateAccount: %w", domain.ErrAccountAlreadyAssociated)
	}

	if _, err := s.accounts.GetAccountDetails(ctx, accountID); err != nil {
		return nil, fmt.Errorf("AssociateAccount: %w", err)
	}

	if card.Debit.PrimaryAccountID == "" {
		card.Debit.PrimaryAccountID = accountID
	} else {
		card.Debit.AssociatedAccountIDs = append(card.Debit.AssociatedAccountIDs, accountID)
	}

	if err := s.cards.Update(ctx, card); err != nil {
		return nil, fmt.Errorf("AssociateAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account associated",
		"card_id", card.ID,
		"account_id", accountID,
		"associated_count", len(card.Debit.AssociatedAccountIDs),
	)
	return card, nil
}

func (s *Service) GetPrimaryAccountBalance(ctx context.Context, cardNumber string) (*domain.PrimaryAccountBalance, error) {
	card, err := s.debitCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("GetPrimaryAccountBalance: %w", err)
	}
	primary := card.Debit.PrimaryAccountID
	if primary == "" {
		return nil, fmt.Errorf("GetPrimaryAccountBalance: %w", domain.ErrAccountNotFound)
	}

	balance, err := s.accounts.GetAccountBalance(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("GetPrimaryAccountBalance: %w", err)
	}
	details, err := s.accounts.GetAccountDetails(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("GetPrimaryAccountBalance: %w", err)
	}

	return &domain.PrimaryAccountBalance{
		CardID:  card.ID,
		Balance: *balance,
		Details: *details,
	}, nil
}

// GetCardMovements returns the most recent movements for the card. The
// Transaction service lookup is best effort and yields an empty list when it
// is unavailable.
func (s *Service) GetCardMovements(ctx context.Context, cardNumber string, limit int) ([]domain.Movement, error) {
	card, err := s.debitCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("GetCardMovements: %w", err)
	}
	return s.transactions.GetLastMovements(ctx, card.ID, clampLimit(limit)), nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultMovementsLimit
	case limit > maxMovementsLimit:
		return maxMovementsLimit
	default:
		return limit
	}
}
