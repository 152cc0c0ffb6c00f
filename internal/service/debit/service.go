package debit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

const (
	defaultMovementsLimit = 10
	maxMovementsLimit     = 50
)

type cardRepo interface {
	GetByNumber(ctx context.Context, number string) (*domain.Card, error)
	Update(ctx context.Context, card *domain.Card) error
}

type accountGateway interface {
	GetAccountBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error)
	GetAccountDetails(ctx context.Context, accountID string) (*domain.AccountDetails, error)
	DebitAccount(ctx context.Context, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error)
}

type transactionGateway interface {
	CreateTransaction(ctx context.Context, rec domain.TransactionRecord) error
	GetLastMovements(ctx context.Context, cardID uuid.UUID, limit int) []domain.Movement
}

// compensator undoes debits already applied to accounts and records the
// ones whose outcome is unknown.
type compensator interface {
	Revert(ctx context.Context, reference string, usages []domain.AccountUsage)
	ParkUnknown(ctx context.Context, reference string, usage domain.AccountUsage, cause error)
}

type Service struct {
	cards        cardRepo
	accounts     accountGateway
	transactions transactionGateway
	compensation compensator
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	cards cardRepo,
	accounts accountGateway,
	transactions transactionGateway,
	compensation compensator,
	m *metrics.Metrics,
) *Service {
	return &Service{
		cards:        cards,
		accounts:     accounts,
		transactions: transactions,
		compensation: compensation,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) debitCard(ctx context.Context, number string) (*domain.Card, error) {
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("debitCard: %w", err)
	}
	if !card.IsDebit() {
		return nil, fmt.Errorf("debitCard: %s card: %w", card.Type, domain.ErrCardTypeMismatch)
	}
	return card, nil
}
