package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

type cardRepo interface {
	GetByNumber(ctx context.Context, number string) (*domain.Card, error)
	Update(ctx context.Context, card *domain.Card) error
	ListActiveCredit(ctx context.Context) ([]domain.Card, error)
	ListStalePending(ctx context.Context, before time.Time) ([]domain.Card, error)
}

type ledger interface {
	CreateTransaction(ctx context.Context, rec domain.TransactionRecord) error
	TransactionExists(ctx context.Context, transactionID string) (bool, error)
}

type dailyBalanceRepo interface {
	Create(ctx context.Context, b *domain.DailyBalance) (bool, error)
}

const (
	defaultPendingTTL = 2 * time.Minute
	writeRetries      = 3
	writeRetryBase    = 50 * time.Millisecond
)

type Service struct {
	cards      cardRepo
	ledger     ledger
	balances   dailyBalanceRepo
	metrics    *metrics.Metrics
	now        func() time.Time
	pendingTTL time.Duration
	retryBase  time.Duration
}

func NewService(cards cardRepo, ledger ledger, balances dailyBalanceRepo, m *metrics.Metrics) *Service {
	return &Service{
		cards:      cards,
		ledger:     ledger,
		balances:   balances,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
		pendingTTL: defaultPendingTTL,
		retryBase:  writeRetryBase,
	}
}

// WithPendingTTL sets how long a card may stay CHARGE_PENDING before it is
// settled against the ledger. Non-positive values keep the default.
func (s *Service) WithPendingTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.pendingTTL = ttl
	}
	return s
}

func (s *Service) creditCard(ctx context.Context, number string) (*domain.Card, error) {
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("creditCard: %w", err)
	}
	if !card.IsCredit() {
		return nil, fmt.Errorf("creditCard: %s card: %w", card.Type, domain.ErrCardTypeMismatch)
	}
	return card, nil
}
