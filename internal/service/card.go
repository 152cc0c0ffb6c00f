package service

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

// createAttempts bounds retries when a freshly generated number loses the
// race against a concurrent insert.
const createAttempts = 3

type cardRepo interface {
	Create(ctx context.Context, card *domain.Card) error
	CountActiveByCustomer(ctx context.Context, customerID string, cardType domain.CardType) (int, error)
	CountActive(ctx context.Context, cardType domain.CardType) (int, error)
}

type customerDirectory interface {
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	GetCustomerType(ctx context.Context, customerID string) (domain.CustomerType, error)
}

type accountDirectory interface {
	GetAccountDetails(ctx context.Context, accountID string) (*domain.AccountDetails, error)
}

type transactionReporter interface {
	GetTransactionSummary(ctx context.Context, start, end time.Time) domain.TransactionSummary
}

type CardService struct {
	cards        cardRepo
	numbers      *NumberGenerator
	customers    customerDirectory
	accounts     accountDirectory
	transactions transactionReporter
}

func NewCardService(
	cards cardRepo,
	numbers *NumberGenerator,
	customers customerDirectory,
	accounts accountDirectory,
	transactions transactionReporter,
) *CardService {
	return &CardService{
		cards:        cards,
		numbers:      numbers,
		customers:    customers,
		accounts:     accounts,
		transactions: transactions,
	}
}

// CreateCreditCard issues a credit card whose type follows the customer's
// type. Personal customers may hold a single active credit card; the
// customer lookup is fail-closed so an outage blocks creation.
func (s *CardService) CreateCreditCard(ctx context.Context, customerID string, creditLimit decimal.Decimal) (*domain.Card, error) {
	log := logging.FromContext(ctx)

	if !creditLimit.IsPositive() {
		return nil, fmt.Errorf("CreateCreditCard: %w", domain.ErrInvalidAmount)
	}

	customerType, err := s.customers.GetCustomerType(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("CreateCreditCard: %w", err)
	}

	if customerType == domain.CustomerTypePersonal {
		active, err := s.cards.CountActiveByCustomer(ctx, customerID, domain.CardTypeCredit)
		if err != nil {
			return nil, fmt.Errorf("CreateCreditCard: %w", err)
		}
		if active > 0 {
			return nil, fmt.Errorf("CreateCreditCard: %w", domain.ErrPersonalCardLimit)
		}
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       domain.CardTypeCredit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Credit: &domain.CreditDetails{
			CreditCardType:  customerType,
			CreditLimit:     creditLimit,
			AvailableCredit: creditLimit,
			CurrentBalance:  decimal.Zero,
			MinimumPayment:  decimal.Zero,
		},
	}

	if err := s.insert(ctx, card); err != nil {
		return nil, fmt.Errorf("CreateCreditCard: %w", err)
	}

	log.Info("credit card created",
		"card_id", card.ID,
		"customer_id", customerID,
		"credit_card_type", customerType,
	)
	return card, nil
}

// CreateDebitCard issues a debit card settled against primaryAccountID.
func (s *CardService) CreateDebitCard(ctx context.Context, customerID, primaryAccountID string) (*domain.Card, error) {
	log := logging.FromContext(ctx)

	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, fmt.Errorf("CreateDebitCard: %w", err)
	}
	if _, err := s.accounts.GetAccountDetails(ctx, primaryAccountID); err != nil {
		return nil, fmt.Errorf("CreateDebitCard: %w", err)
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       domain.CardTypeDebit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Debit: &domain.DebitDetails{
			PrimaryAccountID:     primaryAccountID,
			AssociatedAccountIDs: []string{},
		},
	}

	if err := s.insert(ctx, card); err != nil {
		return nil, fmt.Errorf("CreateDebitCard: %w", err)
	}

	log.Info("debit card created",
		"card_id", card.ID,
		"customer_id", customerID,
		"primary_account_id", primaryAccountID,
	)
	return card, nil
}

func (s *CardService) CountActiveCards(ctx context.Context, cardType domain.CardType) (int, error) {
	if !cardType.IsValid() {
		return 0, fmt.Errorf("CountActiveCards: %w", domain.ErrInvalidRequest)
	}
	n, err := s.cards.CountActive(ctx, cardType)
	if err != nil {
		return 0, fmt.Errorf("CountActiveCards: %w", err)
	}
	return n, nil
}

func (s *CardService) GetTransactionSummary(ctx context.Context, start, end time.Time) (domain.TransactionSummary, error) {
	if end.Before(start) {
		return domain.TransactionSummary{}, fmt.Errorf("GetTransactionSummary: %w", domain.ErrInvalidRequest)
	}
	return s.transactions.GetTransactionSummary(ctx, start, end), nil
}

func (s *CardService) insert(ctx context.Context, card *domain.Card) error {
	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Generate(ctx)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		card.CardNumber = number

		err = s.cards.Create(ctx, card)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateCardNumber) || attempt == createAttempts {
			return fmt.Errorf("insert: %w", err)
		}
	}
}
