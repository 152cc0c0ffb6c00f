package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/card-service/internal/domain"
)

type fakeCardRepo struct {
	created     []*domain.Card
	active      map[string]int
	createErrs  []error
	totalActive int
}

func (f *fakeCardRepo) Create(_ context.Context, card *domain.Card) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	cp := *card
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeCardRepo) CountActiveByCustomer(_ context.Context, customerID string, _ domain.CardType) (int, error) {
	return f.active[customerID], nil
}

func (f *fakeCardRepo) CountActive(context.Context, domain.CardType) (int, error) {
	return f.totalActive, nil
}

type fakeCustomers struct {
	types map[string]domain.CustomerType
	err   error
}

func (f *fakeCustomers) GetCustomerType(_ context.Context, id string) (domain.CustomerType, error) {
	if f.err != nil {
		return "", f.err
	}
	ct, ok := f.types[id]
	if !ok {
		return "", domain.ErrCustomerNotFound
	}
	return ct, nil
}

func (f *fakeCustomers) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ct, err := f.GetCustomerType(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Customer{ID: id, Type: ct}, nil
}

type fakeAccountDirectory struct {
	known map[string]bool
}

func (f *fakeAccountDirectory) GetAccountDetails(_ context.Context, id string) (*domain.AccountDetails, error) {
	if !f.known[id] {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.AccountDetails{AccountID: id}, nil
}

type fakeReporter struct {
	summary domain.TransactionSummary
	calls   int
}

func (f *fakeReporter) GetTransactionSummary(context.Context, time.Time, time.Time) domain.TransactionSummary {
	f.calls++
	return f.summary
}

func newCardService(repo *fakeCardRepo, customers *fakeCustomers) (*CardService, *fakeReporter) {
	reporter := &fakeReporter{}
	numbers := NewNumberGenerator(&fakeNumberStore{}, 3)
	svc := NewCardService(repo, numbers, customers, &fakeAccountDirectory{known: map[string]bool{"ACC-1": true}}, reporter)
	return svc, reporter
}

func TestCreateCreditCard(t *testing.T) {
	customers := &fakeCustomers{types: map[string]domain.CustomerType{
		"CUST-P":    domain.CustomerTypePersonal,
		"CUST-P2":   domain.CustomerTypePersonal,
		"CUST-E":    domain.CustomerTypeEnterprise,
		"CUST-ERR":  domain.CustomerTypeEnterprise,
		"CUST-NONE": domain.CustomerTypePersonal,
	}}

	t.Run("personal customer gets a personal card", func(t *testing.T) {
		repo := &fakeCardRepo{}
		svc, _ := newCardService(repo, customers)

		card, err := svc.CreateCreditCard(context.Background(), "CUST-P", decimal.NewFromInt(2000))
		require.NoError(t, err)

		assert.Len(t, card.CardNumber, 16)
		assert.True(t, luhnValid(card.CardNumber))
		assert.Equal(t, domain.CardStatusActive, card.Status)
		assert.Equal(t, domain.CustomerTypePersonal, card.Credit.CreditCardType)
		assert.True(t, card.Credit.AvailableCredit.Equal(card.Credit.CreditLimit))
		assert.True(t, card.Credit.CurrentBalance.IsZero())
		require.Len(t, repo.created, 1)
	})

	t.Run("second personal card rejected", func(t *testing.T) {
		repo := &fakeCardRepo{active: map[string]int{"CUST-P2": 1}}
		svc, _ := newCardService(repo, customers)

		_, err := svc.CreateCreditCard(context.Background(), "CUST-P2", decimal.NewFromInt(2000))
		assert.ErrorIs(t, err, domain.ErrPersonalCardLimit)
		assert.Empty(t, repo.created)
	})

	t.Run("enterprise customers may hold several", func(t *testing.T) {
		repo := &fakeCardRepo{active: map[string]int{"CUST-E": 4}}
		svc, _ := newCardService(repo, customers)

		card, err := svc.CreateCreditCard(context.Background(), "CUST-E", decimal.NewFromInt(50000))
		require.NoError(t, err)
		assert.Equal(t, domain.CustomerTypeEnterprise, card.Credit.CreditCardType)
	})

	t.Run("invalid limit", func(t *testing.T) {
		svc, _ := newCardService(&fakeCardRepo{}, customers)
		_, err := svc.CreateCreditCard(context.Background(), "CUST-E", decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("customer service down blocks creation", func(t *testing.T) {
		down := &fakeCustomers{err: fmt.Errorf("GetCustomerType: %w", domain.ErrCustomerServiceUnavailable)}
		repo := &fakeCardRepo{}
		svc, _ := newCardService(repo, down)

		_, err := svc.CreateCreditCard(context.Background(), "CUST-E", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, domain.ErrCustomerServiceUnavailable)
		assert.Empty(t, repo.created)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, _ := newCardService(&fakeCardRepo{}, customers)
		_, err := svc.CreateCreditCard(context.Background(), "CUST-404", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})

	t.Run("duplicate number is retried", func(t *testing.T) {
		repo := &fakeCardRepo{createErrs: []error{fmt.Errorf("Create: %w", domain.ErrDuplicateCardNumber), nil}}
		svc, _ := newCardService(repo, customers)

		_, err := svc.CreateCreditCard(context.Background(), "CUST-ERR", decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.Len(t, repo.created, 1)
	})

	t.Run("duplicate numbers give up after bounded attempts", func(t *testing.T) {
		dup := fmt.Errorf("Create: %w", domain.ErrDuplicateCardNumber)
		repo := &fakeCardRepo{createErrs: []error{dup, dup, dup}}
		svc, _ := newCardService(repo, customers)

		_, err := svc.CreateCreditCard(context.Background(), "CUST-ERR", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, domain.ErrDuplicateCardNumber)
	})
}

func TestCreateDebitCard(t *testing.T) {
	customers := &fakeCustomers{types: map[string]domain.CustomerType{"CUST-1": domain.CustomerTypePersonal}}

	repo := &fakeCardRepo{}
	svc, _ := newCardService(repo, customers)

	card, err := svc.CreateDebitCard(context.Background(), "CUST-1", "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardTypeDebit, card.Type)
	assert.Equal(t, "ACC-1", card.Debit.PrimaryAccountID)
	assert.Empty(t, card.Debit.AssociatedAccountIDs)

	_, err = svc.CreateDebitCard(context.Background(), "CUST-1", "ACC-404")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = svc.CreateDebitCard(context.Background(), "CUST-404", "ACC-1")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	assert.Len(t, repo.created, 1)
}

func TestCountActiveCards(t *testing.T) {
	svc, _ := newCardService(&fakeCardRepo{totalActive: 7}, &fakeCustomers{})

	n, err := svc.CountActiveCards(context.Background(), domain.CardTypeDebit)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = svc.CountActiveCards(context.Background(), "PREPAID")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetTransactionSummary(t *testing.T) {
	svc, reporter := newCardService(&fakeCardRepo{}, &fakeCustomers{})
	reporter.summary = domain.TransactionSummary{TotalTransactions: 3, TotalAmount: decimal.NewFromInt(90)}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := svc.GetTransactionSummary(context.Background(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.TotalTransactions)

	_, err = svc.GetTransactionSummary(context.Background(), start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 1, reporter.calls)
}
