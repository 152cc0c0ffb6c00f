package debit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
)

type fakeCards struct {
	mu       sync.Mutex
	byNumber map[string]*domain.Card
	updates  int
}

func newFakeCards(cards ...*domain.Card) *fakeCards {
	f := &fakeCards{byNumber: make(map[string]*domain.Card)}
	for _, c := range cards {
		f.byNumber[c.CardNumber] = cloneCard(c)
	}
	return f
}

func (f *fakeCards) GetByNumber(_ context.Context, number string) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byNumber[number]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return cloneCard(c), nil
}

func (f *fakeCards) Update(_ context.Context, card *domain.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byNumber[card.CardNumber]
	if !ok {
		return domain.ErrCardNotFound
	}
	if stored.Version != card.Version {
		return domain.ErrVersionConflict
	}
	card.Version++
	f.byNumber[card.CardNumber] = cloneCard(card)
	f.updates++
	return nil
}

func (f *fakeCards) stored(number string) *domain.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneCard(f.byNumber[number])
}

func cloneCard(c *domain.Card) *domain.Card {
	cp := *c
	if c.Credit != nil {
		cr := *c.Credit
		cp.Credit = &cr
	}
	if c.Debit != nil {
		d := *c.Debit
		d.AssociatedAccountIDs = append([]string(nil), c.Debit.AssociatedAccountIDs...)
		cp.Debit = &d
	}
	return &cp
}

// fakeAccounts holds balances in memory and records every debit in order.
type fakeAccounts struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	debits     []debitCall
	failDebit  map[string]error
	failLookup map[string]error
}

type debitCall struct {
	accountID string
	movement  domain.AccountMovement
}

func newFakeAccounts(balances map[string]int64) *fakeAccounts {
	f := &fakeAccounts{
		balances:   make(map[string]decimal.Decimal),
		failDebit:  make(map[string]error),
		failLookup: make(map[string]error),
	}
	for id, b := range balances {
		f.balances[id] = decimal.NewFromInt(b)
	}
	return f
}

func (f *fakeAccounts) GetAccountBalance(_ context.Context, accountID string) (*domain.AccountBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLookup[accountID]; err != nil {
		return nil, err
	}
	b, ok := f.balances[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.AccountBalance{AccountID: accountID, AvailableBalance: b, CurrentBalance: b, Currency: "USD"}, nil
}

func (f *fakeAccounts) GetAccountDetails(_ context.Context, accountID string) (*domain.AccountDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLookup[accountID]; err != nil {
		return nil, err
	}
	if _, ok := f.balances[accountID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.AccountDetails{AccountID: accountID, AccountNumber: "NO-" + accountID, AccountType: "SAVINGS", Currency: "USD"}, nil
}

func (f *fakeAccounts) DebitAccount(_ context.Context, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDebit[accountID]; err != nil {
		return nil, err
	}
	b := f.balances[accountID]
	if b.LessThan(mv.Amount) {
		return nil, fmt.Errorf("debit %s: insufficient balance", accountID)
	}
	f.balances[accountID] = b.Sub(mv.Amount)
	f.debits = append(f.debits, debitCall{accountID: accountID, movement: mv})
	return &domain.AccountMovementResult{TransactionID: uuid.NewString(), Status: "COMPLETED"}, nil
}

func (f *fakeAccounts) balance(accountID string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[accountID]
}

type fakeTransactions struct {
	mu        sync.Mutex
	records   []domain.TransactionRecord
	err       error
	movements []domain.Movement
	lastLimit int
}

func (f *fakeTransactions) CreateTransaction(_ context.Context, rec domain.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeTransactions) GetLastMovements(_ context.Context, _ uuid.UUID, limit int) []domain.Movement {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	return f.movements
}

// fakeCompensator credits usages straight back into fakeAccounts.
type fakeCompensator struct {
	accounts   *fakeAccounts
	calls      [][]domain.AccountUsage
	references []string
	parked     []parkedDebit
}

type parkedDebit struct {
	reference string
	usage     domain.AccountUsage
	cause     error
}

func (f *fakeCompensator) ParkUnknown(_ context.Context, reference string, usage domain.AccountUsage, cause error) {
	f.parked = append(f.parked, parkedDebit{reference: reference, usage: usage, cause: cause})
}

func (f *fakeCompensator) Revert(_ context.Context, reference string, usages []domain.AccountUsage) {
	f.calls = append(f.calls, usages)
	f.references = append(f.references, reference)
	f.accounts.mu.Lock()
	defer f.accounts.mu.Unlock()
	for _, u := range usages {
		if u.AmountDeducted.IsPositive() {
			f.accounts.balances[u.AccountID] = f.accounts.balances[u.AccountID].Add(u.AmountDeducted)
		}
	}
}

func newDebitCard(number, primary string, associated ...string) *domain.Card {
	return &domain.Card{
		ID:         uuid.New(),
		CardNumber: number,
		CustomerID: "CUST-1",
		Type:       domain.CardTypeDebit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		Debit: &domain.DebitDetails{
			PrimaryAccountID:     primary,
			AssociatedAccountIDs: associated,
		},
	}
}

type fixture struct {
	cards        *fakeCards
	accounts     *fakeAccounts
	transactions *fakeTransactions
	compensator  *fakeCompensator
	svc          *Service
}

func newFixture(card *domain.Card, balances map[string]int64) *fixture {
	f := &fixture{
		cards:        newFakeCards(card),
		accounts:     newFakeAccounts(balances),
		transactions: &fakeTransactions{},
	}
	f.compensator = &fakeCompensator{accounts: f.accounts}
	f.svc = NewService(f.cards, f.accounts, f.transactions, f.compensator, nil)
	return f
}
