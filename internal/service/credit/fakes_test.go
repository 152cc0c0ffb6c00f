package credit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/domain"
)

// fakeCards behaves like the repository: reads return copies and Update
// enforces the version check.
type fakeCards struct {
	mu        sync.Mutex
	byNumber  map[string]*domain.Card
	updates   []domain.Card
	updateErr func(n int, card *domain.Card) error
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

	if f.updateErr != nil {
		if err := f.updateErr(len(f.updates), card); err != nil {
			return err
		}
	}
	stored, ok := f.byNumber[card.CardNumber]
	if !ok {
		return domain.ErrCardNotFound
	}
	if stored.Version != card.Version {
		return domain.ErrVersionConflict
	}
	card.Version++
	f.byNumber[card.CardNumber] = cloneCard(card)
	f.updates = append(f.updates, *cloneCard(card))
	return nil
}

func (f *fakeCards) ListActiveCredit(_ context.Context) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Card
	for _, c := range f.byNumber {
		if c.IsCredit() && c.IsActive {
			out = append(out, *cloneCard(c))
		}
	}
	return out, nil
}

func (f *fakeCards) ListStalePending(_ context.Context, before time.Time) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Card
	for _, c := range f.byNumber {
		if c.Status == domain.CardStatusChargePending && c.Pending != nil && c.Pending.Since.Before(before) {
			out = append(out, *cloneCard(c))
		}
	}
	return out, nil
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
	if c.Pending != nil {
		p := *c.Pending
		cp.Pending = &p
	}
	return &cp
}

type fakeLedger struct {
	mu        sync.Mutex
	records   []domain.TransactionRecord
	err       error
	lookupErr error
}

func (f *fakeLedger) TransactionExists(_ context.Context, transactionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	for _, r := range f.records {
		if r.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) CreateTransaction(_ context.Context, rec domain.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeBalances struct {
	mu      sync.Mutex
	seen    map[uuid.UUID]bool
	created []domain.DailyBalance
	failFor uuid.UUID
}

func (f *fakeBalances) Create(_ context.Context, b *domain.DailyBalance) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.CardID == f.failFor {
		return false, errors.New("insert failed")
	}
	if f.seen == nil {
		f.seen = make(map[uuid.UUID]bool)
	}
	if f.seen[b.CardID] {
		return false, nil
	}
	f.seen[b.CardID] = true
	f.created = append(f.created, *b)
	return true, nil
}

func creditCard(number string, limit, balance int64) *domain.Card {
	return &domain.Card{
		ID:         uuid.New(),
		CardNumber: number,
		CustomerID: "CUST-1",
		Type:       domain.CardTypeCredit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		Credit: &domain.CreditDetails{
			CreditCardType:  domain.CustomerTypePersonal,
			CreditLimit:     decimal.NewFromInt(limit),
			AvailableCredit: decimal.NewFromInt(limit - balance),
			CurrentBalance:  decimal.NewFromInt(balance),
			MinimumPayment:  domain.MinimumPaymentFor(decimal.NewFromInt(balance)),
		},
	}
}
