package credit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/card-service/internal/domain"
)

func TestGetCardBalance(t *testing.T) {
	cards := newFakeCards(creditCard(cardNo, 3000, 1000))
	svc := NewService(cards, &fakeLedger{}, &fakeBalances{}, nil)

	b, err := svc.GetCardBalance(context.Background(), cardNo)
	require.NoError(t, err)

	assert.Equal(t, cardNo, b.CardNumber)
	assert.True(t, b.CreditLimit.Equal(decimal.NewFromInt(3000)))
	assert.True(t, b.AvailableCredit.Equal(decimal.NewFromInt(2000)))
	assert.True(t, b.CurrentBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, b.MinimumPayment.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "33.33", b.UtilizationPercentage.StringFixed(2))
	assert.True(t, b.IsActive)
}

func TestUtilization(t *testing.T) {
	tests := []struct {
		balance, limit string
		want           string
	}{
		{"0", "1000", "0.00"},
		{"250", "1000", "25.00"},
		{"1000", "1000", "100.00"},
		{"2", "3", "66.67"},
		{"10", "0", "0.00"},
	}
	for _, tc := range tests {
		got := utilization(decimal.RequireFromString(tc.balance), decimal.RequireFromString(tc.limit))
		assert.Equal(t, tc.want, got.StringFixed(2), "%s/%s", tc.balance, tc.limit)
	}
}

func TestCaptureDailyBalances(t *testing.T) {
	first := creditCard("4000000000000010", 1000, 100)
	second := creditCard("4000000000000028", 500, 0)
	inactive := creditCard("4000000000000036", 500, 0)
	inactive.IsActive = false

	balances := &fakeBalances{}
	svc := NewService(newFakeCards(first, second, inactive), &fakeLedger{}, balances, nil)

	day := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	written, err := svc.CaptureDailyBalances(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	require.Len(t, balances.created, 2)
	for _, b := range balances.created {
		assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), b.BalanceDate)
		assert.NotEqual(t, inactive.ID, b.CardID)
	}

	written, err = svc.CaptureDailyBalances(context.Background(), day)
	require.NoError(t, err)
	assert.Zero(t, written, "rerun for the same day writes nothing")
}

func TestCaptureDailyBalances_ContinuesPastFailures(t *testing.T) {
	ok := creditCard("4000000000000010", 1000, 100)
	bad := creditCard("4000000000000028", 500, 0)

	balances := &fakeBalances{failFor: bad.ID}
	svc := NewService(newFakeCards(ok, bad), &fakeLedger{}, balances, nil)

	written, err := svc.CaptureDailyBalances(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, balances.created, 1)
	assert.Equal(t, ok.ID, balances.created[0].CardID)
	assert.Contains(t, err.Error(), bad.ID.String())
}

func TestGetCardBalance_DebitCardRejected(t *testing.T) {
	card := &domain.Card{
		CardNumber: cardNo,
		Type:       domain.CardTypeDebit,
		IsActive:   true,
		Status:     domain.CardStatusActive,
		Debit:      &domain.DebitDetails{PrimaryAccountID: "ACC-1"},
	}
	svc := NewService(newFakeCards(card), &fakeLedger{}, &fakeBalances{}, nil)

	_, err := svc.GetCardBalance(context.Background(), cardNo)
	assert.ErrorIs(t, err, domain.ErrCardTypeMismatch)
}
