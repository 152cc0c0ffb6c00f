package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinimumPaymentFor(t *testing.T) {
	tests := []struct {
		balance string
		want    string
	}{
		{"0", "0"},
		{"-10", "0"},
		{"10", "10"},
		{"24.99", "24.99"},
		{"25", "25"},
		{"400", "25"},
		{"500", "25"},
		{"1000", "50"},
		{"1234.56", "61.73"},
	}
	for _, tc := range tests {
		got := MinimumPaymentFor(decimal.RequireFromString(tc.balance))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "balance %s: got %s want %s", tc.balance, got, tc.want)
	}
}

func TestSettlementOrder(t *testing.T) {
	tests := []struct {
		name  string
		debit DebitDetails
		want  []string
	}{
		{"primary only", DebitDetails{PrimaryAccountID: "A"}, []string{"A"}},
		{"primary first", DebitDetails{PrimaryAccountID: "A", AssociatedAccountIDs: []string{"B", "C"}}, []string{"A", "B", "C"}},
		{"repeats dropped", DebitDetails{PrimaryAccountID: "A", AssociatedAccountIDs: []string{"B", "A", "B"}}, []string{"A", "B"}},
		{"no primary", DebitDetails{AssociatedAccountIDs: []string{"", "B"}}, []string{"B"}},
		{"empty", DebitDetails{}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.debit.SettlementOrder())
		})
	}
}

func TestCanTransact(t *testing.T) {
	tests := []struct {
		active bool
		status CardStatus
		want   bool
	}{
		{true, CardStatusActive, true},
		{true, CardStatusChargePending, true},
		{true, CardStatusBlocked, false},
		{true, CardStatusExpired, false},
		{true, CardStatusInactive, false},
		{false, CardStatusActive, false},
	}
	for _, tc := range tests {
		c := &Card{IsActive: tc.active, Status: tc.status}
		assert.Equal(t, tc.want, c.CanTransact(), "active=%v status=%s", tc.active, tc.status)
	}
}

func TestHasAccount(t *testing.T) {
	d := &DebitDetails{PrimaryAccountID: "A", AssociatedAccountIDs: []string{"B"}}
	assert.True(t, d.HasAccount("A"))
	assert.True(t, d.HasAccount("B"))
	assert.False(t, d.HasAccount("C"))
}

func TestDebitKind(t *testing.T) {
	assert.True(t, DebitKindWithdrawal.IsValid())
	assert.False(t, DebitKind("REFUND").IsValid())
	assert.Equal(t, "DEBIT_PAYMENT", DebitKindPayment.TransactionType())
}

func TestUnavailableErrors(t *testing.T) {
	wrapped := fmt.Errorf("CreateTransaction: %w", ErrTransactionServiceUnavailable)

	assert.True(t, errors.Is(wrapped, ErrTransactionServiceUnavailable))
	assert.True(t, errors.Is(wrapped, ErrServiceUnavailable))
	assert.False(t, errors.Is(wrapped, ErrAccountServiceUnavailable))
	assert.False(t, errors.Is(ErrCardNotFound, ErrServiceUnavailable))
}

func TestTotalDeducted(t *testing.T) {
	usages := []AccountUsage{
		{AccountID: "A", AmountDeducted: decimal.NewFromInt(30)},
		{AccountID: "B", AmountDeducted: decimal.Zero},
		{AccountID: "C", AmountDeducted: decimal.RequireFromString("19.50")},
	}
	assert.True(t, TotalDeducted(usages).Equal(decimal.RequireFromString("49.50")))
	assert.True(t, TotalDeducted(nil).IsZero())
}
