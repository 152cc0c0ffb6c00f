package credit_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/repository"
	"github.com/josh-kwaku/card-service/internal/service/credit"
	"github.com/josh-kwaku/card-service/internal/testutil"
)

// gatedLedger parks every CreateTransaction call until release is closed.
type gatedLedger struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func newGatedLedger() *gatedLedger {
	return &gatedLedger{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (l *gatedLedger) CreateTransaction(ctx context.Context, _ domain.TransactionRecord) error {
	l.entered <- struct{}{}
	select {
	case <-l.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return l.err
}

func (l *gatedLedger) TransactionExists(context.Context, string) (bool, error) { return false, nil }

type okLedger struct{}

func (okLedger) CreateTransaction(context.Context, domain.TransactionRecord) error { return nil }

func (okLedger) TransactionExists(context.Context, string) (bool, error) { return true, nil }

func TestAuthorizeCharge_SecondChargeWhilePendingIsRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	card := testutil.SeedCreditCard(t, db, "CUST-100", decimal.NewFromInt(1000), decimal.Zero)
	ledger := newGatedLedger()
	svc := credit.NewService(repository.NewCardRepository(db), ledger, repository.NewDailyBalanceRepository(db), nil)

	var (
		wg       sync.WaitGroup
		firstRes *domain.ChargeResult
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstRes, firstErr = svc.AuthorizeCharge(ctx, card.CardNumber, decimal.NewFromInt(400))
	}()

	select {
	case <-ledger.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("first charge never reached the ledger")
	}

	status, _, _, _ := testutil.GetCreditState(t, db, card.ID)
	assert.Equal(t, domain.CardStatusChargePending, status)

	_, err := svc.AuthorizeCharge(ctx, card.CardNumber, decimal.NewFromInt(700))
	assert.ErrorIs(t, err, domain.ErrChargeInProgress)

	close(ledger.release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.True(t, firstRes.Approved)

	status, available, balance, _ := testutil.GetCreditState(t, db, card.ID)
	assert.Equal(t, domain.CardStatusActive, status)
	assert.True(t, available.Equal(decimal.NewFromInt(600)), "available %s", available)
	assert.True(t, balance.Equal(decimal.NewFromInt(400)), "balance %s", balance)
}

func TestAuthorizeCharge_ConcurrentChargesNeverOverdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	limit := decimal.NewFromInt(1000)
	card := testutil.SeedCreditCard(t, db, "CUST-101", limit, decimal.Zero)
	svc := credit.NewService(repository.NewCardRepository(db), okLedger{}, repository.NewDailyBalanceRepository(db), nil)

	const attempts = 10
	amount := decimal.NewFromInt(150)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.AuthorizeCharge(ctx, card.CardNumber, amount)
			if err != nil {
				if !errors.Is(err, domain.ErrVersionConflict) && !errors.Is(err, domain.ErrChargeInProgress) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if res.Approved {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.GreaterOrEqual(t, approved, 1)

	status, available, balance, _ := testutil.GetCreditState(t, db, card.ID)
	assert.Equal(t, domain.CardStatusActive, status)
	assert.True(t, available.Add(balance).Equal(limit))
	assert.True(t, balance.Equal(amount.Mul(decimal.NewFromInt(int64(approved)))), "balance %s after %d approvals", balance, approved)
	assert.False(t, available.IsNegative())
}

func TestAuthorizeCharge_LedgerDownLeavesStoredCardUntouched(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	card := testutil.SeedCreditCard(t, db, "CUST-102", decimal.NewFromInt(500), decimal.NewFromInt(100))
	ledger := newGatedLedger()
	ledger.err = fmt.Errorf("CreateTransaction: %w", domain.ErrTransactionServiceUnavailable)
	close(ledger.release)

	svc := credit.NewService(repository.NewCardRepository(db), ledger, repository.NewDailyBalanceRepository(db), nil)

	_, err := svc.AuthorizeCharge(ctx, card.CardNumber, decimal.NewFromInt(50))
	require.ErrorIs(t, err, domain.ErrTransactionServiceUnavailable)

	status, available, balance, version := testutil.GetCreditState(t, db, card.ID)
	assert.Equal(t, domain.CardStatusActive, status)
	assert.True(t, available.Equal(decimal.NewFromInt(400)))
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(2), version, "pending mark and restore each advance the version")
}

func TestPaymentAndDailySnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	card := testutil.SeedCreditCard(t, db, "CUST-103", decimal.NewFromInt(2000), decimal.NewFromInt(900))
	svc := credit.NewService(repository.NewCardRepository(db), okLedger{}, repository.NewDailyBalanceRepository(db), nil)

	res, err := svc.ProcessPayment(ctx, card.CardNumber, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, res.ActualPaymentAmount.Equal(decimal.NewFromInt(900)))

	day := time.Date(2026, 5, 2, 23, 59, 0, 0, time.UTC)
	written, err := svc.CaptureDailyBalances(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	written, err = svc.CaptureDailyBalances(ctx, day)
	require.NoError(t, err)
	assert.Zero(t, written)

	var stored decimal.Decimal
	err = db.QueryRow(
		`SELECT current_balance FROM daily_balances WHERE card_id = $1 AND balance_date = $2`,
		card.ID, "2026-05-02",
	).Scan(&stored)
	require.NoError(t, err)
	assert.True(t, stored.IsZero())
}

func TestRecoverStalePending_SettlesStoredCard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	card := testutil.SeedCreditCard(t, db, "CUST-104", decimal.NewFromInt(1000), decimal.Zero)
	_, err := db.Exec(
		`UPDATE cards SET status = $1, pending_authorization_code = $2, pending_amount = $3,
			pending_since = now() - interval '1 hour'
		WHERE id = $4`,
		domain.CardStatusChargePending, "AUTH-1-CAFEBABE", decimal.NewFromInt(250), card.ID,
	)
	require.NoError(t, err)

	svc := credit.NewService(repository.NewCardRepository(db), okLedger{}, repository.NewDailyBalanceRepository(db), nil)

	n, err := svc.RecoverStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, available, balance, _ := testutil.GetCreditState(t, db, card.ID)
	assert.Equal(t, domain.CardStatusActive, status)
	assert.True(t, available.Equal(decimal.NewFromInt(750)), "available %s", available)
	assert.True(t, balance.Equal(decimal.NewFromInt(250)), "balance %s", balance)

	var pendingCode sql.NullString
	require.NoError(t, db.QueryRow(`SELECT pending_authorization_code FROM cards WHERE id = $1`, card.ID).Scan(&pendingCode))
	assert.False(t, pendingCode.Valid)

	res, err := svc.AuthorizeCharge(ctx, card.CardNumber, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, res.Approved)
}
