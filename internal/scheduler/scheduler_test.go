package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapturer struct {
	mu         sync.Mutex
	days       []time.Time
	err        error
	recoveries int
}

func (f *fakeCapturer) RecoverStalePending(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoveries++
	return 1, nil
}

func (f *fakeCapturer) CaptureDailyBalances(_ context.Context, day time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, day)
	return len(f.days), f.err
}

func (f *fakeCapturer) runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.days)
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCleaner) CleanExpired(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 2, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New(Config{DailyBalanceSpec: "every night"}, &fakeCapturer{}, nil, quietLogger())
	assert.Error(t, err)

	_, err = New(Config{PendingRecoverySpec: "every minute"}, &fakeCapturer{}, nil, quietLogger())
	assert.Error(t, err)

	_, err = New(Config{IdempotencyCleanupSpec: "* * *"}, &fakeCapturer{}, &fakeCleaner{}, quietLogger())
	assert.Error(t, err)
}

func TestNew_RegistersConfiguredJobs(t *testing.T) {
	s, err := New(Config{
		DailyBalanceSpec:       "0 59 23 * * *",
		PendingRecoverySpec:    "0 * * * * *",
		IdempotencyCleanupSpec: "0 0 * * * *",
	}, &fakeCapturer{}, &fakeCleaner{}, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)

	s, err = New(Config{DailyBalanceSpec: "0 59 23 * * *", IdempotencyCleanupSpec: "0 0 * * * *"}, &fakeCapturer{}, nil, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1, "cleanup needs a cleaner")

	s, err = New(Config{}, &fakeCapturer{}, &fakeCleaner{}, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())
}

func TestCaptureBalances_UsesClock(t *testing.T) {
	capturer := &fakeCapturer{err: errors.New("partial failure")}
	s, err := New(Config{}, capturer, nil, quietLogger())
	require.NoError(t, err)

	fixed := time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.captureBalances()
	require.Len(t, capturer.days, 1)
	assert.Equal(t, fixed, capturer.days[0])
}

func TestStart_RunsJobsUntilCancelled(t *testing.T) {
	capturer := &fakeCapturer{}
	cleaner := &fakeCleaner{}
	s, err := New(Config{DailyBalanceSpec: "* * * * * *"}, capturer, cleaner, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return capturer.runs() > 0 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRecoverPending_CallsCreditService(t *testing.T) {
	capturer := &fakeCapturer{}
	s, err := New(Config{}, capturer, nil, quietLogger())
	require.NoError(t, err)

	s.recoverPending()
	s.recoverPending()
	assert.Equal(t, 2, capturer.recoveries)
}
