// Package scheduler runs the periodic jobs: daily credit balance snapshots,
// stale pending charge recovery and idempotency cache cleanup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type creditJobs interface {
	CaptureDailyBalances(ctx context.Context, day time.Time) (int, error)
	RecoverStalePending(ctx context.Context) (int, error)
}

type idempotencyCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type Config struct {
	DailyBalanceSpec       string
	PendingRecoverySpec    string
	IdempotencyCleanupSpec string
}

type Scheduler struct {
	cron     *cron.Cron
	credit   creditJobs
	cleaner  idempotencyCleaner
	logger   *slog.Logger
	now      func() time.Time
}

// New registers the jobs. Specs use the six-field form with a leading
// seconds field. A blank spec disables that job.
func New(cfg Config, credit creditJobs, cleaner idempotencyCleaner, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		credit:   credit,
		cleaner:  cleaner,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if cfg.DailyBalanceSpec != "" {
		if _, err := s.cron.AddFunc(cfg.DailyBalanceSpec, s.captureBalances); err != nil {
			return nil, fmt.Errorf("New: daily balance spec %q: %w", cfg.DailyBalanceSpec, err)
		}
	}
	if cfg.PendingRecoverySpec != "" {
		if _, err := s.cron.AddFunc(cfg.PendingRecoverySpec, s.recoverPending); err != nil {
			return nil, fmt.Errorf("New: pending recovery spec %q: %w", cfg.PendingRecoverySpec, err)
		}
	}
	if cfg.IdempotencyCleanupSpec != "" && cleaner != nil {
		if _, err := s.cron.AddFunc(cfg.IdempotencyCleanupSpec, s.cleanIdempotency); err != nil {
			return nil, fmt.Errorf("New: idempotency cleanup spec %q: %w", cfg.IdempotencyCleanupSpec, err)
		}
	}
	return s, nil
}

// Start runs the jobs until ctx is done, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) captureBalances() {
	ctx := context.Background()
	written, err := s.credit.CaptureDailyBalances(ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled balance capture failed", "written", written, "error", err)
		return
	}
	s.logger.Info("scheduled balance capture completed", "written", written)
}

func (s *Scheduler) recoverPending() {
	resolved, err := s.credit.RecoverStalePending(context.Background())
	if err != nil {
		s.logger.Error("pending charge recovery failed", "error", err)
		return
	}
	if resolved > 0 {
		s.logger.Warn("stale pending charges resolved", "count", resolved)
	}
}

func (s *Scheduler) cleanIdempotency() {
	removed, err := s.cleaner.CleanExpired(context.Background())
	if err != nil {
		s.logger.Error("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired idempotency keys removed", "count", removed)
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
