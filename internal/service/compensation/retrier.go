package compensation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

const claimBatchSize = 10

type pendingTaskStore interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.CompensationTask, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CompensationStatus, lastError *string) error
}

// Retrier drains the compensation outbox on a fixed interval. Claimed tasks
// are leased: a task whose retrier disappears becomes claimable again once
// the lease runs out.
type Retrier struct {
	tasks       pendingTaskStore
	accounts    accountCrediter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	lease       time.Duration
}

func NewRetrier(
	tasks pendingTaskStore,
	accounts accountCrediter,
	m *metrics.Metrics,
	logger *slog.Logger,
	interval time.Duration,
	maxAttempts int,
	lease time.Duration,
) *Retrier {
	return &Retrier{
		tasks:       tasks,
		accounts:    accounts,
		metrics:     m,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		lease:       lease,
	}
}

func (r *Retrier) Start(ctx context.Context) {
	r.logger.Info("compensation retrier started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("compensation retrier stopped")
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

func (r *Retrier) poll(ctx context.Context) {
	tasks, err := r.tasks.ClaimPending(ctx, claimBatchSize, r.lease)
	if err != nil {
		r.logger.Error("failed to claim compensation tasks", "error", err)
		return
	}

	for _, task := range tasks {
		r.retry(ctx, task)
	}
}

func (r *Retrier) retry(ctx context.Context, task domain.CompensationTask) {
	log := r.logger.With(
		"compensation_task_id", task.ID,
		"reference", task.Reference,
		"account_id", task.AccountID,
		"attempts", task.Attempts,
	)

	_, err := r.accounts.CreditAccount(ctx, task.AccountID, domain.AccountMovement{
		Amount:      task.Amount,
		Description: task.Description,
		Reference:   task.Reference,
	})
	if err == nil {
		if err := r.tasks.UpdateStatus(ctx, task.ID, domain.CompensationStatusDone, nil); err != nil {
			log.Error("credit-back succeeded but task not marked done", "error", err)
			return
		}
		r.metrics.Compensation("retried")
		log.Info("compensation completed on retry", "amount", task.Amount)
		return
	}

	msg := err.Error()
	status := domain.CompensationStatusPending
	if task.Attempts >= r.maxAttempts {
		status = domain.CompensationStatusFailed
	}

	if uerr := r.tasks.UpdateStatus(ctx, task.ID, status, &msg); uerr != nil {
		log.Error("failed to record compensation attempt", "error", uerr)
		return
	}

	if status == domain.CompensationStatusFailed {
		r.metrics.Compensation("abandoned")
		log.Error("compensation abandoned, manual reconciliation required",
			"amount", task.Amount,
			"error", err,
		)
		return
	}
	log.Warn("compensation retry failed", "error", err)
}
