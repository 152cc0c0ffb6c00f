// Package compensation credits accounts back after a debit purchase could not
// be completed. Credit-backs are attempted once inline; the ones that fail are
// parked in an outbox that Retrier drains in the background.
package compensation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

type accountCrediter interface {
	CreditAccount(ctx context.Context, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error)
}

type taskStore interface {
	Create(ctx context.Context, task *domain.CompensationTask) error
}

type Coordinator struct {
	accounts accountCrediter
	outbox   taskStore
	metrics  *metrics.Metrics
}

// NewCoordinator builds a Coordinator. outbox may be nil, in which case
// failed credit-backs are only logged.
func NewCoordinator(accounts accountCrediter, outbox taskStore, m *metrics.Metrics) *Coordinator {
	return &Coordinator{accounts: accounts, outbox: outbox, metrics: m}
}

// Revert credits back every usage with a positive deduction. Each account is
// tried on its own; one failure does not stop the rest.
func (c *Coordinator) Revert(ctx context.Context, reference string, usages []domain.AccountUsage) {
	ctx, log := logging.With(ctx, "reference", reference)

	for _, u := range usages {
		if !u.AmountDeducted.IsPositive() {
			continue
		}

		_, err := c.accounts.CreditAccount(ctx, u.AccountID, domain.AccountMovement{
			Amount:      u.AmountDeducted,
			Description: domain.RevertDescription,
			Reference:   reference,
		})
		if err == nil {
			c.metrics.Compensation("credited")
			log.Info("account credited back", "account_id", u.AccountID, "amount", u.AmountDeducted)
			continue
		}

		c.metrics.Compensation("failed")
		log.Error("failed to credit back account",
			"account_id", u.AccountID,
			"amount", u.AmountDeducted,
			"error", err,
		)
		c.enqueue(ctx, reference, u, err)
	}
}

// ParkUnknown records a debit whose outcome never came back. The task is
// created in the unknown state, which the retrier never picks up: whether a
// credit-back is owed has to be settled against the account's movements
// for reference.
func (c *Coordinator) ParkUnknown(ctx context.Context, reference string, u domain.AccountUsage, cause error) {
	log := logging.FromContext(ctx)
	log.Error("debit outcome unknown, parked for reconciliation",
		"reference", reference,
		"account_id", u.AccountID,
		"amount", u.AmountDeducted,
		"error", cause,
	)
	c.metrics.Compensation("unknown")

	if c.outbox == nil {
		return
	}

	msg := cause.Error()
	now := time.Now().UTC()
	task := &domain.CompensationTask{
		ID:          uuid.New(),
		Reference:   reference,
		AccountID:   u.AccountID,
		Amount:      u.AmountDeducted,
		Description: domain.RevertDescription,
		Status:      domain.CompensationStatusUnknown,
		LastError:   &msg,
		LastAttempt: &now,
		CreatedAt:   now,
	}
	if err := c.outbox.Create(ctx, task); err != nil {
		log.Error("failed to park unknown debit",
			"reference", reference,
			"account_id", u.AccountID,
			"error", err,
		)
	}
}

func (c *Coordinator) enqueue(ctx context.Context, reference string, u domain.AccountUsage, cause error) {
	if c.outbox == nil {
		return
	}

	msg := cause.Error()
	now := time.Now().UTC()
	task := &domain.CompensationTask{
		ID:          uuid.New(),
		Reference:   reference,
		AccountID:   u.AccountID,
		Amount:      u.AmountDeducted,
		Description: domain.RevertDescription,
		Status:      domain.CompensationStatusPending,
		Attempts:    1,
		LastError:   &msg,
		LastAttempt: &now,
		CreatedAt:   now,
	}
	if err := c.outbox.Create(ctx, task); err != nil {
		logging.FromContext(ctx).Error("failed to enqueue compensation",
			"account_id", u.AccountID,
			"amount", u.AmountDeducted,
			"error", err,
		)
		return
	}
	c.metrics.Compensation("queued")
}
