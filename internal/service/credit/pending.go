package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

// persist writes the card with a short bounded backoff. It runs detached
// from the caller's cancellation because every call site follows a ledger
// write that has already happened. A version conflict is final: someone else
// moved the card and retrying the same version cannot succeed.
func (s *Service) persist(ctx context.Context, card *domain.Card) error {
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryBase
	b.MaxInterval = 8 * s.retryBase
	b.MaxElapsedTime = 0

	op := func() error {
		err := s.cards.Update(ctx, card)
		if errors.Is(err, domain.ErrVersionConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(b, writeRetries)); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// settlePending resolves a charge that outlived the pending TTL. The ledger
// decides: a recorded charge is applied, an unrecorded one is dropped and the
// card returns to ACTIVE untouched. A ledger that cannot answer leaves the
// card pending.
func (s *Service) settlePending(ctx context.Context, card *domain.Card) error {
	log := logging.FromContext(ctx)
	p := card.Pending

	recorded, err := s.ledger.TransactionExists(ctx, p.AuthorizationCode)
	if err != nil {
		return fmt.Errorf("settlePending: %w", err)
	}

	if recorded {
		card.ApplyCharge(p.Amount, p.Since)
	} else {
		card.Status = domain.CardStatusActive
		card.Pending = nil
	}

	if err := s.persist(ctx, card); err != nil {
		return fmt.Errorf("settlePending: %w", err)
	}

	outcome := "dropped"
	if recorded {
		outcome = "settled"
	}
	s.metrics.ChargeOutcome(outcome)
	log.Warn("stale pending charge resolved",
		"authorization_code", p.AuthorizationCode,
		"amount", p.Amount,
		"pending_since", p.Since,
		"outcome", outcome,
	)
	return nil
}

// RecoverStalePending settles every card pending for longer than the TTL
// and returns how many were resolved. Failures are logged per card and do
// not stop the sweep.
func (s *Service) RecoverStalePending(ctx context.Context) (int, error) {
	cards, err := s.cards.ListStalePending(ctx, s.now().Add(-s.pendingTTL))
	if err != nil {
		return 0, fmt.Errorf("RecoverStalePending: %w", err)
	}

	resolved := 0
	for i := range cards {
		card := &cards[i]
		if card.Pending == nil || !card.IsCredit() {
			continue
		}
		cardCtx, log := logging.With(ctx, "card_id", card.ID)
		if err := s.settlePending(cardCtx, card); err != nil {
			log.Error("stale pending charge not resolved", "error", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}
