package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
)

const (
	cardNumberLength = 16

	// Randomly drawn numbers and sequence numbers live under different
	// leading digits so the fallback never walks into the random space.
	randomIssuerPrefix   = "4"
	sequenceIssuerPrefix = "9"
)

type numberStore interface {
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	NextNumberSequence(ctx context.Context) (int64, error)
}

// NumberGenerator allocates 16 digit, Luhn-valid card numbers. It draws
// random candidates up to maxAttempts times and then falls back to the
// database sequence.
type NumberGenerator struct {
	store       numberStore
	maxAttempts int
	random      func() (string, error)
}

func NewNumberGenerator(store numberStore, maxAttempts int) *NumberGenerator {
	return &NumberGenerator{
		store:       store,
		maxAttempts: max(maxAttempts, 1),
		random:      randomCardNumber,
	}
}

func (g *NumberGenerator) Generate(ctx context.Context) (string, error) {
	log := logging.FromContext(ctx)

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate, err := g.random()
		if err != nil {
			return "", fmt.Errorf("Generate: %w", err)
		}

		taken, err := g.store.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("Generate: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		log.Debug("card number collision", "attempt", attempt)
	}

	seq, err := g.store.NextNumberSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("Generate: sequence fallback: %w", err)
	}

	log.Warn("random card numbers exhausted, using sequence", "attempts", g.maxAttempts)
	return sequenceCardNumber(seq)
}

func randomCardNumber() (string, error) {
	body := make([]byte, 0, cardNumberLength-1)
	body = append(body, randomIssuerPrefix...)
	for len(body) < cardNumberLength-1 {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("randomCardNumber: %w", err)
		}
		body = append(body, '0'+byte(n.Int64()))
	}
	return string(append(body, luhnCheckDigit(string(body)))), nil
}

func sequenceCardNumber(seq int64) (string, error) {
	width := cardNumberLength - 1 - len(sequenceIssuerPrefix)
	body := fmt.Sprintf("%s%0*d", sequenceIssuerPrefix, width, seq)
	if len(body) != cardNumberLength-1 {
		return "", fmt.Errorf("sequenceCardNumber: sequence %d overflows: %w", seq, domain.ErrCardNumberExhausted)
	}
	return string(append([]byte(body), luhnCheckDigit(body))), nil
}

// luhnCheckDigit computes the digit that makes body+digit pass the Luhn
// check. body must be all ASCII digits.
func luhnCheckDigit(body string) byte {
	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}
