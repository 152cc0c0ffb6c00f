package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/card-service/internal/metrics"
)

const (
	ServiceAccount     = "account"
	ServiceCustomer    = "customer"
	ServiceTransaction = "transaction"
)

type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	HalfOpenMax  uint32
	Interval     time.Duration
}

// NewBreaker builds the breaker shared by every call to one downstream
// service. It trips once at least MinRequests calls were seen in the current
// interval and the failure ratio reaches FailureRatio. Client-side HTTP
// errors (4xx) count as successes: the service answered. A caller that
// cancelled its own request says nothing about the service and is neutral.
func NewBreaker(service string, s BreakerSettings, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	m.BreakerState(service, stateValue(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: s.HalfOpenMax,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var he *httpError
			return errors.As(err, &he) && he.clientSide()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"service", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.BreakerState(name, stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
