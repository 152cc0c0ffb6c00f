// Package gateway wraps the Account, Customer and Transaction services. Each
// service gets its own circuit breaker and call timeout; each operation
// decides whether a failure is surfaced (fail-closed) or replaced with an
// empty result (fail-open).
package gateway

import (
	"time"

	"github.com/josh-kwaku/card-service/internal/metrics"
)

type Config struct {
	AccountURL         string
	CustomerURL        string
	TransactionURL     string
	AccountTimeout     time.Duration
	CustomerTimeout    time.Duration
	TransactionTimeout time.Duration
	Breaker            BreakerSettings
}

type Gateway struct {
	*AccountClient
	*CustomerClient
	*TransactionClient
}

func New(cfg Config, m *metrics.Metrics) *Gateway {
	return &Gateway{
		AccountClient: NewAccountClient(cfg.AccountURL, cfg.AccountTimeout,
			NewBreaker(ServiceAccount, cfg.Breaker, m), m),
		CustomerClient: NewCustomerClient(cfg.CustomerURL, cfg.CustomerTimeout,
			NewBreaker(ServiceCustomer, cfg.Breaker, m), m),
		TransactionClient: NewTransactionClient(cfg.TransactionURL, cfg.TransactionTimeout,
			NewBreaker(ServiceTransaction, cfg.Breaker, m), m),
	}
}
