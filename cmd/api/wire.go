package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/card-service/internal/config"
	"github.com/josh-kwaku/card-service/internal/gateway"
	"github.com/josh-kwaku/card-service/internal/metrics"
	"github.com/josh-kwaku/card-service/internal/repository"
	"github.com/josh-kwaku/card-service/internal/service"
	"github.com/josh-kwaku/card-service/internal/service/compensation"
	"github.com/josh-kwaku/card-service/internal/service/credit"
	"github.com/josh-kwaku/card-service/internal/service/debit"
)

// app holds the components shared by the commands.
type app struct {
	db          *sql.DB
	metrics     *metrics.Metrics
	gateway     *gateway.Gateway
	idempotency *repository.IdempotencyRepository
	outbox      *repository.CompensationTaskRepository
	cards       *service.CardService
	credit      *credit.Service
	debit       *debit.Service
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectAttempts:  cfg.DBConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("buildApp: %w", err)
	}

	m := metrics.New()
	gw := gateway.New(gatewayConfig(cfg), m)

	cardRepo := repository.NewCardRepository(db)
	outbox := repository.NewCompensationTaskRepository(db)

	numbers := service.NewNumberGenerator(cardRepo, cfg.CardNumberMaxAttempts)
	coordinator := compensation.NewCoordinator(gw.AccountClient, outbox, m)
	creditSvc := credit.NewService(cardRepo, gw.TransactionClient, repository.NewDailyBalanceRepository(db), m).
		WithPendingTTL(cfg.ChargePendingTTL)

	return &app{
		db:          db,
		metrics:     m,
		gateway:     gw,
		idempotency: repository.NewIdempotencyRepository(db),
		outbox:      outbox,
		cards:       service.NewCardService(cardRepo, numbers, gw.CustomerClient, gw.AccountClient, gw.TransactionClient),
		credit:      creditSvc,
		debit:       debit.NewService(cardRepo, gw.AccountClient, gw.TransactionClient, coordinator, m),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	return gateway.Config{
		AccountURL:         cfg.AccountServiceURL,
		CustomerURL:        cfg.CustomerServiceURL,
		TransactionURL:     cfg.TransactionServiceURL,
		AccountTimeout:     cfg.AccountTimeout,
		CustomerTimeout:    cfg.CustomerTimeout,
		TransactionTimeout: cfg.TransactionTimeout,
		Breaker: gateway.BreakerSettings{
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			OpenTimeout:  cfg.Breaker.OpenTimeout,
			HalfOpenMax:  cfg.Breaker.HalfOpenMax,
			Interval:     cfg.Breaker.Interval,
		},
	}
}
