package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	AccountServiceURL     string        `env:"ACCOUNT_SERVICE_URL" envDefault:"http://mock-services:8081/accounts"`
	CustomerServiceURL    string        `env:"CUSTOMER_SERVICE_URL" envDefault:"http://mock-services:8081/customers"`
	TransactionServiceURL string        `env:"TRANSACTION_SERVICE_URL" envDefault:"http://mock-services:8081/transactions"`
	AccountTimeout        time.Duration `env:"ACCOUNT_TIMEOUT" envDefault:"3s"`
	CustomerTimeout       time.Duration `env:"CUSTOMER_TIMEOUT" envDefault:"2s"`
	TransactionTimeout    time.Duration `env:"TRANSACTION_TIMEOUT" envDefault:"5s"`

	Breaker BreakerConfig `envPrefix:"BREAKER_"`

	CardNumberMaxAttempts int `env:"CARD_NUMBER_MAX_ATTEMPTS" envDefault:"5"`

	DailyBalanceCron          string        `env:"DAILY_BALANCE_CRON" envDefault:"0 59 23 * * *"`
	PendingRecoveryCron       string        `env:"PENDING_RECOVERY_CRON" envDefault:"30 * * * * *"`
	ChargePendingTTL          time.Duration `env:"CHARGE_PENDING_TTL" envDefault:"2m"`
	IdempotencyCleanupCron    string        `env:"IDEMPOTENCY_CLEANUP_CRON" envDefault:"0 0 * * * *"`
	CompensationRetryInterval time.Duration `env:"COMPENSATION_RETRY_INTERVAL" envDefault:"10s"`
	CompensationMaxAttempts   int           `env:"COMPENSATION_MAX_ATTEMPTS" envDefault:"10"`
	CompensationLease         time.Duration `env:"COMPENSATION_LEASE" envDefault:"2m"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBConnectAttempts  int `env:"DB_CONNECT_ATTEMPTS" envDefault:"30"`
}

// BreakerConfig applies to each downstream service breaker independently.
type BreakerConfig struct {
	MinRequests  uint32        `env:"MIN_REQUESTS" envDefault:"5"`
	FailureRatio float64       `env:"FAILURE_RATIO" envDefault:"0.5"`
	OpenTimeout  time.Duration `env:"OPEN_TIMEOUT" envDefault:"30s"`
	HalfOpenMax  uint32        `env:"HALF_OPEN_MAX" envDefault:"3"`
	Interval     time.Duration `env:"INTERVAL" envDefault:"60s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
