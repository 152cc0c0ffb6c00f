package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/card-service/internal/config"
	"github.com/josh-kwaku/card-service/internal/handler"
	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/scheduler"
	"github.com/josh-kwaku/card-service/internal/server"
	"github.com/josh-kwaku/card-service/internal/service/compensation"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the compensation retrier and the scheduled jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init(serviceName, cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer a.Close()

	sched, err := scheduler.New(scheduler.Config{
		DailyBalanceSpec:       cfg.DailyBalanceCron,
		PendingRecoverySpec:    cfg.PendingRecoveryCron,
		IdempotencyCleanupSpec: cfg.IdempotencyCleanupCron,
	}, a.credit, a.idempotency, logger)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	retrier := compensation.NewRetrier(
		a.outbox,
		a.gateway.AccountClient,
		a.metrics,
		logger,
		cfg.CompensationRetryInterval,
		cfg.CompensationMaxAttempts,
		cfg.CompensationLease,
	)

	h := server.NewHandler(server.Handlers{
		Health: handler.NewHealthHandler(a.db, version),
		Credit: handler.NewCreditCardHandler(a.cards, a.credit),
		Debit:  handler.NewDebitCardHandler(a.cards, a.debit),
		Cards:  handler.NewCardHandler(a.cards),
	}, server.Options{
		JWTSecret:   cfg.JWTSecret,
		Idempotency: a.idempotency,
		Metrics:     a.metrics,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		retrier.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		sched.Start(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: forced shutdown: %w", err)
	}
	wg.Wait()
	slog.Info("server stopped")
	return nil
}
