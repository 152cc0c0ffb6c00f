package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/card-service/internal/config"
	"github.com/josh-kwaku/card-service/internal/logging"
)

func init() {
	rootCmd.AddCommand(captureBalancesCmd)
	captureBalancesCmd.Flags().String("date", "", "Balance date to record (YYYY-MM-DD, defaults to today UTC)")
}

var captureBalancesCmd = &cobra.Command{
	Use:   "capture-balances",
	Short: "Snapshot every active credit card balance once and exit",
	RunE:  runCaptureBalances,
}

func runCaptureBalances(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(serviceName, cfg.LogLevel, cfg.AppEnv)

	day := time.Now().UTC()
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		day, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", raw, err)
		}
	}

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("capture-balances: %w", err)
	}
	defer a.Close()

	written, err := a.credit.CaptureDailyBalances(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("capture-balances: %w", err)
	}

	slog.Info("balance capture finished", "date", day.Format(time.DateOnly), "written", written)
	return nil
}
