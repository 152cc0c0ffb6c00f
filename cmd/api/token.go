package main

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/card-service/internal/auth"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().StringSlice("scope", nil, "Scopes to embed in the token")
}

type tokenConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

var tokenCmd = &cobra.Command{
	Use:   "token CLIENT_ID",
	Short: "Issue a bearer token for a client, for local use",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := env.ParseAs[tokenConfig]()
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	scopes, _ := cmd.Flags().GetStringSlice("scope")

	token, err := auth.GenerateToken(args[0], scopes, cfg.JWTSecret, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
