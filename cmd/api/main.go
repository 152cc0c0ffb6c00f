package main

import (
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "card-service"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "card-service",
	Short:        "Credit and debit card authorization and settlement service",
	SilenceUsage: true,
	Version:      version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
