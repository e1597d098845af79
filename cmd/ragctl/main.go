// Package main implements ragctl, the command-line companion of ragd for
// migrations, ingestion, ad-hoc search and token issuance.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rossirpaulo/agihouse-hackathon/internal/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Operate the retrieval pipeline",
	Long: `ragctl manages the retrieval store used by ragd.

Configuration is read from the environment and an optional .env file,
the same way ragd reads it.`,
	Version:      version,
	SilenceUsage: true,
}

// loadConfig loads configuration and installs a JSON logger on stderr, so
// stdout carries only command output.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}
