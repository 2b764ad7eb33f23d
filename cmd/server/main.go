package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/church_members/internal/app"
	"github.com/Skotchmaster/church_members/internal/config"
	"github.com/Skotchmaster/church_members/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Church membership directory backend",
	Long:          "HTTP API for the church membership directory: accounts, roles and member records.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads and validates configuration, then builds the application.
func setup(ctx context.Context) (*app.App, *slog.Logger, error) {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, logger, err
	}
	return a, logger, nil
}
