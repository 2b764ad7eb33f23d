package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Migrate the database, ensure a SUPER_ADMIN exists and serve the API until SIGINT or SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, l, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			l.Error("shutdown_close_failed", "error", err)
		}
	}()

	if err := observability.InitSentry(a.Config.SentryDSN, a.Config.AppEnv); err != nil {
		l.Warn("sentry_disabled", "error", err)
	}
	defer observability.FlushSentry()

	ctx = logging.IntoContext(ctx, l)
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	res, err := a.Bootstrap(ctx)
	if err != nil {
		return err
	}
	l.Info("bootstrap_checked", "result", res.String())

	a.StartPurge(ctx)

	e := a.Server()
	errCh := make(chan error, 1)
	go func() {
		l.Info("server_started", "addr", a.Config.Addr())
		if err := e.Start(a.Config.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	l.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_failed", "error", err)
		return err
	}
	return nil
}
