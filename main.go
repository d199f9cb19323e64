package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monthlydata/internal/api"
	"monthlydata/internal/app"
	"monthlydata/internal/config"
	"monthlydata/internal/events"
	"monthlydata/internal/logging"
)

func main() {
	// Auto-load ./.env if present before reading vars
	config.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if cfg.UsesDevSecret() {
		slog.Warn("JWT_SECRET not set, using development fallback", logging.FieldComponent, logging.ComponentApp)
	}

	// Support a lightweight migrate command: `./monthlydata migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	migrateOnly := len(os.Args) > 1 && os.Args[1] == "migrate"

	if err := run(cfg, logger, migrateOnly); err != nil {
		slog.Error("Server stopped with error", logging.FieldComponent, logging.ComponentApp, logging.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, migrateOnly)
	if err != nil {
		return err
	}
	defer a.Store.Close()

	if migrateOnly {
		fmt.Println("migration and seeding completed")
		return nil
	}

	pub, err := events.Open(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		// the API keeps serving without notifications
		slog.Warn("Record events disabled", logging.FieldComponent, logging.ComponentEvents, logging.FieldError, err)
		pub = events.Noop{}
	}
	defer pub.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(a.Store, a.Auth, a.Tokens, pub, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening",
			logging.FieldComponent, logging.ComponentApp,
			"addr", srv.Addr,
			"backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down", logging.FieldComponent, logging.ComponentApp)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
