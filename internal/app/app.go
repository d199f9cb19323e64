// Package app opens the configured backend and the services built on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"monthlydata/internal/auth"
	"monthlydata/internal/config"
	"monthlydata/internal/logging"
	"monthlydata/internal/store"
	"monthlydata/internal/store/memory"
	"monthlydata/internal/store/postgres"

	"gorm.io/gorm/logger"
)

// App bundles the store with the auth services bound to it.
type App struct {
	Store  store.Store
	Auth   *auth.Service
	Tokens *auth.Tokens
}

// InitDB picks the backend named by DATA_BACKEND. forceMigrate overrides DB_AUTO_MIGRATE.
func InitDB(cfg *config.Config, forceMigrate bool) (store.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		slog.Warn("Using in-memory backend, data is lost on exit", logging.FieldComponent, logging.ComponentStorage)
		return memory.New(), nil
	case "postgres":
		level := logger.Warn
		if cfg.LogLevel == "debug" {
			level = logger.Info
		}
		st, err := postgres.Open(cfg.DBDSN, postgres.Options{
			AutoMigrate: cfg.DBAutoMigrate || forceMigrate,
			LogLevel:    level,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// Bootstrap opens the store, checks it answers and seeds the admin user.
func Bootstrap(ctx context.Context, cfg *config.Config, forceMigrate bool) (*App, error) {
	st, err := InitDB(cfg, forceMigrate)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	tokens := auth.NewTokens([]byte(cfg.JWTSecret))
	svc := auth.NewService(st, tokens)
	if err := seedDB(ctx, svc, cfg); err != nil {
		st.Close()
		return nil, err
	}
	return &App{Store: st, Auth: svc, Tokens: tokens}, nil
}

// seedDB makes sure the admin account exists.
func seedDB(ctx context.Context, svc *auth.Service, cfg *config.Config) error {
	if err := svc.SeedAdmin(ctx, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
