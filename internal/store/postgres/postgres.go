// Package postgres is the gorm-backed Postgres implementation of store.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"monthlydata/internal/store"
	"monthlydata/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes how the store is opened.
type Options struct {
	// AutoMigrate runs schema migration and role seeding on open.
	AutoMigrate bool
	// LogLevel is passed to gorm's logger. Zero means warnings only.
	LogLevel logger.LogLevel
}

// Store wraps a gorm handle. It is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and optionally migrates the schema.
func Open(dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres: empty DSN")
	}
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{db: gdb}
	if opts.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			// partial migrations are tolerated; the caller decides whether to continue
			slog.Warn("migration finished with warnings", "component", "storage", "error", err)
		}
	}
	return s, nil
}

// Migrate creates the roles table and seeds it before the tables that reference it,
// then migrates each remaining model on its own so one failure does not block the rest.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	var errs []error
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		errs = append(errs, fmt.Errorf("roles: %w", err))
	}
	if err := s.EnsureRoles(ctx); err != nil {
		errs = append(errs, err)
	}
	// monthly_records migrates alongside User so the Creator projection resolves to the
	// users table already in the batch instead of being migrated as a model of its own.
	steps := []struct {
		name   string
		models []any
	}{
		{"users", []any{&models.User{}}},
		{"refresh_tokens", []any{&models.RefreshToken{}}},
		{"monthly_records", []any{&models.User{}, &models.MonthlyRecord{}}},
	}
	for _, st := range steps {
		if err := db.AutoMigrate(st.models...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
		}
	}
	return errors.Join(errs...)
}

// EnsureRoles inserts any missing master role.
func (s *Store) EnsureRoles(ctx context.Context) error {
	for _, r := range models.DefaultRoles() {
		if err := s.db.WithContext(ctx).Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("ensure role %s: %w", r.Name, err)
		}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
