// Package database opens the instrumented Postgres connection and applies
// schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dailyquiz/internal/config"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.nhat.io/otelsql"
)

var (
	registerOnce   sync.Once
	otelDriverName string
	registerErr    error
)

// Manager opens database connections and runs migrations.
type Manager struct {
	logger *observability.Logger
}

// NewManager creates a database manager.
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{logger: logger}
}

func instrumentedDriver() (string, error) {
	registerOnce.Do(func() {
		otelDriverName, registerErr = otelsql.Register("postgres",
			otelsql.TraceQueryWithoutArgs(),
			otelsql.WithDatabaseName("dailyquiz"),
		)
	})
	return otelDriverName, registerErr
}

// InitDB opens a connection pool, verifies connectivity and runs migrations.
func (m *Manager) InitDB(ctx context.Context, cfg *config.DatabaseConfig) (result0 *sql.DB, err error) {
	db, err := m.InitDBWithoutMigrations(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := m.RunMigrations(ctx, cfg.URL); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			m.logger.Warn(ctx, "Failed to close database after migration error", map[string]interface{}{"error": closeErr.Error()})
		}
		return nil, contextutils.WrapError(err, "failed to run migrations")
	}

	return db, nil
}

// InitDBWithoutMigrations opens and pings the connection pool only.
func (m *Manager) InitDBWithoutMigrations(ctx context.Context, cfg *config.DatabaseConfig) (result0 *sql.DB, err error) {
	if cfg.URL == "" {
		return nil, contextutils.ErrorWithContextf("database URL is empty")
	}

	driver, err := instrumentedDriver()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to register instrumented driver")
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			m.logger.Warn(ctx, "Failed to close database after ping error", map[string]interface{}{"error": closeErr.Error()})
		}
		return nil, contextutils.WrapError(err, "failed to ping database")
	}

	m.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	})

	return db, nil
}

// RunMigrations applies pending migrations from the migrations directory,
// searched upward from the working directory.
func (m *Manager) RunMigrations(ctx context.Context, databaseURL string) error {
	dir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	mig, err := migrate.New(fmt.Sprintf("file://%s", dir), databaseURL)
	if err != nil {
		return contextutils.WrapError(err, "failed to create migrator")
	}
	defer func() {
		sourceErr, dbErr := mig.Close()
		if sourceErr != nil {
			m.logger.Warn(ctx, "Failed to close migration source", map[string]interface{}{"error": sourceErr.Error()})
		}
		if dbErr != nil {
			m.logger.Warn(ctx, "Failed to close migration database", map[string]interface{}{"error": dbErr.Error()})
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migration up failed")
	}

	m.logger.Info(ctx, "Migrations applied", map[string]interface{}{"dir": dir})
	return nil
}

func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", contextutils.WrapError(err, "failed to get working directory")
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", contextutils.ErrorWithContextf("migrations directory not found")
		}
		dir = parent
	}
}
