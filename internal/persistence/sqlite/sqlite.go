// Package sqlite stores service schedules in a SQLite database. Queried keys live
// in their own indexed columns, the complete record is kept as a JSON document.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/maintenance-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the migration source bundled with the package.
func Migrations() migration.Source {
	return migration.NewScanner(migrationFiles, "migrations")
}

// Storage bundles the connection pool with the schedule repository.
type Storage struct {
	*ScheduleRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database at dsn using the default configuration.
func Open(dsn string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), logger)
}

// OpenWithConfig connects using an explicit configuration.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	return &Storage{
		ScheduleRepository: NewScheduleRepository(pool),
		pool:               pool,
		logger:             logger,
	}, nil
}

// Migrate applies the bundled migrations and returns how many were applied.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	manager := migration.NewManager(Migrations(), migration.NewSQLiteExecutor(s.pool.DB()), s.logger)
	applied, err := manager.Run(ctx)
	if err != nil {
		return applied, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return applied, nil
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
