// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are read from an fs.FS, usually an embedded directory, and follow
// the naming convention {version}_{description}.sql (e.g. "001_create_service_schedules.sql").
// Applied versions are tracked in the schema_migrations table so that each file runs
// exactly once, inside its own transaction.
//
// Example usage:
//
//	manager := NewManager(NewScanner(migrations, "migrations"), NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
