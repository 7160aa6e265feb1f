package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManager_RunAppliesPendingOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		"002_add_name.sql":     {Data: []byte("ALTER TABLE items ADD COLUMN name TEXT;\nCREATE INDEX idx_items_name ON items(name);")},
	}
	manager := NewManager(NewScanner(files, "."), NewSQLiteExecutor(db), nil)

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO items (id, name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	applied, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on second run, got %d", applied)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Applied) != 2 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestManager_RunRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		"002_broken.sql":       {Data: []byte("CREATE TABLE other (id TEXT);\nINSERT INTO missing VALUES (1);")},
	}
	manager := NewManager(NewScanner(files, "."), NewSQLiteExecutor(db), nil)

	applied, err := manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected first migration to be applied, got %d", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'other'").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected failed migration to be rolled back")
	}
}

func TestManager_StatusDetectsConflicts(t *testing.T) {
	tests := []struct {
		name    string
		first   fstest.MapFS
		second  fstest.MapFS
		wantErr error
	}{
		{
			name:    "gap in sequence",
			second:  fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}, "003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")}},
			wantErr: ErrVersionConflict,
		},
		{
			name:    "applied file removed",
			first:   fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}, "002_b.sql": {Data: []byte("CREATE TABLE b (id TEXT);")}},
			second:  fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}},
			wantErr: ErrVersionConflict,
		},
		{
			name:    "applied file edited",
			first:   fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}},
			second:  fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}},
			wantErr: ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := openTestDB(t)
			executor := NewSQLiteExecutor(db)
			if tt.first != nil {
				if _, err := NewManager(NewScanner(tt.first, "."), executor, nil).Run(ctx); err != nil {
					t.Fatalf("initial Run failed: %v", err)
				}
			}
			_, err := NewManager(NewScanner(tt.second, "."), executor, nil).Status(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "empty DSN", mutate: func(c *SQLiteConfig) { c.DSN = "" }, wantErr: true},
		{name: "bad journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSQLiteConfig("/tmp/scheduler.db")
			tt.mutate(&config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
