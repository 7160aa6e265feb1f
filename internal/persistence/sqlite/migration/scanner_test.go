package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanner_Scan(t *testing.T) {
	tests := []struct {
		name          string
		files         fstest.MapFS
		expectedOrder []string
		expectError   error
	}{
		{
			name: "orders by numeric version",
			files: fstest.MapFS{
				"migrations/010_add_index.sql":    {Data: []byte("CREATE INDEX idx ON t(id);")},
				"migrations/002_add_column.sql":   {Data: []byte("ALTER TABLE t ADD COLUMN c TEXT;")},
				"migrations/001_create_table.sql": {Data: []byte("CREATE TABLE t (id TEXT PRIMARY KEY);")},
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "ignores non-SQL files",
			files: fstest.MapFS{
				"migrations/001_create_table.sql": {Data: []byte("CREATE TABLE t (id TEXT PRIMARY KEY);")},
				"migrations/README.md":            {Data: []byte("# notes")},
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "rejects malformed file names",
			files: fstest.MapFS{
				"migrations/create_table.sql": {Data: []byte("CREATE TABLE t (id TEXT);")},
			},
			expectError: ErrInvalidMigrationFile,
		},
		{
			name: "rejects comment-only files",
			files: fstest.MapFS{
				"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")},
			},
			expectError: ErrInvalidMigrationFile,
		},
		{
			name: "rejects duplicate versions",
			files: fstest.MapFS{
				"migrations/001_first.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/01_second.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
			},
			expectError: ErrDuplicateVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations, err := NewScanner(tt.files, "migrations").Scan()
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
			}
		})
	}
}

func TestScanner_Description(t *testing.T) {
	files := fstest.MapFS{
		"001_create_table.sql": {Data: []byte("-- Description: Create the t table\nCREATE TABLE t (id TEXT);")},
		"002_add_column.sql":   {Data: []byte("ALTER TABLE t ADD COLUMN c TEXT;")},
	}

	migrations, err := NewScanner(files, ".").Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if migrations[0].Description != "Create the t table" {
		t.Errorf("expected description from header comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "add column" {
		t.Errorf("expected description from file name, got %q", migrations[1].Description)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Errorf("expected distinct checksums, got %q and %q", migrations[0].Checksum, migrations[1].Checksum)
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- Description: two tables
CREATE TABLE a (id TEXT);
-- second
CREATE TABLE b (id TEXT);
`
	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (id TEXT)" {
		t.Errorf("unexpected second statement %q", statements[1])
	}
}
