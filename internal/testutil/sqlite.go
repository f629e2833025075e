package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// BuildSQLite creates a SQLite database file at path by executing the
// given statements in order.
func BuildSQLite(t *testing.T, path string, stmts ...string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("opening fixture database: %v", err)
	}
	defer db.Close()

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("executing fixture statement %q: %v", stmt, err)
		}
	}
}

// FileBytes reads a file fully, failing the test on error.
func FileBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
