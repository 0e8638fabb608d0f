package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteBootstraps(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "slipway.db")
	db, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"workspace_status", "pending_review", "tab_sets"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?;", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}
}
