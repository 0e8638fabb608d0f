package inspect

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/slipway/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedWorkspace(t *testing.T, db *sql.DB, id, status string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO workspace_status(workspace_id, status, updated_at) VALUES(?, ?, ?);",
		id, status, "2026-09-01T10:00:00Z")
	if err != nil {
		t.Fatalf("seed status: %v", err)
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	seedWorkspace(t, db, "ws-1", "active")
	_, err := db.Exec("INSERT INTO pending_review(workspace_id, updated_at) VALUES('ws-1', '');")
	if err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	_, err = db.Exec("INSERT INTO tab_sets(workspace_id, doc, updated_at) VALUES('ws-1', ?, '');",
		`{"tabs":[{"id":"t-1","provider":"terminal"},{"id":"agent-review","provider":"agent","is_review":true}],"active_id":"agent-review"}`)
	if err != nil {
		t.Fatalf("seed tabs: %v", err)
	}

	out, err := BuildReport(context.Background(), db, "ws-1")
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	for _, want := range []string{
		"Workspace   : ws-1",
		"Status      : active",
		"Pending     : yes",
		"Tabs        : 2",
		"* agent-review (agent, review)",
		"  t-1 (terminal, work)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildReportNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	_, err := BuildReport(context.Background(), db, "ghost")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestBuildReportEmptyID(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	if _, err := BuildReport(context.Background(), db, "  "); err == nil {
		t.Fatal("expected error for blank workspace id")
	}
}

func TestBuildReportNoTabs(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	seedWorkspace(t, db, "ws-2", "not-started")

	out, err := BuildReport(context.Background(), db, "ws-2")
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !strings.Contains(out, "Tabs        : 0") {
		t.Fatalf("expected zero tabs:\n%s", out)
	}
	if !strings.Contains(out, "Pending     : no") {
		t.Fatalf("expected pending no:\n%s", out)
	}
}

func TestBuildReportMalformedTabDoc(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	seedWorkspace(t, db, "ws-3", "active")
	_, err := db.Exec("INSERT INTO tab_sets(workspace_id, doc, updated_at) VALUES('ws-3', '{not json', '');")
	if err != nil {
		t.Fatalf("seed tabs: %v", err)
	}

	out, err := BuildReport(context.Background(), db, "ws-3")
	if err != nil {
		t.Fatalf("malformed doc should not fail the report: %v", err)
	}
	if !strings.Contains(out, "Tabs        : 0") {
		t.Fatalf("expected zero tabs:\n%s", out)
	}
}

func TestBuildJSONReport(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	seedWorkspace(t, db, "ws-1", "ready-for-review")

	out, err := BuildJSONReport(context.Background(), db, "ws-1")
	if err != nil {
		t.Fatalf("BuildJSONReport: %v", err)
	}
	if !strings.Contains(out, `"status": "ready-for-review"`) {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestListWorkspaceIDs(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	seedWorkspace(t, db, "ws-b", "active")
	seedWorkspace(t, db, "ws-a", "not-started")

	ids, err := ListWorkspaceIDs(context.Background(), db)
	if err != nil {
		t.Fatalf("ListWorkspaceIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "ws-a" || ids[1] != "ws-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
