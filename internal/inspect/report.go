// Package inspect renders workspace state reports straight from the state
// database, for looking at a daemon's world without going through the API.
package inspect

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Report is the structured JSON representation of one workspace's state.
type Report struct {
	WorkspaceID   string `json:"workspace_id"`
	Status        string `json:"status"`
	PendingReview bool   `json:"pending_review"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	ActiveTab     string `json:"active_tab,omitempty"`
	Tabs          []Tab  `json:"tabs,omitempty"`
}

// Tab is one persisted work surface.
type Tab struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Review    bool      `json:"is_review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildReport renders a terminal-friendly state report for a workspace.
func BuildReport(ctx context.Context, db *sql.DB, workspaceID string) (string, error) {
	report, err := gatherReportData(ctx, db, workspaceID)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Workspace Report\n")
	fmt.Fprintf(&out, "Workspace   : %s\n", report.WorkspaceID)
	fmt.Fprintf(&out, "Status      : %s\n", report.Status)
	fmt.Fprintf(&out, "Pending     : %s\n", yesNo(report.PendingReview))
	if report.UpdatedAt != "" {
		fmt.Fprintf(&out, "Updated     : %s\n", report.UpdatedAt)
	}
	fmt.Fprintf(&out, "Tabs        : %d\n", len(report.Tabs))

	for _, tab := range report.Tabs {
		marker := " "
		if tab.ID == report.ActiveTab {
			marker = "*"
		}
		kind := "work"
		if tab.Review {
			kind = "review"
		}
		fmt.Fprintf(&out, "  %s %s (%s, %s)\n", marker, tab.ID, tab.Provider, kind)
	}

	return out.String(), nil
}

// BuildJSONReport returns the machine-readable JSON state report.
func BuildJSONReport(ctx context.Context, db *sql.DB, workspaceID string) (string, error) {
	report, err := gatherReportData(ctx, db, workspaceID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

// ListWorkspaceIDs returns every workspace id with persisted status,
// sorted by the database.
func ListWorkspaceIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT workspace_id FROM workspace_status ORDER BY workspace_id;")
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func gatherReportData(ctx context.Context, db *sql.DB, workspaceID string) (*Report, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	report := &Report{WorkspaceID: workspaceID}

	var updatedAt sql.NullString
	row := db.QueryRowContext(ctx, `
SELECT status, updated_at
FROM workspace_status
WHERE workspace_id = ?;
`, workspaceID)
	if err := row.Scan(&report.Status, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workspace %q not found", workspaceID)
		}
		return nil, fmt.Errorf("query workspace %q: %w", workspaceID, err)
	}
	if updatedAt.Valid {
		report.UpdatedAt = updatedAt.String
	}

	var pendingCount int
	row = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pending_review WHERE workspace_id = ?;", workspaceID)
	if err := row.Scan(&pendingCount); err != nil {
		return nil, fmt.Errorf("query pending review: %w", err)
	}
	report.PendingReview = pendingCount > 0

	tabs, activeID, err := loadTabs(ctx, db, workspaceID)
	if err != nil {
		return nil, err
	}
	report.Tabs = tabs
	report.ActiveTab = activeID

	return report, nil
}

// loadTabs reads the persisted tab set. A missing or malformed row yields
// an empty list rather than an error; the daemon resynthesizes those on
// its next access anyway.
func loadTabs(ctx context.Context, db *sql.DB, workspaceID string) ([]Tab, string, error) {
	var raw string
	row := db.QueryRowContext(ctx,
		"SELECT doc FROM tab_sets WHERE workspace_id = ?;", workspaceID)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("query tab set: %w", err)
	}

	var doc struct {
		Tabs     []Tab  `json:"tabs"`
		ActiveID string `json:"active_id"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, "", nil
	}
	return doc.Tabs, doc.ActiveID, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
