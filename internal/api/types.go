package api

import (
	"encoding/json"
	"net/http"

	"github.com/mattjoyce/slipway/internal/tabs"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Workspaces    int    `json:"workspaces"`
}

// WorkspaceResponse is one entry of GET /v1/workspaces.
type WorkspaceResponse struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Worktrees     []string `json:"worktrees,omitempty"`
	Status        string   `json:"status"`
	PendingReview bool     `json:"pending_review"`
	ReviewStatus  string   `json:"review_status"`
}

// AddWorkspaceRequest is the body of POST /v1/workspaces.
type AddWorkspaceRequest struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	Worktrees []string `json:"worktrees,omitempty"`
}

// SetStatusRequest is the body of PUT /v1/workspaces/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SignalRequest is the body of POST /v1/workspaces/{id}/signals. Kind
// selects the collaborator channel: terminal-output (chunk), container-state
// (status, ports, preview_url), activity (busy) or exit (exit_code).
type SignalRequest struct {
	Kind       string `json:"kind"`
	Chunk      string `json:"chunk,omitempty"`
	Busy       *bool  `json:"busy,omitempty"`
	Status     string `json:"status,omitempty"`
	Ports      []int  `json:"ports,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
}

// TabsResponse mirrors a tab registry snapshot.
type TabsResponse struct {
	Tabs     []tabs.Surface `json:"tabs"`
	ActiveID string         `json:"active_id"`
}

// OpenTabRequest is the body of POST /v1/workspaces/{id}/tabs.
type OpenTabRequest struct {
	Provider string `json:"provider"`
	Review   bool   `json:"review,omitempty"`
}

// SetActiveTabRequest is the body of PUT /v1/workspaces/{id}/tabs/active.
type SetActiveTabRequest struct {
	ID string `json:"id"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, ErrorResponse{Error: msg})
}
