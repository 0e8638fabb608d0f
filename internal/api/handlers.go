package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/slipway/internal/gate"
	"github.com/mattjoyce/slipway/internal/signal"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/tabs"
	"github.com/mattjoyce/slipway/internal/workspace"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Workspaces:    len(s.dir.List()),
	})
}

// handleListWorkspaces handles GET /v1/workspaces.
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list := s.dir.List()
	out := make([]WorkspaceResponse, 0, len(list))
	for _, ws := range list {
		out = append(out, s.workspaceResponse(ws))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleAddWorkspace handles POST /v1/workspaces.
func (s *Server) handleAddWorkspace(w http.ResponseWriter, r *http.Request) {
	var req AddWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ws := workspace.Workspace{ID: req.ID, Path: req.Path, Worktrees: req.Worktrees}
	if err := s.dir.Add(ws); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, s.workspaceResponse(ws))
}

// handleRemoveWorkspace handles DELETE /v1/workspaces/{id}. All per-
// workspace engine state is dropped with the directory entry.
func (s *Server) handleRemoveWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.dir.Remove(id) {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}
	s.store.Remove(id)
	s.registry.Remove(id)
	s.gate.ResetGuard(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus handles PUT /v1/workspaces/{id}/status. This is the
// manual drag path: the override always wins, and dragging into
// ready-for-review arms the review auto-start exactly like an automated
// promotion.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ws, ok := s.dir.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	st := status.Status(req.Status)
	if !st.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown status: "+req.Status)
		return
	}

	s.aggregator.Override(id, st)
	s.writeJSON(w, http.StatusOK, s.workspaceResponse(ws))
}

// handleSignal handles POST /v1/workspaces/{id}/signals: the ingress for
// collaborator push notifications. Signals are fire-and-forget; whether
// they promote anything is the aggregator's call.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.dir.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Kind {
	case "terminal-output":
		s.ingress.TerminalOutput(id, []byte(req.Chunk))
	case "container-state":
		if req.Status == "" {
			s.writeError(w, http.StatusBadRequest, "container-state signal requires status")
			return
		}
		s.ingress.ContainerStateChange(id, signal.ContainerState{
			Status:     req.Status,
			Ports:      req.Ports,
			PreviewURL: req.PreviewURL,
		})
	case "activity":
		if req.Busy == nil {
			s.writeError(w, http.StatusBadRequest, "activity signal requires busy")
			return
		}
		s.ingress.AppActivity(id, *req.Busy)
	case "exit":
		s.ingress.SessionExit(id, req.ExitCode)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown signal kind: "+req.Kind)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleGetTabs handles GET /v1/workspaces/{id}/tabs.
func (s *Server) handleGetTabs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.registry.Snapshot(id)
	s.writeJSON(w, http.StatusOK, TabsResponse{Tabs: snap.Surfaces, ActiveID: snap.ActiveID})
}

// handleOpenTab handles POST /v1/workspaces/{id}/tabs.
func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req OpenTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	if req.Review {
		_, err = s.registry.OpenReviewSurface(id, req.Provider)
	} else {
		err = s.registry.OpenSurface(id, req.Provider)
	}
	if err != nil {
		if errors.Is(err, tabs.ErrUnknownProvider) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := s.registry.Snapshot(id)
	s.writeJSON(w, http.StatusCreated, TabsResponse{Tabs: snap.Surfaces, ActiveID: snap.ActiveID})
}

// handleSetActiveTab handles PUT /v1/workspaces/{id}/tabs/active.
func (s *Server) handleSetActiveTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetActiveTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.registry.SetActive(id, req.ID)
	snap := s.registry.Snapshot(id)
	s.writeJSON(w, http.StatusOK, TabsResponse{Tabs: snap.Surfaces, ActiveID: snap.ActiveID})
}

// handleCloseTab handles DELETE /v1/workspaces/{id}/tabs/{tabID}.
func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tabID := chi.URLParam(r, "tabID")

	if err := s.registry.CloseSurface(id, tabID); err != nil {
		if errors.Is(err, tabs.ErrLastSurface) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := s.registry.Snapshot(id)
	s.writeJSON(w, http.StatusOK, TabsResponse{Tabs: snap.Surfaces, ActiveID: snap.ActiveID})
}

// handleStartReview handles POST /v1/workspaces/{id}/review. ?force=true
// skips the single-surface check.
func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.dir.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "workspace not found")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := s.gate.RequestManualStart(id, force); err != nil {
		var rejected *gate.StartRejectedError
		if errors.As(err, &rejected) {
			s.writeError(w, http.StatusConflict, rejected.Reason)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, s.pipeline.Current(id))
}

// handleGetReview handles GET /v1/workspaces/{id}/review.
func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.writeJSON(w, http.StatusOK, s.pipeline.Current(id))
}

func (s *Server) workspaceResponse(ws workspace.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:            ws.ID,
		Path:          ws.Path,
		Worktrees:     ws.Worktrees,
		Status:        string(s.store.GetStatus(ws.ID)),
		PendingReview: s.store.IsPendingReview(ws.ID),
		ReviewStatus:  s.pipeline.Current(ws.ID).Status,
	}
}
