// Package gate decides whether a review session may begin for a
// workspace. Ordinarily a review only starts while the user is focused on
// a single work surface; an automated promotion into ready-for-review sets
// the pending flag, which is strong enough evidence of finished work to
// bypass that restriction.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/slipway/internal/config"
	"github.com/mattjoyce/slipway/internal/events"
	applog "github.com/mattjoyce/slipway/internal/log"
	"github.com/mattjoyce/slipway/internal/review"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/tabs"
	"github.com/mattjoyce/slipway/internal/workspace"
)

// Record is published to the caller-provided sink when a review session
// begins.
type Record struct {
	Status      string     `json:"status"`
	TabID       string     `json:"tab_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// StartRejectedError is the structured "cannot start" signal surfaced to
// the user instead of an exception.
type StartRejectedError struct {
	WorkspaceID string
	Reason      string
}

func (e *StartRejectedError) Error() string {
	return fmt.Sprintf("review start rejected for %s: %s", e.WorkspaceID, e.Reason)
}

// Gate owns the once-per-attachment guards and the start sequencing.
type Gate struct {
	cfg      config.ReviewConfig
	store    *status.Store
	tabs     *tabs.Registry
	pipeline *review.Pipeline
	dir      *workspace.Directory
	hub      *events.Hub
	logger   *slog.Logger

	// Sink receives the in-review record when a session starts. Optional.
	Sink func(workspaceID string, rec Record)

	mu            sync.Mutex
	autoStarted   map[string]bool
	manualStarted map[string]bool
}

func NewGate(
	cfg config.ReviewConfig,
	store *status.Store,
	registry *tabs.Registry,
	pipeline *review.Pipeline,
	dir *workspace.Directory,
	hub *events.Hub,
) *Gate {
	return &Gate{
		cfg:           cfg,
		store:         store,
		tabs:          registry,
		pipeline:      pipeline,
		dir:           dir,
		hub:           hub,
		logger:        applog.WithComponent("gate"),
		autoStarted:   make(map[string]bool),
		manualStarted: make(map[string]bool),
	}
}

// CanStart reports whether a review may begin for the workspace right now.
func (g *Gate) CanStart(workspaceID string) bool {
	if !g.cfg.Enabled {
		return false
	}
	if g.store.IsPendingReview(workspaceID) {
		return true
	}
	return g.tabs.CountWorkSurfaces(workspaceID) <= 1
}

// RequestAutoStart is invoked after a promotion into ready-for-review. It
// runs at most once per attachment and reports whether a session started.
func (g *Gate) RequestAutoStart(workspaceID string) bool {
	g.mu.Lock()
	if g.autoStarted[workspaceID] {
		g.mu.Unlock()
		return false
	}
	if !g.cfg.Enabled || !g.store.IsPendingReview(workspaceID) || !g.CanStart(workspaceID) {
		g.mu.Unlock()
		return false
	}
	g.autoStarted[workspaceID] = true
	g.mu.Unlock()

	g.store.ClearPendingReview(workspaceID)
	g.begin(workspaceID)
	return true
}

// RequestManualStart is the user-facing entry point. force skips the
// single-surface check. Repeated requests for an already started session
// are no-ops until ResetGuard.
func (g *Gate) RequestManualStart(workspaceID string, force bool) error {
	g.mu.Lock()
	if g.manualStarted[workspaceID] {
		g.mu.Unlock()
		return nil
	}
	if !g.cfg.Enabled {
		g.mu.Unlock()
		g.publishRejection(workspaceID, "review is disabled")
		return &StartRejectedError{WorkspaceID: workspaceID, Reason: "review is disabled"}
	}
	if !force && !g.CanStart(workspaceID) {
		g.mu.Unlock()
		reason := "multiple work surfaces open and no review pending"
		g.publishRejection(workspaceID, reason)
		return &StartRejectedError{WorkspaceID: workspaceID, Reason: reason}
	}
	g.manualStarted[workspaceID] = true
	g.mu.Unlock()

	g.store.ClearPendingReview(workspaceID)
	g.begin(workspaceID)
	return nil
}

// ResetGuard clears the per-workspace started guards, e.g. when the
// workspace detail view unmounts or the workspace detaches.
func (g *Gate) ResetGuard(workspaceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.autoStarted, workspaceID)
	delete(g.manualStarted, workspaceID)
}

// begin opens the review surface and kicks off the pipeline. The short
// delay lets a freshly created surface become interactive before the
// review session attaches.
func (g *Gate) begin(workspaceID string) {
	if g.cfg.AutoStartDelay > 0 {
		time.Sleep(g.cfg.AutoStartDelay)
	}

	tabID, err := g.tabs.OpenReviewSurface(workspaceID, g.cfg.Provider)
	if err != nil {
		g.logger.Warn("open review surface failed",
			"workspace", workspaceID, "error", err)
		return
	}

	rec := Record{Status: "in-review", TabID: tabID, StartedAt: time.Now().UTC()}
	if g.Sink != nil {
		g.Sink(workspaceID, rec)
	}
	g.logger.Info("review session started",
		"workspace", workspaceID, "tab", tabID)

	if ws, ok := g.dir.Get(workspaceID); ok {
		g.pipeline.Start(context.Background(), workspaceID, ws.Path)
	} else {
		g.logger.Warn("review started for unknown workspace path",
			"workspace", workspaceID)
	}
}

func (g *Gate) publishRejection(workspaceID, reason string) {
	if g.hub == nil {
		return
	}
	g.hub.Publish(events.TypeGateRejected, workspaceID, map[string]any{
		"reason": reason,
	})
}
