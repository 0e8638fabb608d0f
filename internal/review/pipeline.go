// Package review computes a point-in-time code review for a workspace:
// the set of changed files, their diffs and a one-line summary. Work is
// single-flight per workspace and a successful result is cached until
// explicitly reset.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/slipway/internal/events"
	"github.com/mattjoyce/slipway/internal/git"
	applog "github.com/mattjoyce/slipway/internal/log"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// FileReview is one changed file in a review result. Diff is nil when the
// diff fetch for that file failed; the review still records the file.
type FileReview struct {
	Path       string        `json:"path"`
	ChangeKind string        `json:"change_kind"`
	Additions  int           `json:"additions"`
	Deletions  int           `json:"deletions"`
	Diff       *git.FileDiff `json:"diff,omitempty"`
}

// State is the observable result of one review computation.
type State struct {
	Status     string       `json:"status"`
	Summary    string       `json:"summary,omitempty"`
	Files      []FileReview `json:"files,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Flight is a handle to an in-progress or completed review. Concurrent
// Start calls for the same workspace share one Flight.
type Flight struct {
	done  chan struct{}
	state *State
}

// Wait blocks until the review completes and returns the terminal state.
func (f *Flight) Wait() *State {
	<-f.done
	return f.state
}

// Done exposes the completion channel for select-based callers.
func (f *Flight) Done() <-chan struct{} { return f.done }

// Pipeline owns the per-workspace single-flight map and result cache.
type Pipeline struct {
	client git.Client
	hub    *events.Hub
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*Flight
	cached   map[string]*Flight
	nextSub  int
	subs     map[string]map[int]func(State)
}

func NewPipeline(client git.Client, hub *events.Hub) *Pipeline {
	return &Pipeline{
		client:   client,
		hub:      hub,
		logger:   applog.WithComponent("review"),
		inflight: make(map[string]*Flight),
		cached:   make(map[string]*Flight),
		subs:     make(map[string]map[int]func(State)),
	}
}

// Start begins a review for a workspace, or joins the one already running.
// A cached success is returned as an already-completed Flight without
// recomputation; callers wanting a fresh review call Reset first. The
// running state is broadcast before this method returns, so a subscriber
// attaching right after Start observes it.
func (p *Pipeline) Start(ctx context.Context, workspaceID, path string) *Flight {
	p.mu.Lock()
	if f, ok := p.inflight[workspaceID]; ok {
		p.mu.Unlock()
		return f
	}
	if f, ok := p.cached[workspaceID]; ok && f.state.Status == StatusSuccess {
		p.mu.Unlock()
		return f
	}

	f := &Flight{
		done:  make(chan struct{}),
		state: &State{Status: StatusRunning, StartedAt: time.Now().UTC()},
	}
	p.inflight[workspaceID] = f
	running := *f.state
	p.mu.Unlock()

	p.broadcast(workspaceID, running)

	go p.run(ctx, workspaceID, path, f)
	return f
}

// Current reports the latest known state for a workspace, defaulting to
// idle.
func (p *Pipeline) Current(workspaceID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.inflight[workspaceID]; ok {
		return *f.state
	}
	if f, ok := p.cached[workspaceID]; ok {
		return *f.state
	}
	return State{Status: StatusIdle}
}

// Reset discards any completed result so the next Start recomputes. An
// in-flight review is not cancelled.
func (p *Pipeline) Reset(workspaceID string) {
	p.mu.Lock()
	delete(p.cached, workspaceID)
	p.mu.Unlock()
}

// Subscribe registers a listener for state broadcasts of one workspace.
func (p *Pipeline) Subscribe(workspaceID string, fn func(State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subs[workspaceID] == nil {
		p.subs[workspaceID] = make(map[int]func(State))
	}
	id := p.nextSub
	p.nextSub++
	p.subs[workspaceID][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs[workspaceID], id)
	}
}

func (p *Pipeline) run(ctx context.Context, workspaceID, path string, f *Flight) {
	state := p.compute(ctx, workspaceID, path)
	now := time.Now().UTC()
	state.StartedAt = f.state.StartedAt
	state.FinishedAt = &now

	p.mu.Lock()
	f.state = &state
	delete(p.inflight, workspaceID)
	p.cached[workspaceID] = f
	p.mu.Unlock()

	close(f.done)
	p.broadcast(workspaceID, state)
}

func (p *Pipeline) compute(ctx context.Context, workspaceID, path string) State {
	changes, err := p.client.Status(ctx, path)
	if err != nil {
		p.logger.Warn("review status fetch failed",
			"workspace", workspaceID, "error", err)
		return State{Status: StatusError, Error: err.Error()}
	}

	var files []FileReview
	additions, deletions := 0, 0
	for _, ch := range changes {
		if isBookkeeping(ch.Path) {
			continue
		}
		fr := FileReview{
			Path:       ch.Path,
			ChangeKind: ch.Status,
			Additions:  ch.Additions,
			Deletions:  ch.Deletions,
		}
		diff, err := p.client.FileDiff(ctx, path, ch.Path)
		if err != nil {
			p.logger.Debug("diff fetch failed, recording file without diff",
				"workspace", workspaceID, "file", ch.Path, "error", err)
		} else {
			fr.Diff = diff
		}
		additions += ch.Additions
		deletions += ch.Deletions
		files = append(files, fr)
	}

	return State{
		Status:  StatusSuccess,
		Summary: summarize(len(files), additions, deletions),
		Files:   files,
	}
}

func (p *Pipeline) broadcast(workspaceID string, state State) {
	p.mu.Lock()
	fns := make([]func(State), 0, len(p.subs[workspaceID]))
	for _, fn := range p.subs[workspaceID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		p.call(workspaceID, state, fn)
	}
	if p.hub != nil {
		p.hub.Publish(events.TypeReviewState, workspaceID, map[string]any{
			"status":  state.Status,
			"summary": state.Summary,
		})
	}
}

func (p *Pipeline) call(workspaceID string, state State, fn func(State)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("review listener panicked",
				"workspace", workspaceID, "panic", r)
		}
	}()
	fn(state)
}

// isBookkeeping filters paths that belong to the engine or VCS internals
// rather than the user's change set.
func isBookkeeping(path string) bool {
	return strings.HasPrefix(path, ".git/") ||
		strings.HasPrefix(path, ".slipway/") ||
		path == ".slipway"
}

func summarize(count, additions, deletions int) string {
	if count == 0 {
		return "no local changes"
	}
	noun := "files"
	if count == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s changed, +%d -%d", count, noun, additions, deletions)
}
