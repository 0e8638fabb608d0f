// Package signal normalizes heterogeneous liveness sources (terminal
// output, container run state, UI busy indicators, process exits) into a
// single busy/idle notification channel keyed by workspace id.
package signal

import (
	"log/slog"
	"sync"

	applog "github.com/mattjoyce/slipway/internal/log"
)

// Activity is the shared fan-in for busy/idle signals. Watchers publish
// into it, the lifecycle aggregator watches it. The last published value
// per workspace is retained so Busy can be consulted synchronously.
type Activity struct {
	logger *slog.Logger

	mu       sync.Mutex
	busy     map[string]bool
	nextSub  int
	subs     map[string]map[int]func(busy bool)
	exitSubs map[string]map[int]func(exitCode int)
}

func NewActivity() *Activity {
	return &Activity{
		logger:   applog.WithComponent("signal"),
		busy:     make(map[string]bool),
		subs:     make(map[string]map[int]func(bool)),
		exitSubs: make(map[string]map[int]func(int)),
	}
}

// Publish records the latest busy/idle value for a workspace and notifies
// watchers. Repeated publishes of the same value are still delivered; the
// aggregator owns edge detection.
func (a *Activity) Publish(workspaceID string, busy bool) {
	a.mu.Lock()
	a.busy[workspaceID] = busy
	fns := collectLocked(a.subs[workspaceID])
	a.mu.Unlock()

	for _, fn := range fns {
		a.call(workspaceID, func() { fn(busy) })
	}
}

// Busy reports the last published value for a workspace, defaulting to idle.
func (a *Activity) Busy(workspaceID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy[workspaceID]
}

// Watch registers a busy/idle listener for one workspace and returns its
// disposer.
func (a *Activity) Watch(workspaceID string, fn func(busy bool)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subs[workspaceID] == nil {
		a.subs[workspaceID] = make(map[int]func(bool))
	}
	id := a.nextSub
	a.nextSub++
	a.subs[workspaceID][id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs[workspaceID], id)
	}
}

// PublishExit delivers a one-shot process-exit signal for a workspace.
func (a *Activity) PublishExit(workspaceID string, exitCode int) {
	a.mu.Lock()
	fns := collectExitLocked(a.exitSubs[workspaceID])
	a.mu.Unlock()

	for _, fn := range fns {
		a.call(workspaceID, func() { fn(exitCode) })
	}
}

// WatchExit registers a process-exit listener for one workspace.
func (a *Activity) WatchExit(workspaceID string, fn func(exitCode int)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.exitSubs[workspaceID] == nil {
		a.exitSubs[workspaceID] = make(map[int]func(int))
	}
	id := a.nextSub
	a.nextSub++
	a.exitSubs[workspaceID][id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.exitSubs[workspaceID], id)
	}
}

// Remove drops all retained state and listeners for a workspace.
func (a *Activity) Remove(workspaceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.busy, workspaceID)
	delete(a.subs, workspaceID)
	delete(a.exitSubs, workspaceID)
}

// call invokes a listener with panic isolation so one broken subscriber
// cannot break the others.
func (a *Activity) call(workspaceID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("activity listener panicked",
				"workspace", workspaceID, "panic", r)
		}
	}()
	fn()
}

func collectLocked(m map[int]func(bool)) []func(bool) {
	if len(m) == 0 {
		return nil
	}
	out := make([]func(bool), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

func collectExitLocked(m map[int]func(int)) []func(int) {
	if len(m) == 0 {
		return nil
	}
	out := make([]func(int), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}
