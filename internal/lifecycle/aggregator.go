// Package lifecycle derives each workspace's workflow status from the
// activity signals and external evidence the watchers and pollers report.
// It owns the per-workspace debounce timers and the transition policy, and
// it is the only writer of workspace status besides explicit overrides,
// which also flow through it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/slipway/internal/config"
	"github.com/mattjoyce/slipway/internal/events"
	"github.com/mattjoyce/slipway/internal/git"
	applog "github.com/mattjoyce/slipway/internal/log"
	"github.com/mattjoyce/slipway/internal/signal"
	"github.com/mattjoyce/slipway/internal/status"
	"github.com/mattjoyce/slipway/internal/workspace"
)

const pollCallTimeout = 15 * time.Second

// attachment holds the per-workspace handles the aggregator must clean up
// on detach: signal subscriptions and the outstanding idle-settle timer.
type attachment struct {
	unsubs   []func()
	grace    *time.Timer
	lastBusy bool
}

// Aggregator is the lifecycle state machine host.
type Aggregator struct {
	cfg      config.LifecycleConfig
	store    *status.Store
	activity *signal.Activity
	dir      *workspace.Directory
	client   git.Client
	hub      *events.Hub
	logger   *slog.Logger

	// onReady is invoked asynchronously after every transition into
	// ready-for-review, once the pending flag is set.
	onReady func(workspaceID string)

	mu       sync.Mutex
	attached map[string]*attachment

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dirUnsub func()
}

func NewAggregator(
	cfg config.LifecycleConfig,
	store *status.Store,
	activity *signal.Activity,
	dir *workspace.Directory,
	client git.Client,
	hub *events.Hub,
) *Aggregator {
	return &Aggregator{
		cfg:      cfg,
		store:    store,
		activity: activity,
		dir:      dir,
		client:   client,
		hub:      hub,
		logger:   applog.WithComponent("lifecycle"),
		attached: make(map[string]*attachment),
		stopCh:   make(chan struct{}),
	}
}

// SetReadyHook installs the callback fired after each promotion into
// ready-for-review. Must be called before Start.
func (a *Aggregator) SetReadyHook(fn func(workspaceID string)) {
	a.onReady = fn
}

// Start attaches every known workspace, follows directory changes, and
// launches the external-evidence polling loops.
func (a *Aggregator) Start() {
	for _, ws := range a.dir.List() {
		a.Attach(ws)
	}
	a.dirUnsub = a.dir.Subscribe(func(op workspace.Op, ws workspace.Workspace) {
		switch op {
		case workspace.OpAdded:
			a.Attach(ws)
		case workspace.OpRemoved:
			a.Detach(ws.ID)
		}
	})

	a.startPoller("local-changes", a.cfg.LocalChangesPoll, a.checkLocalChanges)
	a.startPoller("pull-request", a.cfg.PullRequestPoll, a.checkPullRequest)
	a.startPoller("branch-ahead", a.cfg.BranchAheadPoll, a.checkBranchAhead)
}

// Stop tears down pollers and all per-workspace subscriptions and timers.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
	if a.dirUnsub != nil {
		a.dirUnsub()
	}

	a.mu.Lock()
	ids := make([]string, 0, len(a.attached))
	for id := range a.attached {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	for _, id := range ids {
		a.Detach(id)
	}
}

// Attach wires a workspace into the activity and exit channels. Attaching
// an already attached workspace is a no-op.
func (a *Aggregator) Attach(ws workspace.Workspace) {
	a.mu.Lock()
	if _, ok := a.attached[ws.ID]; ok {
		a.mu.Unlock()
		return
	}
	att := &attachment{}
	a.attached[ws.ID] = att
	a.mu.Unlock()

	id := ws.ID
	unsubBusy := a.activity.Watch(id, func(busy bool) { a.onActivity(id, busy) })
	unsubExit := a.activity.WatchExit(id, func(int) { a.onExit(id) })

	a.mu.Lock()
	att.unsubs = append(att.unsubs, unsubBusy, unsubExit)
	a.mu.Unlock()

	a.hub.Publish(events.TypeWorkspaceAttached, id, nil)
}

// Detach removes a workspace's subscriptions and cancels its grace timer,
// so no check keeps running against a path that no longer exists.
func (a *Aggregator) Detach(workspaceID string) {
	a.mu.Lock()
	att, ok := a.attached[workspaceID]
	if ok {
		delete(a.attached, workspaceID)
		if att.grace != nil {
			att.grace.Stop()
			att.grace = nil
		}
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	for _, unsub := range att.unsubs {
		unsub()
	}
	a.hub.Publish(events.TypeWorkspaceDetached, workspaceID, nil)
}

// Override applies an explicit status request, e.g. a manual drag. It
// always wins over watcher-derived state, but entering ready-for-review
// this way still arms the pending flag and the auto-start hook, the same
// as an automated promotion.
func (a *Aggregator) Override(workspaceID string, st status.Status) {
	a.cancelGrace(workspaceID)
	a.transition(workspaceID, st, "override")
}

// onActivity handles a busy/idle report from the shared activity channel.
// Watchers may repeat the same value; edges are detected here.
func (a *Aggregator) onActivity(workspaceID string, busy bool) {
	a.mu.Lock()
	att, ok := a.attached[workspaceID]
	if !ok {
		a.mu.Unlock()
		return
	}
	wasBusy := att.lastBusy
	att.lastBusy = busy
	a.mu.Unlock()

	if busy {
		// Busy is authoritative immediately: cancel any idle-settle
		// timer and promote a fresh workspace to active.
		a.cancelGrace(workspaceID)
		if a.store.GetStatus(workspaceID) == status.NotStarted {
			a.transition(workspaceID, status.Active, "busy signal")
		}
		return
	}

	if !wasBusy {
		return
	}
	if a.store.GetStatus(workspaceID) != status.Active {
		return
	}
	a.armGrace(workspaceID)
}

// onExit handles a one-shot process-exit signal. Exit while idle is a
// stronger completion signal than idleness, so it skips the grace timer.
func (a *Aggregator) onExit(workspaceID string) {
	if a.activity.Busy(workspaceID) {
		return
	}
	if a.store.GetStatus(workspaceID) != status.Active {
		return
	}
	a.cancelGrace(workspaceID)
	a.transition(workspaceID, status.ReadyForReview, "process exit")
}

// armGrace starts the idle-settle timer, replacing any outstanding one so
// at most a single handle exists per workspace.
func (a *Aggregator) armGrace(workspaceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	att, ok := a.attached[workspaceID]
	if !ok {
		return
	}
	if att.grace != nil {
		att.grace.Stop()
	}
	att.grace = time.AfterFunc(a.cfg.IdleGrace, func() {
		a.graceFired(workspaceID)
	})
}

func (a *Aggregator) cancelGrace(workspaceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if att, ok := a.attached[workspaceID]; ok && att.grace != nil {
		att.grace.Stop()
		att.grace = nil
	}
}

func (a *Aggregator) graceFired(workspaceID string) {
	a.mu.Lock()
	att, ok := a.attached[workspaceID]
	if ok {
		att.grace = nil
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	if a.activity.Busy(workspaceID) {
		return
	}
	if a.store.GetStatus(workspaceID) != status.Active {
		return
	}
	a.transition(workspaceID, status.ReadyForReview, "idle settle")
}

// transition applies a status change if the workspace is not already in
// the target state. Re-entering the current status is a no-op and must not
// re-fire side effects.
func (a *Aggregator) transition(workspaceID string, to status.Status, reason string) {
	from := a.store.GetStatus(workspaceID)
	if from == to {
		return
	}
	a.store.SetStatus(workspaceID, to)
	a.logger.Info("workspace promoted",
		"workspace", workspaceID, "from", string(from), "to", string(to),
		"reason", reason)
	a.hub.Publish(events.TypeLifecyclePromoted, workspaceID, map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})

	if to == status.ReadyForReview {
		a.store.SetPendingReview(workspaceID, true)
		if a.onReady != nil {
			go a.onReady(workspaceID)
		}
	}
}

// startPoller runs one external-evidence loop. Each tick iterates the live
// workspace list and isolates per-item errors.
func (a *Aggregator) startPoller(name string, interval time.Duration,
	check func(ctx context.Context, ws workspace.Workspace) (bool, error)) {
	if interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				a.pollOnce(name, check)
			}
		}
	}()
}

func (a *Aggregator) pollOnce(name string,
	check func(ctx context.Context, ws workspace.Workspace) (bool, error)) {
	for _, ws := range a.dir.List() {
		// Busy suppresses auto-completion regardless of other evidence.
		if a.activity.Busy(ws.ID) {
			continue
		}
		if a.store.GetStatus(ws.ID) == status.ReadyForReview {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), pollCallTimeout)
		positive, err := check(ctx, ws)
		cancel()
		if err != nil {
			// A single failed check never aborts the loop or affects
			// other workspaces.
			a.logger.Debug("poll check failed",
				"poller", name, "workspace", ws.ID, "error", err)
			continue
		}
		if positive {
			a.transition(ws.ID, status.ReadyForReview, name)
		}
	}
	a.hub.Publish(events.TypePollTick, "", map[string]any{"poller": name})
}

// The check functions keep scanning a workspace's remaining paths when one
// fails, so a broken worktree never masks evidence in another.

func (a *Aggregator) checkLocalChanges(ctx context.Context, ws workspace.Workspace) (bool, error) {
	var errs []error
	for _, path := range ws.Paths() {
		changes, err := a.client.Status(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if len(changes) > 0 {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func (a *Aggregator) checkPullRequest(ctx context.Context, ws workspace.Workspace) (bool, error) {
	var errs []error
	for _, path := range ws.Paths() {
		pr, err := a.client.PRStatus(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		// Only an open pull request counts; a merged or closed one is
		// finished work, not evidence the workspace needs review.
		if pr != nil && strings.EqualFold(pr.State, "OPEN") {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func (a *Aggregator) checkBranchAhead(ctx context.Context, ws workspace.Workspace) (bool, error) {
	var errs []error
	for _, path := range ws.Paths() {
		ahead, err := a.client.BranchAhead(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if ahead > 0 {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
