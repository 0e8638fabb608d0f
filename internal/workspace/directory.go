package workspace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Workspace is one isolated unit of work: a checkout path plus any
// secondary worktree paths that belong to the same task.
type Workspace struct {
	ID        string
	Path      string
	Worktrees []string
}

// Paths returns the primary path followed by secondary worktree paths.
func (w Workspace) Paths() []string {
	out := make([]string, 0, 1+len(w.Worktrees))
	out = append(out, w.Path)
	out = append(out, w.Worktrees...)
	return out
}

// Op describes a directory mutation delivered to subscribers.
type Op string

const (
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
)

// Directory tracks the set of workspaces currently visible to the daemon.
// Polling loops iterate it at poll time so removals take effect on the next
// tick rather than on a stale snapshot.
type Directory struct {
	mu    sync.Mutex
	items map[string]Workspace

	subs      map[int]func(Op, Workspace)
	nextSubID int
}

func NewDirectory() *Directory {
	return &Directory{
		items: make(map[string]Workspace),
		subs:  make(map[int]func(Op, Workspace)),
	}
}

// Add registers a workspace. Re-adding an existing id updates its paths.
func (d *Directory) Add(ws Workspace) error {
	if strings.TrimSpace(ws.ID) == "" {
		return fmt.Errorf("workspace id is empty")
	}
	if strings.TrimSpace(ws.Path) == "" {
		return fmt.Errorf("workspace %q has empty path", ws.ID)
	}

	d.mu.Lock()
	d.items[ws.ID] = ws
	subs := d.snapshotSubsLocked()
	d.mu.Unlock()

	for _, fn := range subs {
		fn(OpAdded, ws)
	}
	return nil
}

// Remove drops a workspace from the visible set. Returns false when the id
// is unknown.
func (d *Directory) Remove(id string) bool {
	d.mu.Lock()
	ws, ok := d.items[id]
	if ok {
		delete(d.items, id)
	}
	subs := d.snapshotSubsLocked()
	d.mu.Unlock()

	if !ok {
		return false
	}
	for _, fn := range subs {
		fn(OpRemoved, ws)
	}
	return true
}

// Get returns the workspace for id.
func (d *Directory) Get(id string) (Workspace, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ws, ok := d.items[id]
	return ws, ok
}

// List returns all visible workspaces sorted by id.
func (d *Directory) List() []Workspace {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Workspace, 0, len(d.items))
	for _, ws := range d.items {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe registers a listener for add/remove operations.
func (d *Directory) Subscribe(fn func(Op, Workspace)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *Directory) snapshotSubsLocked() []func(Op, Workspace) {
	out := make([]func(Op, Workspace), 0, len(d.subs))
	for _, fn := range d.subs {
		out = append(out, fn)
	}
	return out
}
