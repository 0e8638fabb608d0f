package tabs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/slipway/internal/log"
)

// Surface is one interactive work surface (tab) attached to a workspace.
type Surface struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	Review    bool      `json:"is_review,omitempty"`
}

// Snapshot is an immutable view of a workspace's surfaces. The registry
// returns the same pointer until content changes, so callers can use
// pointer identity as a cheap change check.
type Snapshot struct {
	Surfaces []Surface
	ActiveID string
}

// ErrLastSurface is returned when a close would empty the collection.
var ErrLastSurface = errors.New("cannot close the last remaining surface")

// ErrUnknownProvider is returned when an open names an undeclared kind.
var ErrUnknownProvider = errors.New("unknown surface provider")

type tabSet struct {
	surfaces []Surface
	activeID string
}

// persistedDoc is the JSON layout of one tab_sets row.
type persistedDoc struct {
	Tabs     []Surface `json:"tabs"`
	ActiveID string    `json:"active_id"`
}

// Registry owns the per-workspace ordered surface collections. Invariants
// held after every committed mutation: the collection is non-empty, holds no
// duplicate (provider, review) pair, contains only declared provider kinds,
// and the active id refers to a member.
type Registry struct {
	db       *sql.DB
	logger   *slog.Logger
	known    map[string]bool
	fallback string

	mu    sync.Mutex
	sets  map[string]*tabSet
	snaps map[string]*Snapshot

	subs      map[string]map[int]func()
	nextSubID int
}

// NewRegistry creates a Registry. providers is the set of declared surface
// kinds; fallback is the kind used when a collection must be resynthesized.
// db may be nil for memory-only operation.
func NewRegistry(db *sql.DB, providers []string, fallback string) *Registry {
	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p] = true
	}
	if !known[fallback] {
		known[fallback] = true
	}
	return &Registry{
		db:       db,
		logger:   log.WithComponent("tabs"),
		known:    known,
		fallback: fallback,
		sets:     make(map[string]*tabSet),
		snaps:    make(map[string]*Snapshot),
		subs:     make(map[string]map[int]func()),
	}
}

// OpenSurface makes an ordinary surface of the given kind active, appending
// one first if none exists. Idempotent.
func (r *Registry) OpenSurface(ws, kind string) error {
	if !r.known[kind] {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}

	r.mu.Lock()
	set := r.loadLocked(ws)
	for _, s := range set.surfaces {
		if s.Provider == kind && !s.Review {
			set.activeID = s.ID
			notify := r.commitLocked(ws, set)
			r.mu.Unlock()
			notify()
			return nil
		}
	}
	s := Surface{ID: uuid.NewString(), Provider: kind, CreatedAt: time.Now().UTC()}
	set.surfaces = append(set.surfaces, s)
	set.activeID = s.ID
	notify := r.commitLocked(ws, set)
	r.mu.Unlock()
	notify()
	return nil
}

// OpenReviewSurface activates the review surface for kind, appending one
// first if none exists, and returns its id. Review surface ids are
// deterministic so repeated opens converge on the same tab.
func (r *Registry) OpenReviewSurface(ws, kind string) (string, error) {
	if !r.known[kind] {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}

	r.mu.Lock()
	set := r.loadLocked(ws)
	for _, s := range set.surfaces {
		if s.Provider == kind && s.Review {
			set.activeID = s.ID
			notify := r.commitLocked(ws, set)
			r.mu.Unlock()
			notify()
			return s.ID, nil
		}
	}
	s := Surface{
		ID:        kind + "-review",
		Provider:  kind,
		CreatedAt: time.Now().UTC(),
		Review:    true,
	}
	set.surfaces = append(set.surfaces, s)
	set.activeID = s.ID
	notify := r.commitLocked(ws, set)
	r.mu.Unlock()
	notify()
	return s.ID, nil
}

// CloseReviewSurface closes the workspace's review surface if present.
func (r *Registry) CloseReviewSurface(ws string) {
	r.mu.Lock()
	set := r.loadLocked(ws)
	idx := -1
	for i, s := range set.surfaces {
		if s.Review {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	notify := r.removeAtLocked(ws, set, idx)
	r.mu.Unlock()
	notify()
}

// SetActive makes the surface with id active. Unknown ids are ignored.
func (r *Registry) SetActive(ws, id string) {
	r.mu.Lock()
	set := r.loadLocked(ws)
	found := false
	for _, s := range set.surfaces {
		if s.ID == id {
			found = true
			break
		}
	}
	if !found || set.activeID == id {
		r.mu.Unlock()
		return
	}
	set.activeID = id
	notify := r.commitLocked(ws, set)
	r.mu.Unlock()
	notify()
}

// CloseSurface removes the surface with id. Closing the last remaining
// surface is refused. Closing the active surface moves activity to the
// surface that took its position, else the previous one, else the first.
func (r *Registry) CloseSurface(ws, id string) error {
	r.mu.Lock()
	set := r.loadLocked(ws)
	idx := -1
	for i, s := range set.surfaces {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}
	if len(set.surfaces) == 1 {
		r.mu.Unlock()
		return ErrLastSurface
	}
	notify := r.removeAtLocked(ws, set, idx)
	r.mu.Unlock()
	notify()
	return nil
}

// Snapshot returns a stable view of the workspace's surfaces.
func (r *Registry) Snapshot(ws string) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap, ok := r.snaps[ws]; ok && snap != nil {
		return snap
	}
	set := r.loadLocked(ws)
	snap := &Snapshot{
		Surfaces: append([]Surface(nil), set.surfaces...),
		ActiveID: set.activeID,
	}
	r.snaps[ws] = snap
	return snap
}

// CountWorkSurfaces returns the number of non-review surfaces.
func (r *Registry) CountWorkSurfaces(ws string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.loadLocked(ws)
	n := 0
	for _, s := range set.surfaces {
		if !s.Review {
			n++
		}
	}
	return n
}

// Subscribe registers a listener fired after every committed mutation for ws.
func (r *Registry) Subscribe(ws string, fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs[ws] == nil {
		r.subs[ws] = make(map[int]func())
	}
	id := r.nextSubID
	r.nextSubID++
	r.subs[ws][id] = fn

	return func() {
		r.mu.Lock()
		if m := r.subs[ws]; m != nil {
			delete(m, id)
		}
		r.mu.Unlock()
	}
}

// Remove drops all surface state for a deleted workspace.
func (r *Registry) Remove(ws string) {
	r.mu.Lock()
	delete(r.sets, ws)
	delete(r.snaps, ws)
	r.mu.Unlock()

	if r.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tab_sets WHERE workspace_id = ?;", ws); err != nil {
		r.logger.Warn("failed to delete persisted tab set", "workspace_id", ws, "error", err)
	}
}

// --- internals ---

// removeAtLocked removes the surface at idx and reassigns the active id
// when needed, then commits.
func (r *Registry) removeAtLocked(ws string, set *tabSet, idx int) func() {
	closedID := set.surfaces[idx].ID
	set.surfaces = append(set.surfaces[:idx], set.surfaces[idx+1:]...)

	if set.activeID == closedID && len(set.surfaces) > 0 {
		switch {
		case idx < len(set.surfaces):
			set.activeID = set.surfaces[idx].ID
		case idx-1 >= 0 && idx-1 < len(set.surfaces):
			set.activeID = set.surfaces[idx-1].ID
		default:
			set.activeID = set.surfaces[0].ID
		}
	}
	return r.commitLocked(ws, set)
}

// loadLocked returns the hydrated tab set for ws, reading the persisted row
// on first access. Malformed rows are discarded and a default collection is
// resynthesized.
func (r *Registry) loadLocked(ws string) *tabSet {
	if set, ok := r.sets[ws]; ok {
		return set
	}

	set := r.readPersistedLocked(ws)
	if set == nil {
		set = &tabSet{}
	}
	r.normalizeLocked(set)
	r.sets[ws] = set
	return set
}

func (r *Registry) readPersistedLocked(ws string) *tabSet {
	if r.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT doc FROM tab_sets WHERE workspace_id = ?;", ws).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.logger.Warn("tab set read failed, resynthesizing", "workspace_id", ws, "error", err)
		return nil
	}

	var doc persistedDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		r.logger.Warn("discarding malformed tab set", "workspace_id", ws, "error", err)
		return nil
	}
	return &tabSet{surfaces: doc.Tabs, activeID: doc.ActiveID}
}

// normalizeLocked enforces the collection invariants in place.
func (r *Registry) normalizeLocked(set *tabSet) {
	kept := set.surfaces[:0]
	seen := make(map[[2]string]bool)
	for _, s := range set.surfaces {
		if s.ID == "" || !r.known[s.Provider] {
			continue
		}
		key := [2]string{s.Provider, reviewKey(s.Review)}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, s)
	}
	set.surfaces = kept

	if len(set.surfaces) == 0 {
		set.surfaces = append(set.surfaces, Surface{
			ID:        uuid.NewString(),
			Provider:  r.fallback,
			CreatedAt: time.Now().UTC(),
		})
	}

	valid := false
	for _, s := range set.surfaces {
		if s.ID == set.activeID {
			valid = true
			break
		}
	}
	if !valid {
		set.activeID = set.surfaces[0].ID
	}
}

// commitLocked re-validates, persists, invalidates the snapshot, and returns
// a func that notifies subscribers once the lock is released.
func (r *Registry) commitLocked(ws string, set *tabSet) func() {
	r.normalizeLocked(set)
	r.persistLocked(ws, set)
	r.snaps[ws] = nil

	fns := make([]func(), 0, len(r.subs[ws]))
	for _, fn := range r.subs[ws] {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						r.logger.Error("tab listener panicked", "workspace_id", ws, "panic", rec)
					}
				}()
				fn()
			}()
		}
	}
}

func (r *Registry) persistLocked(ws string, set *tabSet) {
	if r.db == nil {
		return
	}

	doc := persistedDoc{Tabs: set.surfaces, ActiveID: set.activeID}
	data, err := json.Marshal(doc)
	if err != nil {
		r.logger.Warn("failed to encode tab set", "workspace_id", ws, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.db.ExecContext(ctx, `
INSERT INTO tab_sets(workspace_id, doc, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(workspace_id) DO UPDATE SET
  doc = excluded.doc,
  updated_at = excluded.updated_at;
`, ws, string(data), now)
	if err != nil {
		r.logger.Warn("failed to persist tab set, cache remains authoritative",
			"workspace_id", ws, "error", err)
	}
}

func reviewKey(review bool) string {
	if review {
		return "review"
	}
	return "work"
}
