package status

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/slipway/internal/log"
)

// Change describes one committed status mutation, delivered to subscribers.
type Change struct {
	WorkspaceID string
	Status      Status
}

// Store is the durable workspace-status map plus the pending-review flag map.
// An in-process cache is hydrated lazily from SQLite and remains
// authoritative for the session: storage failures degrade to memory-only
// operation, they never propagate to callers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu              sync.Mutex
	statuses        map[string]Status
	pending         map[string]bool
	hydratedStatus  bool
	hydratedPending bool

	subs      map[int]func(Change)
	nextSubID int
}

// NewStore creates a Store backed by db. db may be nil, in which case the
// store is memory-only (used in tests and degraded mode).
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		logger:   log.WithComponent("status"),
		statuses: make(map[string]Status),
		pending:  make(map[string]bool),
		subs:     make(map[int]func(Change)),
	}
}

// GetStatus returns the lifecycle status for id, defaulting to NotStarted
// for workspaces that have never been written.
func (s *Store) GetStatus(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateStatusLocked()

	if st, ok := s.statuses[id]; ok {
		return st
	}
	return NotStarted
}

// SetStatus records a new status for id. Writing the status a workspace
// already has is a no-op: no persisted write, no subscriber notification.
func (s *Store) SetStatus(id string, st Status) {
	if !st.Valid() {
		st = NotStarted
	}

	s.mu.Lock()
	s.hydrateStatusLocked()

	cur, ok := s.statuses[id]
	if ok && cur == st {
		s.mu.Unlock()
		return
	}
	if !ok && st == NotStarted {
		// Lazily created keys default to not-started already.
		s.mu.Unlock()
		return
	}
	s.statuses[id] = st
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()

	s.persistStatus(id, st)
	emit(subs, Change{WorkspaceID: id, Status: st})
}

// AllStatuses returns a copy of the full status map.
func (s *Store) AllStatuses() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateStatusLocked()

	out := make(map[string]Status, len(s.statuses))
	for id, st := range s.statuses {
		out[id] = st
	}
	return out
}

// SetPendingReview sets or clears the pending-review flag for id.
func (s *Store) SetPendingReview(id string, pending bool) {
	s.mu.Lock()
	s.hydratePendingLocked()

	cur := s.pending[id]
	if cur == pending {
		s.mu.Unlock()
		return
	}
	if pending {
		s.pending[id] = true
	} else {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.persistPending(id, pending)
}

// IsPendingReview reports whether an automatic review has been requested for
// id but not yet consumed. Absence means false.
func (s *Store) IsPendingReview(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydratePendingLocked()
	return s.pending[id]
}

// ClearPendingReview clears the pending-review flag for id.
func (s *Store) ClearPendingReview(id string) {
	s.SetPendingReview(id, false)
}

// Remove drops all state for a deleted workspace.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.hydrateStatusLocked()
	s.hydratePendingLocked()
	delete(s.statuses, id)
	delete(s.pending, id)
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	ctx, cancel := dbContext()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM workspace_status WHERE workspace_id = ?;", id); err != nil {
		s.logger.Warn("failed to delete persisted status", "workspace_id", id, "error", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pending_review WHERE workspace_id = ?;", id); err != nil {
		s.logger.Warn("failed to delete persisted pending flag", "workspace_id", id, "error", err)
	}
}

// Subscribe registers a listener called on every committed status change.
// The returned func unregisters it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// --- persistence, best effort ---

func (s *Store) hydrateStatusLocked() {
	if s.hydratedStatus {
		return
	}
	s.hydratedStatus = true
	if s.db == nil {
		return
	}

	ctx, cancel := dbContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, "SELECT workspace_id, status FROM workspace_status;")
	if err != nil {
		s.logger.Warn("status hydrate failed, starting empty", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			s.logger.Warn("skipping unreadable status row", "error", err)
			continue
		}
		s.statuses[id] = Parse(raw)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("status hydrate incomplete", "error", err)
	}
}

func (s *Store) hydratePendingLocked() {
	if s.hydratedPending {
		return
	}
	s.hydratedPending = true
	if s.db == nil {
		return
	}

	ctx, cancel := dbContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, "SELECT workspace_id FROM pending_review;")
	if err != nil {
		s.logger.Warn("pending-review hydrate failed, starting empty", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		s.pending[id] = true
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("pending-review hydrate incomplete", "error", err)
	}
}

func (s *Store) persistStatus(id string, st Status) {
	if s.db == nil {
		return
	}
	ctx, cancel := dbContext()
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO workspace_status(workspace_id, status, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(workspace_id) DO UPDATE SET
  status = excluded.status,
  updated_at = excluded.updated_at;
`, id, string(st), now)
	if err != nil {
		s.logger.Warn("failed to persist status, cache remains authoritative",
			"workspace_id", id, "status", st, "error", err)
	}
}

func (s *Store) persistPending(id string, pending bool) {
	if s.db == nil {
		return
	}
	ctx, cancel := dbContext()
	defer cancel()

	var err error
	if pending {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err = s.db.ExecContext(ctx, `
INSERT INTO pending_review(workspace_id, updated_at)
VALUES(?, ?)
ON CONFLICT(workspace_id) DO UPDATE SET updated_at = excluded.updated_at;
`, id, now)
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM pending_review WHERE workspace_id = ?;", id)
	}
	if err != nil {
		s.logger.Warn("failed to persist pending flag, cache remains authoritative",
			"workspace_id", id, "pending", pending, "error", err)
	}
}

func (s *Store) snapshotSubsLocked() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// emit calls each listener, isolating panics so one broken subscriber cannot
// break the others.
func emit(subs []func(Change), c Change) {
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithComponent("status").Error("status listener panicked", "panic", r)
				}
			}()
			fn(c)
		}()
	}
}

func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
