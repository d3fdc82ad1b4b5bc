// Package store owns the authoritative in-memory working set of one owner's
// tasks and reconciles every local mutation against the remote repository.
// The remote side is the single source of truth: no mutation is considered
// complete until a full reload has succeeded, so local and remote state can
// never diverge.
package store

import (
	"context"
	"sync"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"
	"taskboard/internal/stats"
	"taskboard/internal/validate"
	"taskboard/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

const defaultOpTimeout = 10 * time.Second

// Store is the sole writer of the working set. Filter mode, search term and
// the derived view/stats live here too: one controller object per session,
// never ambient state. Methods are safe for concurrent use, though the
// expected access pattern is a single logical owner.
type Store struct {
	repo      repository.TaskRepository
	ownerID   uuid.UUID
	opTimeout time.Duration
	clock     func() time.Time

	mtx       sync.Mutex
	state     State
	lastError string
	tasks     []task.Task
	filter    view.Mode
	search    string
	visible   []task.Task
	stats     stats.Stats
	closed    bool
}

func New(repo repository.TaskRepository, ownerID uuid.UUID, options ...Option) *Store {
	s := &Store{
		repo:      repo,
		ownerID:   ownerID,
		opTimeout: defaultOpTimeout,
		clock:     time.Now,
		state:     StateUninitialized,
		filter:    view.ModeAll,
	}

	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Store) OwnerID() uuid.UUID {
	return s.ownerID
}

// Load replaces the entire working set with the owner's non-deleted tasks.
// On failure the previous working set stays untouched and the error message
// is retained until the next successful load.
func (s *Store) Load(ctx context.Context) error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrClosed
	}
	s.state = StateLoading
	s.mtx.Unlock()

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	tasks, err := s.repo.Query(opCtx, s.ownerID)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	// A completion that arrives after teardown belongs to a superseded
	// session and must not be committed.
	if s.closed {
		return ErrClosed
	}

	if err != nil {
		fetchErr := newFetchError(err)
		s.state = StateFailed
		s.lastError = fetchErr.Message
		logger.Error("task load failed", err, zap.String("owner_id", s.ownerID.String()))
		return fetchErr
	}

	s.tasks = tasks
	s.state = StateReady
	s.lastError = ""
	s.recompute()
	return nil
}

// Save validates the draft and either inserts a new task or issues a full
// update for editingID, preserving that task's completion state. A save
// never toggles completion. After a successful write the store reloads; the
// operation is not complete until the reload succeeds.
func (s *Store) Save(ctx context.Context, draft validate.Draft, editingID *uuid.UUID) error {
	payload, fieldErrs := validate.Validate(draft, s.clock())
	if len(fieldErrs) > 0 {
		return NewValidationError(fieldErrs)
	}

	fields := task.Fields{
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		DueDate:     payload.DueDate,
	}

	if editingID != nil {
		existing, ok := s.find(*editingID)
		if !ok {
			return newWriteError("task not found", repository.ErrNotFound)
		}
		fields.Completed = existing.Completed

		return s.mutateThenReload(ctx, "failed to save task", func(opCtx context.Context) error {
			return s.repo.Update(opCtx, *editingID, fields)
		})
	}

	newTask := &task.Task{
		OwnerID:     s.ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		DueDate:     fields.DueDate,
		Completed:   false,
	}

	return s.mutateThenReload(ctx, "failed to save task", func(opCtx context.Context) error {
		return s.repo.Insert(opCtx, newTask)
	})
}

// Toggle writes the logical negation of the caller-supplied current value.
// Two rapid toggles racing on the same stale value can lose an update; that
// hazard is inherited from the contract, not handled here.
func (s *Store) Toggle(ctx context.Context, id uuid.UUID, completed bool) error {
	return s.mutateThenReload(ctx, "failed to toggle task", func(opCtx context.Context) error {
		return s.repo.SetCompleted(opCtx, id, !completed)
	})
}

// Remove soft-deletes the task. Callers must have obtained explicit user
// confirmation first; the store only issues the write. Deleting an
// already-deleted task is a no-op at the storage layer.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	return s.mutateThenReload(ctx, "failed to delete task", func(opCtx context.Context) error {
		return s.repo.SoftDelete(opCtx, id, s.clock())
	})
}

// mutateThenReload is the single success/failure path every mutating
// operation shares: bounded write, then a full reconciling reload. There is
// no Ready-to-Ready shortcut that skips the reload.
func (s *Store) mutateThenReload(ctx context.Context, failMessage string, op func(context.Context) error) error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrClosed
	}
	prev := s.state
	s.state = StateLoading
	s.mtx.Unlock()

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err := op(opCtx)
	cancel()

	if err != nil {
		s.mtx.Lock()
		if s.closed {
			s.mtx.Unlock()
			return ErrClosed
		}
		// Write failed: the working set was never touched, so the store
		// returns to its previous state and the error goes back to the
		// triggering caller.
		s.state = prev
		s.mtx.Unlock()

		writeErr := newWriteError(failMessage, err)
		logger.Error("task write failed", err, zap.String("owner_id", s.ownerID.String()))
		return writeErr
	}

	return s.Load(ctx)
}

// SetFilter switches the active filter mode and recomputes the visible view
// synchronously. Unknown modes fall back to "all".
func (s *Store) SetFilter(mode view.Mode) {
	if !mode.Valid() {
		mode = view.ModeAll
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.filter = mode
	s.recompute()
}

// SetSearch updates the free-text search term and recomputes the view.
func (s *Store) SetSearch(term string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.search = term
	s.recompute()
}

// Close tears the store down. Any in-flight operation that completes
// afterwards is discarded.
func (s *Store) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.closed = true
	s.tasks = nil
	s.visible = nil
	s.stats = stats.Stats{}
	s.state = StateUninitialized
}

func (s *Store) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// LastError returns the retained load failure message, empty after any
// successful load.
func (s *Store) LastError() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.lastError
}

// Tasks returns a copy of the working set, newest first.
func (s *Store) Tasks() []task.Task {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]task.Task(nil), s.tasks...)
}

// Visible returns a copy of the derived view for the current filter and
// search term.
func (s *Store) Visible() []task.Task {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]task.Task(nil), s.visible...)
}

func (s *Store) Stats() stats.Stats {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.stats
}

func (s *Store) Filter() view.Mode {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.filter
}

func (s *Store) Search() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.search
}

// recompute rebuilds the derived view and stats wholesale from the working
// set. Caller must hold the lock.
func (s *Store) recompute() {
	now := s.clock()
	s.visible = view.Derive(s.tasks, s.filter, s.search, now)
	s.stats = stats.Compute(s.tasks, now)
}

// find copies the working-set entry for id, if present.
func (s *Store) find(id uuid.UUID) (task.Task, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return s.tasks[i], true
		}
	}
	return task.Task{}, false
}
