package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage keeps task rows in a map. It implements the same contract as
// the postgres repository, including soft-delete exclusion and newest-first
// query order, so the store and the tests can run without a database.
type TaskStorage struct {
	mtx     sync.RWMutex
	storage map[uuid.UUID]*task.Task
	seq     int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Insert(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t.ID = uuid.New()
	// Monotonic nanosecond offsets keep created_at unique so ordering stays
	// stable even when inserts land within one clock tick.
	s.seq++
	t.CreatedAt = time.Now().Add(time.Duration(s.seq))

	stored := *t
	s.storage[t.ID] = &stored
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok || existing.DeletedAt != nil {
		return repository.ErrNotFound
	}

	existing.Title = fields.Title
	existing.Description = fields.Description
	existing.Priority = fields.Priority
	existing.DueDate = fields.DueDate
	existing.Completed = fields.Completed
	return nil
}

func (s *TaskStorage) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok || existing.DeletedAt != nil {
		return repository.ErrNotFound
	}

	existing.Completed = completed
	return nil
}

func (s *TaskStorage) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return repository.ErrNotFound
	}

	// Already deleted: keep the original timestamp, report success.
	if existing.DeletedAt != nil {
		return nil
	}

	existing.DeletedAt = &at
	return nil
}

func (s *TaskStorage) Query(ctx context.Context, ownerID uuid.UUID) ([]task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []task.Task{}
	for _, t := range s.storage {
		if t.OwnerID != ownerID || t.DeletedAt != nil {
			continue
		}
		res = append(res, *t)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

func (s *TaskStorage) QueryDueBefore(ctx context.Context, deadline time.Time, limit int) ([]task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []task.Task{}
	for _, t := range s.storage {
		if len(res) >= limit {
			break
		}
		if t.DeletedAt != nil || !t.Overdue(deadline) {
			continue
		}
		res = append(res, *t)
	}

	return res, nil
}
