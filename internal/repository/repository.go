// Package repository defines the contract the task store holds against the
// remote persistent collaborator.
package repository

import (
	"context"
	"errors"
	"time"

	"taskboard/internal/models/task"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

// TaskRepository is a single logical table of task rows keyed by id. Query
// results are scoped to one owner, exclude soft-deleted rows and come back
// newest first. Soft delete is an update of deleted_at and is idempotent: a
// second delete of the same row is a no-op.
type TaskRepository interface {
	Query(ctx context.Context, ownerID uuid.UUID) ([]task.Task, error)
	Insert(ctx context.Context, t *task.Task) error
	Update(ctx context.Context, id uuid.UUID, fields task.Fields) error
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	QueryDueBefore(ctx context.Context, deadline time.Time, limit int) ([]task.Task, error)
	HealthCheck(ctx context.Context) error
}
