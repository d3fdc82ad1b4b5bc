package inmemory_test

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/repository"
	"taskboard/internal/repository/task/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStorage_InsertAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	toCreate := &task.Task{OwnerID: uuid.New(), Title: "Test Task"}
	require.NoError(t, storage.Insert(ctx, toCreate))

	assert.NotEqual(t, uuid.Nil, toCreate.ID)
	assert.False(t, toCreate.CreatedAt.IsZero())
}

func TestTaskStorage_QueryScopedToOwner(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	ownerA := uuid.New()
	ownerB := uuid.New()

	require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: ownerA, Title: "a's task"}))
	require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: ownerB, Title: "b's task"}))

	tasks, err := storage.Query(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a's task", tasks[0].Title)
}

func TestTaskStorage_QueryNewestFirst(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	for _, title := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: owner, Title: title}))
	}

	tasks, err := storage.Query(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "newest", tasks[0].Title)
	assert.Equal(t, "oldest", tasks[2].Title)
}

func TestTaskStorage_QueryExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	kept := &task.Task{OwnerID: owner, Title: "kept"}
	gone := &task.Task{OwnerID: owner, Title: "gone"}
	require.NoError(t, storage.Insert(ctx, kept))
	require.NoError(t, storage.Insert(ctx, gone))

	require.NoError(t, storage.SoftDelete(ctx, gone.ID, time.Now()))

	tasks, err := storage.Query(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, kept.ID, tasks[0].ID)
}

func TestTaskStorage_SoftDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()

	toDelete := &task.Task{OwnerID: owner, Title: "doomed"}
	require.NoError(t, storage.Insert(ctx, toDelete))

	first := time.Now()
	require.NoError(t, storage.SoftDelete(ctx, toDelete.ID, first))
	require.NoError(t, storage.SoftDelete(ctx, toDelete.ID, first.Add(time.Hour)))

	tasks, err := storage.Query(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskStorage_UpdateRejectsDeleted(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	toDelete := &task.Task{OwnerID: uuid.New(), Title: "deleted"}
	require.NoError(t, storage.Insert(ctx, toDelete))
	require.NoError(t, storage.SoftDelete(ctx, toDelete.ID, time.Now()))

	err := storage.Update(ctx, toDelete.ID, task.Fields{Title: "revived"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = storage.SetCompleted(ctx, toDelete.ID, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskStorage_UpdateUnknownTask(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	err := storage.Update(ctx, uuid.New(), task.Fields{Title: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskStorage_QueryDueBefore(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	owner := uuid.New()
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: owner, Title: "overdue", DueDate: &past}))
	require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: owner, Title: "done", DueDate: &past, Completed: true}))
	require.NoError(t, storage.Insert(ctx, &task.Task{OwnerID: owner, Title: "future", DueDate: &future}))

	tasks, err := storage.QueryDueBefore(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "overdue", tasks[0].Title)
}
