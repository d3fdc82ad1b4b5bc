package store_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"
	"taskboard/internal/repository/task/inmemory"
	"taskboard/internal/store"
	"taskboard/internal/validate"
	"taskboard/internal/view"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	os.Exit(m.Run())
}

// MockTaskRepository lets failure paths be scripted.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Query(ctx context.Context, ownerID uuid.UUID) ([]task.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.Task), args.Error(1)
}

func (m *MockTaskRepository) Insert(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, id uuid.UUID, fields task.Fields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockTaskRepository) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	args := m.Called(ctx, id, completed)
	return args.Error(0)
}

func (m *MockTaskRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockTaskRepository) QueryDueBefore(ctx context.Context, deadline time.Time, limit int) ([]task.Task, error) {
	args := m.Called(ctx, deadline, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.Task), args.Error(1)
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ repository.TaskRepository = (*MockTaskRepository)(nil)

func newReadyStore(t *testing.T) (*store.Store, *inmemory.TaskStorage, uuid.UUID) {
	t.Helper()

	repo := inmemory.NewTaskStorage()
	owner := uuid.New()
	s := store.New(repo, owner)

	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, store.StateReady, s.State())

	return s, repo, owner
}

func storeError(t *testing.T, err error) *store.Error {
	t.Helper()
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	return storeErr
}

func TestStore_LoadOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewTaskStorage()
	owner := uuid.New()

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Insert(ctx, &task.Task{OwnerID: owner, Title: title}))
	}

	s := store.New(repo, owner)
	require.NoError(t, s.Load(ctx))

	tasks := s.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Title)
	assert.Equal(t, "first", tasks[2].Title)
}

func TestStore_LoadFailureKeepsPreviousWorkingSet(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	loaded := []task.Task{{ID: uuid.New(), OwnerID: owner, Title: "kept"}}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Query", mock.Anything, owner).Return(loaded, nil).Once()
	mockRepo.On("Query", mock.Anything, owner).Return(nil, errors.New("connection refused")).Once()
	mockRepo.On("Query", mock.Anything, owner).Return(loaded, nil).Once()

	s := store.New(mockRepo, owner)
	require.NoError(t, s.Load(ctx))

	err := s.Load(ctx)
	storeErr := storeError(t, err)
	assert.Equal(t, store.CodeFetch, storeErr.Code)
	assert.Equal(t, store.StateFailed, s.State())
	assert.NotEmpty(t, s.LastError())

	// No partial merge: the previous set survives the failed load.
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "kept", tasks[0].Title)

	// Error message is retained until the next successful load.
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.LastError())
	assert.Equal(t, store.StateReady, s.State())
	mockRepo.AssertExpectations(t)
}

func TestStore_SaveCreate(t *testing.T) {
	ctx := context.Background()
	s, _, owner := newReadyStore(t)

	err := s.Save(ctx, validate.Draft{Title: "  Buy milk  ", Priority: "high"}, nil)
	require.NoError(t, err)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, task.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, owner, tasks[0].OwnerID)
	assert.False(t, tasks[0].Completed)
	assert.Equal(t, store.StateReady, s.State())
	assert.Equal(t, 1, s.Stats().Total)
}

func TestStore_SaveValidationErrorNeverReachesRepository(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Query", mock.Anything, owner).Return([]task.Task{}, nil).Once()

	s := store.New(mockRepo, owner)
	require.NoError(t, s.Load(ctx))

	err := s.Save(ctx, validate.Draft{Title: "   "}, nil)

	storeErr := storeError(t, err)
	assert.Equal(t, store.CodeValidation, storeErr.Code)
	assert.Contains(t, storeErr.Fields, "title")
	assert.Equal(t, store.StateReady, s.State())
	// No Insert, no reload Query beyond the initial one.
	mockRepo.AssertExpectations(t)
}

func TestStore_SaveEditPreservesCompletion(t *testing.T) {
	ctx := context.Background()
	s, repo, owner := newReadyStore(t)

	done := &task.Task{OwnerID: owner, Title: "done already", Completed: true}
	require.NoError(t, repo.Insert(ctx, done))
	require.NoError(t, s.Load(ctx))

	err := s.Save(ctx, validate.Draft{Title: "renamed"}, &done.ID)
	require.NoError(t, err)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "renamed", tasks[0].Title)
	assert.True(t, tasks[0].Completed, "a save must never toggle completion")
}

func TestStore_SaveEditUnknownTask(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newReadyStore(t)

	unknown := uuid.New()
	err := s.Save(ctx, validate.Draft{Title: "ghost"}, &unknown)

	storeErr := storeError(t, err)
	assert.Equal(t, store.CodeWrite, storeErr.Code)
}

func TestStore_ToggleWritesNegationOfCallerValue(t *testing.T) {
	ctx := context.Background()
	s, repo, owner := newReadyStore(t)

	pending := &task.Task{OwnerID: owner, Title: "toggle me"}
	require.NoError(t, repo.Insert(ctx, pending))
	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.Toggle(ctx, pending.ID, false))
	assert.True(t, s.Tasks()[0].Completed)

	require.NoError(t, s.Toggle(ctx, pending.ID, true))
	assert.False(t, s.Tasks()[0].Completed)
}

func TestStore_RemoveShrinksWorkingSet(t *testing.T) {
	ctx := context.Background()
	s, repo, owner := newReadyStore(t)

	keep := &task.Task{OwnerID: owner, Title: "keep"}
	drop := &task.Task{OwnerID: owner, Title: "drop"}
	require.NoError(t, repo.Insert(ctx, keep))
	require.NoError(t, repo.Insert(ctx, drop))
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.Tasks(), 2)

	require.NoError(t, s.Remove(ctx, drop.ID))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)

	// Soft-deleted rows never reappear in any later load.
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.Tasks(), 1)
}

func TestStore_RepositorySoftDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewTaskStorage()
	owner := uuid.New()

	t1 := &task.Task{OwnerID: owner, Title: "once"}
	require.NoError(t, repo.Insert(ctx, t1))

	require.NoError(t, repo.SoftDelete(ctx, t1.ID, time.Now()))
	require.NoError(t, repo.SoftDelete(ctx, t1.ID, time.Now()))

	tasks, err := repo.Query(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStore_WriteFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	existing := []task.Task{{ID: uuid.New(), OwnerID: owner, Title: "existing"}}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Query", mock.Anything, owner).Return(existing, nil).Once()
	mockRepo.On("SetCompleted", mock.Anything, existing[0].ID, true).Return(errors.New("write refused")).Once()

	s := store.New(mockRepo, owner)
	require.NoError(t, s.Load(ctx))

	err := s.Toggle(ctx, existing[0].ID, false)

	storeErr := storeError(t, err)
	assert.Equal(t, store.CodeWrite, storeErr.Code)
	assert.Equal(t, store.StateReady, s.State())
	require.Len(t, s.Tasks(), 1)
	assert.False(t, s.Tasks()[0].Completed)
	mockRepo.AssertExpectations(t)
}

func TestStore_TimeoutConvertsHangToFetchError(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Query", mock.Anything, owner).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	s := store.New(mockRepo, owner, store.WithTimeout(20*time.Millisecond))

	err := s.Load(ctx)

	storeErr := storeError(t, err)
	assert.Equal(t, store.CodeFetch, storeErr.Code)
	assert.Equal(t, store.StateFailed, s.State())
	mockRepo.AssertExpectations(t)
}

func TestStore_ClosedStoreDiscardsLateResults(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	started := make(chan struct{})
	release := make(chan struct{})

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Query", mock.Anything, owner).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]task.Task{{ID: uuid.New(), OwnerID: owner, Title: "stale"}}, nil).Once()

	s := store.New(mockRepo, owner)

	done := make(chan error, 1)
	go func() { done <- s.Load(ctx) }()

	<-started
	s.Close()
	close(release)

	err := <-done
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.Empty(t, s.Tasks(), "a superseded session's result must not be committed")
}

func TestStore_FilterAndSearchRecomputeView(t *testing.T) {
	ctx := context.Background()
	s, repo, owner := newReadyStore(t)

	require.NoError(t, repo.Insert(ctx, &task.Task{OwnerID: owner, Title: "Buy milk"}))
	require.NoError(t, repo.Insert(ctx, &task.Task{OwnerID: owner, Title: "Pay bills", Completed: true}))
	require.NoError(t, s.Load(ctx))

	s.SetFilter(view.ModeCompleted)
	visible := s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Pay bills", visible[0].Title)

	s.SetFilter(view.ModeAll)
	s.SetSearch("mil")
	visible = s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Buy milk", visible[0].Title)

	s.SetSearch("")
	assert.Len(t, s.Visible(), 2)
}

func TestStore_StatsRecomputedAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newReadyStore(t)

	require.NoError(t, s.Save(ctx, validate.Draft{Title: "one"}, nil))
	require.NoError(t, s.Save(ctx, validate.Draft{Title: "two"}, nil))
	assert.Equal(t, 2, s.Stats().Total)
	assert.Equal(t, 2, s.Stats().Pending)

	id := s.Tasks()[0].ID
	require.NoError(t, s.Toggle(ctx, id, false))
	assert.Equal(t, 1, s.Stats().Completed)

	require.NoError(t, s.Remove(ctx, id))
	assert.Equal(t, 1, s.Stats().Total)
	assert.Equal(t, 0, s.Stats().Completed)
}
