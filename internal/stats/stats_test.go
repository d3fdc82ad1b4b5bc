package stats_test

import (
	"testing"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/stats"

	"github.com/stretchr/testify/assert"
)

func TestCompute_EmptySet(t *testing.T) {
	s := stats.Compute(nil, time.Now())
	assert.Equal(t, stats.Stats{}, s)
}

func TestCompute_MixedSet(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	tasks := []task.Task{
		{Title: "incomplete overdue", Completed: false, DueDate: &yesterday},
		{Title: "completed with past due", Completed: true, DueDate: &yesterday},
		{Title: "incomplete no due date", Completed: false},
	}

	s := stats.Compute(tasks, now)

	assert.Equal(t, stats.Stats{Total: 3, Completed: 1, Pending: 2, Overdue: 1}, s)
}

func TestCompute_CompletedNeverOverdue(t *testing.T) {
	now := time.Now()
	past := now.AddDate(0, 0, -10)

	tasks := []task.Task{
		{Completed: true, DueDate: &past},
		{Completed: true, DueDate: &past},
	}

	s := stats.Compute(tasks, now)

	assert.Equal(t, 0, s.Overdue)
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, 2, s.Completed)
}

func TestCompute_FutureDueNotOverdue(t *testing.T) {
	now := time.Now()
	future := now.AddDate(0, 0, 3)

	s := stats.Compute([]task.Task{{DueDate: &future}}, now)

	assert.Equal(t, stats.Stats{Total: 1, Completed: 0, Pending: 1, Overdue: 0}, s)
}
