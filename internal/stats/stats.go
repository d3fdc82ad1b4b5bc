// Package stats aggregates counters over a working set of tasks. Counts are
// recomputed wholesale on every change rather than incrementally maintained,
// so they cannot drift from the set they describe.
package stats

import (
	"time"

	"taskboard/internal/models/task"
)

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// Compute counts tasks in a set that is already owner-scoped and free of
// soft-deleted records.
func Compute(tasks []task.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].Completed {
			s.Completed++
		}
		if tasks[i].Overdue(now) {
			s.Overdue++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
