// Package view derives the visible subset of a working set from the active
// filter mode and search term. Derivation is pure and order-preserving; it is
// re-run whenever the set, the mode or the term changes.
package view

import (
	"strings"
	"time"

	"taskboard/internal/models/task"
)

type Mode string

const (
	ModeAll       Mode = "all"
	ModeUpcoming  Mode = "upcoming"
	ModeCompleted Mode = "completed"
	ModeOverdue   Mode = "overdue"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAll, ModeUpcoming, ModeCompleted, ModeOverdue:
		return true
	}
	return false
}

// Derive filters tasks by mode, then by the case-insensitive search term
// against title and description. The result is a fresh slice preserving the
// input order; unknown modes behave like ModeAll.
func Derive(tasks []task.Task, mode Mode, term string, now time.Time) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	term = strings.ToLower(term)

	for _, t := range tasks {
		switch mode {
		case ModeUpcoming:
			// Historical name: any incomplete task qualifies, a future
			// due date is not required.
			if t.Completed {
				continue
			}
		case ModeCompleted:
			if !t.Completed {
				continue
			}
		case ModeOverdue:
			if !t.Overdue(now) {
				continue
			}
		}

		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			continue
		}

		out = append(out, t)
	}

	return out
}
