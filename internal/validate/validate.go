// Package validate turns a draft task form into either a normalized payload
// or a per-field error map. It has no side effects and reports every violated
// field, not just the first.
package validate

import (
	"strings"
	"time"

	"taskboard/internal/models/task"
)

const MaxTitleLen = 100
const MaxDescriptionLen = 500

// DateLayout is the wire format of the due date field, a calendar date with
// no time component.
const DateLayout = "2006-01-02"

// Draft mirrors the editable task fields as they arrive from a form. DueDate
// is the raw text value; empty means no due date.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

// Payload is a validated, normalized draft: trimmed title, empty optionals
// coerced (nil due date, default priority).
type Payload struct {
	Title       string
	Description string
	Priority    task.Priority
	DueDate     *time.Time
}

type FieldErrors map[string]string

// Validate checks d against now and returns the normalized payload. A
// non-empty error map means the payload must not be persisted. The due date
// check compares against midnight of the current calendar date only; an
// already-overdue task may be edited without moving its date.
func Validate(d Draft, now time.Time) (Payload, FieldErrors) {
	errs := FieldErrors{}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len([]rune(title)) > MaxTitleLen {
		errs["title"] = "title must be 100 characters or less"
	}

	if len([]rune(d.Description)) > MaxDescriptionLen {
		errs["description"] = "description must be 500 characters or less"
	}

	priority := task.Priority(d.Priority)
	if priority == "" {
		priority = task.PriorityMedium
	} else if !priority.Valid() {
		errs["priority"] = "priority must be low, medium or high"
	}

	var dueDate *time.Time
	if d.DueDate != "" {
		parsed, err := time.ParseInLocation(DateLayout, d.DueDate, now.Location())
		if err != nil {
			errs["due_date"] = "due date must be a valid date (YYYY-MM-DD)"
		} else {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			if parsed.Before(today) {
				errs["due_date"] = "due date cannot be in the past"
			} else {
				dueDate = &parsed
			}
		}
	}

	if len(errs) > 0 {
		return Payload{}, errs
	}

	return Payload{
		Title:       title,
		Description: d.Description,
		Priority:    priority,
		DueDate:     dueDate,
	}, nil
}
