package store

import (
	"errors"
	"fmt"

	"taskboard/internal/validate"
)

// ErrClosed is returned when an operation completes after the store has been
// torn down. The result is discarded so a superseded session can never leak
// data into a newer one.
var ErrClosed = errors.New("store is closed")

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeFetch      Code = "FETCH_FAILED"
	CodeWrite      Code = "WRITE_FAILED"
	CodeAuth       Code = "AUTH_REQUIRED"
)

// Error is the boundary type every remote or validation failure is converted
// to. Fields is populated only for CodeValidation.
type Error struct {
	Code    Code
	Message string
	Fields  validate.FieldErrors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(fields validate.FieldErrors) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "invalid task form",
		Fields:  fields,
	}
}

func newFetchError(err error) *Error {
	return &Error{
		Code:    CodeFetch,
		Message: "failed to fetch tasks",
		Err:     err,
	}
}

func newWriteError(message string, err error) *Error {
	return &Error{
		Code:    CodeWrite,
		Message: message,
		Err:     err,
	}
}
