// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRunNotFound indicates a workflow run was not found by the given identifier.
	ErrRunNotFound = errors.New("workflow run not found")

	// ErrTaskNotFound indicates a workflow task was not found by the given identifier.
	ErrTaskNotFound = errors.New("workflow task not found")

	// ErrRunAlreadyExists indicates a run with the same identifier already exists.
	ErrRunAlreadyExists = errors.New("workflow run already exists")

	// ErrInvalidRunStatus indicates an invalid run status was provided.
	ErrInvalidRunStatus = errors.New("invalid workflow run status")
)

// RunError wraps run-related errors with additional context.
type RunError struct {
	Op      string // Operation being performed (e.g., "GetByID", "Update")
	RunID   string
	TaskID  string
	Err     error
	Message string
}

func (e *RunError) Error() string {
	target := e.RunID
	if e.TaskID != "" {
		target = fmt.Sprintf("task %s", e.TaskID)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for %s: %s (%v)", e.Op, target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, target, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRunNotFound checks if an error indicates a missing workflow run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsTaskNotFound checks if an error indicates a missing workflow task.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}
