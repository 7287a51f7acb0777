package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rematch/internal/strategy"
)

// ConfigError reports task parameters that cannot be run. It is detected
// before any step executes.
type ConfigError = strategy.ConfigError

// RuntimeError represents an error detected while running a task.
//
// Runtime errors include:
//   - Task not found or not pending: nothing was changed
//   - Execution failure: store or matcher error, cancellation
//   - Invariant violation: progress does not equal progress_max after the
//     last step
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TaskID identifies the affected task.
	TaskID int64

	// Step is the 1-based step that failed, 0 when not tied to a step.
	Step int

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTaskNotFound indicates the task id does not exist.
	ErrCodeTaskNotFound RuntimeErrorCode = "TASK_NOT_FOUND"

	// ErrCodeTaskNotPending indicates the task was already claimed or finished.
	ErrCodeTaskNotPending RuntimeErrorCode = "TASK_NOT_PENDING"

	// ErrCodeExecution indicates a step or store operation failed.
	ErrCodeExecution RuntimeErrorCode = "EXECUTION_FAILED"

	// ErrCodeInvariant indicates the task finished without executing all steps.
	ErrCodeInvariant RuntimeErrorCode = "INVARIANT_VIOLATED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (task=%d", e.Code, e.Message, e.TaskID)
	if e.Step > 0 {
		msg += fmt.Sprintf(", step=%d", e.Step)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	return strategy.IsConfigError(err)
}

// IsInvariantError returns true if the task finished without executing all
// of its steps.
func IsInvariantError(err error) bool {
	return hasCode(err, ErrCodeInvariant)
}

// IsExecutionError returns true if a step or store operation failed.
func IsExecutionError(err error) bool {
	return hasCode(err, ErrCodeExecution)
}

// IsNotPendingError returns true if the task could not be claimed because
// it was not pending.
func IsNotPendingError(err error) bool {
	return hasCode(err, ErrCodeTaskNotPending)
}

// IsNotFoundError returns true if the task does not exist.
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrCodeTaskNotFound)
}
