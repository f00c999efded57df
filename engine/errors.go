package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrExecution indicates the engine ran but failed, or could not be
	// spawned for a specific call.
	ErrExecution = errors.New("engine execution error")

	// ErrEngineUnavailable indicates the engine is not installed or not on
	// the execution path.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrConfiguration indicates an invalid configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptySource is returned when there is no program text to run.
	ErrEmptySource = errors.New("source is empty")
)

// ExecutionError describes a failed engine run.
type ExecutionError struct {
	// Message is the engine's error text: stderr when present, otherwise
	// stdout, otherwise the process error.
	Message string

	// ExitCode is the engine's exit status, or -1 when the process did not
	// exit normally (spawn failure, kill, timeout).
	ExitCode int

	// Stderr is the raw diagnostic output.
	Stderr string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message, including the exit code when known.
func (e *ExecutionError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("engine exited with status %d: %s", e.ExitCode, e.Message)
	}
	return "engine failed: " + e.Message
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// ExecutionError matches ErrExecution to allow sentinel-style checks.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
