package invoke

import (
	"fmt"
	"strings"
	"time"
)

// TimeoutError reports an attempt that exceeded its time budget. The
// underlying process has already been terminated when this is returned.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// ExitStatusError reports an attempt that completed with a non-zero exit
// status.
type ExitStatusError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		// Keep only the last stderr line; tools tend to put the actual
		// failure there after pages of progress output.
		lines := strings.Split(detail, "\n")
		msg += ": " + strings.TrimSpace(lines[len(lines)-1])
	}
	return msg
}

// RetriesExhaustedError reports that every attempt failed. Last carries the
// final attempt's failure for diagnostics.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("all %d attempts failed", e.Attempts)
	}
	return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error for errors.Is/errors.As support.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}
