package invoke

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// killDelay is how long ExecRunner waits after context cancellation before
// giving up on the process exiting.
const killDelay = 5 * time.Second

// ExecRunner runs commands as real subprocesses via os/exec. On context
// expiry the child process is killed, not merely abandoned.
type ExecRunner struct {
	// Dir is the working directory for the command. Empty means the
	// current directory.
	Dir string

	// Stdout, when set, additionally receives the command's stdout so
	// progress output reaches the user in real time.
	Stdout io.Writer
	// Stderr mirrors Stdout for the error stream.
	Stderr io.Writer
}

// Run executes a single attempt of the spec.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (AttemptResult, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Stdout)
	}
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}

	// CommandContext kills the process on cancellation; WaitDelay bounds
	// how long Wait blocks if the process ignores the kill (e.g. it is
	// stuck in uninterruptible I/O).
	cmd.WaitDelay = killDelay

	start := time.Now()
	err := cmd.Run()
	result := AttemptResult{
		Elapsed: time.Since(start),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit status is reported through the result; the invoker
			// classifies it.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Start failures (command not found, permission denied) and
		// wait-delay expiry surface as errors.
		return result, err
	}

	return result, nil
}
