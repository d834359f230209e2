// Package lock serializes sync runs against a repository. The output
// artifact comparison is not safe under concurrent runs, so only one sync
// may execute per repository at a time.
package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sgmodkit/sgsync/internal/output"
)

// Lock is a pidfile-based mutual exclusion guard keyed by repository path.
type Lock struct {
	path     string
	pid      int
	acquired bool
}

// New creates a Lock for the given repository root. The lock file lives in
// the system temp directory, named after a hash of the root so unrelated
// repositories never contend.
func New(repoRoot string) *Lock {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(repoRoot)))[:16]
	return &Lock{
		path: filepath.Join(os.TempDir(), fmt.Sprintf("sgsync-%s.lock", hash)),
		pid:  os.Getpid(),
	}
}

// Acquire takes the lock, reclaiming it if the previous holder is dead.
// Returns a conflict error when another live sync run holds it.
func (l *Lock) Acquire() error {
	err := l.tryCreate()
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return output.NewSystemErrorWithCause("failed to create lock file "+l.path, err)
	}

	holder, readErr := l.readHolder()
	if readErr == nil && processAlive(holder) {
		return output.NewConflictError(fmt.Sprintf(
			"another sync is already running (pid %d, lock %s)", holder, l.path))
	}

	// Holder is gone or the file is garbage: reclaim.
	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
		return output.NewSystemErrorWithCause("failed to remove stale lock file "+l.path, removeErr)
	}
	if err := l.tryCreate(); err != nil {
		if os.IsExist(err) {
			return output.NewConflictError("another sync grabbed the lock first: " + l.path)
		}
		return output.NewSystemErrorWithCause("failed to create lock file "+l.path, err)
	}
	return nil
}

// tryCreate atomically creates the lock file with this process's pid.
func (l *Lock) tryCreate() error {
	// O_EXCL with O_CREATE makes creation the atomic claim.
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(file, "%d\n", l.pid)
	closeErr := file.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(l.path)
		if writeErr != nil {
			return writeErr
		}
		return closeErr
	}
	l.acquired = true
	return nil
}

// readHolder parses the pid recorded in the lock file.
func (l *Lock) readHolder() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("lock file %s holds no pid: %w", l.path, err)
	}
	return pid, nil
}

// Release removes the lock file. Safe to call when the lock was never
// acquired.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return output.NewSystemErrorWithCause("failed to remove lock file "+l.path, err)
	}
	return nil
}

// Path returns the lock file location, for diagnostics.
func (l *Lock) Path() string {
	return l.path
}

// processAlive reports whether a process with the given pid exists.
// Signal 0 performs the existence check without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
