// Package invoke runs external commands with bounded retries, per-attempt
// timeouts, and exponential backoff between attempts.
package invoke

import (
	"context"
	"math"
	"time"
)

// BackoffUnit is the delay before the first retry. Subsequent delays scale
// by the spec's backoff base.
const BackoffUnit = time.Second

// Spec describes a single external command invocation. It is immutable once
// constructed; the invoker never modifies it between attempts.
type Spec struct {
	Command string
	Args    []string
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so the
	// command runs at most MaxRetries+1 times.
	MaxRetries int

	// BackoffBase is the multiplier applied to the delay between attempts.
	// A base of 2.0 yields delays of 1x, 2x, 4x... BackoffUnit.
	BackoffBase float64
}

// AttemptResult captures the outcome of one attempt.
type AttemptResult struct {
	ExitCode int
	Elapsed  time.Duration
	Stdout   string
	Stderr   string
}

// Runner executes a single attempt of a command. Implementations must honor
// context cancellation by terminating the process, not merely abandoning it.
type Runner interface {
	Run(ctx context.Context, spec Spec) (AttemptResult, error)
}

// Notifier receives progress reports from the invoker. Attempt failures that
// will be retried are reported here rather than returned.
type Notifier interface {
	AttemptFailed(attempt, total int, err error)
	Backoff(delay time.Duration)
}

// nopNotifier discards all progress reports.
type nopNotifier struct{}

func (nopNotifier) AttemptFailed(int, int, error) {}
func (nopNotifier) Backoff(time.Duration) {}

// Invoker drives a Runner through the retry loop.
type Invoker struct {
	runner Runner
	notify Notifier

	// sleep is replaceable in tests so backoff schedules can be asserted
	// without waiting them out.
	sleep func(time.Duration)
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithNotifier sets the progress notifier.
func WithNotifier(n Notifier) Option {
	return func(inv *Invoker) { inv.notify = n }
}

// WithSleep replaces the backoff sleep function.
func WithSleep(f func(time.Duration)) Option {
	return func(inv *Invoker) { inv.sleep = f }
}

// New creates an Invoker around the given runner.
func New(runner Runner, opts ...Option) *Invoker {
	inv := &Invoker{
		runner: runner,
		notify: nopNotifier{},
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Do executes the spec until an attempt succeeds or retries are exhausted.
// It returns the successful attempt's result, or a *RetriesExhaustedError
// wrapping the last attempt's failure.
func (inv *Invoker) Do(ctx context.Context, spec Spec) (AttemptResult, error) {
	attempts := spec.MaxRetries + 1
	var lastErr error
	var lastResult AttemptResult

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := BackoffDelay(spec.BackoffBase, attempt)
			inv.notify.Backoff(delay)
			inv.sleep(delay)
		}

		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		result, err := inv.runAttempt(ctx, spec)
		if err == nil {
			return result, nil
		}
		lastErr = err
		lastResult = result
		inv.notify.AttemptFailed(attempt, attempts, err)
	}

	return lastResult, &RetriesExhaustedError{Attempts: attempts, Last: lastErr}
}

// runAttempt executes one attempt under the spec's timeout and classifies
// the failure mode.
func (inv *Invoker) runAttempt(ctx context.Context, spec Spec) (AttemptResult, error) {
	attemptCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	result, err := inv.runner.Run(attemptCtx, spec)
	if err == nil && result.ExitCode == 0 {
		return result, nil
	}

	// Timeout takes precedence: a killed process usually also reports a
	// non-zero exit status.
	if attemptCtx.Err() == context.DeadlineExceeded {
		return result, &TimeoutError{Command: spec.Command, Timeout: spec.Timeout}
	}
	if err != nil {
		return result, err
	}
	return result, &ExitStatusError{
		Command:  spec.Command,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
	}
}

// BackoffDelay returns the delay that precedes the given attempt (attempt
// numbering starts at 1; no delay precedes the first attempt). The schedule
// is BackoffUnit * base^(attempt-2), non-decreasing for base >= 1.
func BackoffDelay(base float64, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	if base <= 0 {
		base = 1
	}
	scale := math.Pow(base, float64(attempt-2))
	return time.Duration(scale * float64(BackoffUnit))
}
