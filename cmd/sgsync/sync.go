// Package main provides the entry point for the sgsync CLI.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/config"
	"github.com/sgmodkit/sgsync/internal/git"
	"github.com/sgmodkit/sgsync/internal/invoke"
	"github.com/sgmodkit/sgsync/internal/lock"
	"github.com/sgmodkit/sgsync/internal/output"
)

// commitMessage is the fixed message for artifact commits.
const commitMessage = "chore: update aggregated module"

// syncFlags holds all flag values for the sync command.
type syncFlags struct {
	input      string
	output     string
	name       string
	desc       string
	retries    int
	timeout    int
	backoff    float64
	aggregator string
	repo       string
}

// newSyncCmd creates the sync command.
func newSyncCmd() *cobra.Command {
	return newSyncCmdInternal(nil)
}

// newSyncCmdInternal creates the sync command with optional runner
// injection. If runner is nil, a real subprocess runner is used.
func newSyncCmdInternal(runner invoke.Runner) *cobra.Command {
	defaults := config.Defaults()
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the aggregator and commit the artifact if it changed",
		Long: `Run the aggregator with retries, then commit the output artifact.

The aggregator is invoked as an external command with a per-attempt timeout.
A failed or timed-out attempt is retried with exponential backoff. After a
successful run the output artifact is compared against its last committed
state: identical content is a no-op, changed content is committed by itself
with a fixed message.

The RETRIES, TIMEOUT, and BACKOFF environment variables override the
built-in defaults; explicit flags override both.

Examples:
  sgsync sync                             # rule.yml -> merged.sgmodule, commit on change
  sgsync sync -o dist/merged.sgmodule     # custom artifact location
  sgsync sync --retries 5 --timeout 60    # patient mode for flaky sources
  sgsync sync --aggregator ./aggregate.sh # external aggregator command`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, runner, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "rule.yml", "Rule file path, relative to the repository root")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "merged.sgmodule", "Output artifact path, relative to the repository root")
	cmd.Flags().StringVar(&flags.name, "name", "", "Module display name for the #!name= header")
	cmd.Flags().StringVar(&flags.desc, "desc", "", "Module description for the #!desc= header")
	cmd.Flags().IntVar(&flags.retries, "retries", defaults.Retries, "Retries after the first failed attempt")
	cmd.Flags().IntVar(&flags.timeout, "timeout", int(defaults.Timeout/time.Second), "Per-attempt timeout in seconds")
	cmd.Flags().Float64Var(&flags.backoff, "backoff", defaults.Backoff, "Backoff multiplier between attempts")
	cmd.Flags().StringVar(&flags.aggregator, "aggregator", "", "Aggregator command (default: this binary's own aggregate subcommand)")
	cmd.Flags().StringVar(&flags.repo, "repo", ".", "Repository root to operate in")

	return cmd
}

// runSync executes the sync command.
func runSync(cmd *cobra.Command, runner invoke.Runner, flags syncFlags) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())

	if err := validateSyncFlags(flags); err != nil {
		printer.Error(err)
		return err
	}

	client := &git.Client{Dir: flags.repo}
	if !client.IsRepo() {
		err := output.NewSystemError("not in a git repository: " + flags.repo)
		printer.Error(err)
		return err
	}
	root, err := client.RepoRoot()
	if err != nil {
		printer.Error(err)
		return err
	}
	client = &git.Client{Dir: root}

	guard := lock.New(root)
	if err := guard.Acquire(); err != nil {
		printer.Error(err)
		return err
	}
	defer func() { _ = guard.Release() }()

	spec, err := buildInvocation(flags)
	if err != nil {
		printer.Error(err)
		return err
	}

	if runner == nil {
		runner = &invoke.ExecRunner{Dir: root}
	}
	invoker := invoke.New(runner, invoke.WithNotifier(&printerNotifier{printer: printer}))

	result, err := invoker.Do(cmd.Context(), spec)
	if err != nil {
		sysErr := output.NewSystemErrorWithCause("aggregation failed: "+err.Error(), err)
		printer.Error(sysErr)
		return sysErr
	}
	printer.Stderr("aggregator finished in %s\n", result.Elapsed.Round(time.Millisecond))

	changed, err := client.FileChanged(flags.output)
	if err != nil {
		sysErr := output.NewSystemErrorWithCause("failed to diff "+flags.output, err)
		printer.Error(sysErr)
		return sysErr
	}

	if !changed {
		return printer.Success(map[string]any{
			"message":   "no changes in " + flags.output + ", nothing to commit",
			"committed": false,
			"output":    flags.output,
		})
	}

	// Deliberately not retried: a partially applied commit must surface,
	// not be papered over by a second attempt.
	if err := client.CommitFile(flags.output, commitMessage); err != nil {
		printer.Error(err)
		return err
	}

	sha, _ := client.LastCommitFor(flags.output)
	return printer.Success(map[string]any{
		"message":   fmt.Sprintf("committed %s (%s)", flags.output, sha),
		"committed": true,
		"output":    flags.output,
		"commit":    sha,
	})
}

// validateSyncFlags rejects parameter values the invoker cannot honor.
func validateSyncFlags(flags syncFlags) error {
	if flags.retries < 0 {
		return output.NewUserError("--retries must be >= 0")
	}
	if flags.timeout <= 0 {
		return output.NewUserError("--timeout must be a positive number of seconds")
	}
	if flags.backoff <= 0 {
		return output.NewUserError("--backoff must be > 0")
	}
	return nil
}

// buildInvocation constructs the aggregator invocation. With no explicit
// --aggregator, sync re-invokes its own binary's aggregate subcommand; the
// aggregator stays an opaque external process either way.
func buildInvocation(flags syncFlags) (invoke.Spec, error) {
	args := []string{
		"-i", flags.input,
		"-o", flags.output,
	}
	if flags.name != "" {
		args = append(args, "--name", flags.name)
	}
	if flags.desc != "" {
		args = append(args, "--desc", flags.desc)
	}
	args = append(args,
		"--retries", strconv.Itoa(flags.retries),
		"--timeout", strconv.Itoa(flags.timeout),
		"--backoff", strconv.FormatFloat(flags.backoff, 'g', -1, 64),
	)

	command := flags.aggregator
	if command == "" {
		self, err := os.Executable()
		if err != nil {
			return invoke.Spec{}, output.NewSystemErrorWithCause("cannot locate own executable", err)
		}
		command = self
		args = append([]string{"aggregate"}, args...)
	}

	return invoke.Spec{
		Command:     command,
		Args:        args,
		Timeout:     time.Duration(flags.timeout) * time.Second,
		MaxRetries:  flags.retries,
		BackoffBase: flags.backoff,
	}, nil
}

// printerNotifier reports invoker progress through the CLI printer.
// Intermediate failures are logged, not surfaced as the final error.
type printerNotifier struct {
	printer *output.Printer
}

func (n *printerNotifier) AttemptFailed(attempt, total int, err error) {
	n.printer.Warn("attempt %d/%d failed: %v", attempt, total, err)
}

func (n *printerNotifier) Backoff(delay time.Duration) {
	n.printer.Stderr("retrying in %s...\n", delay)
}
