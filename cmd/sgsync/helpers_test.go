package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/invoke"
)

// initRepo creates a git repository with one initial commit.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	gitRun(t, dir, "init", "-q")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test User")
	gitRun(t, dir, "config", "commit.gpgsign", "false")

	writeRepoFile(t, dir, "README.md", "hello\n")
	gitRun(t, dir, "add", "README.md")
	gitRun(t, dir, "commit", "-q", "-m", "initial commit")

	return dir
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func writeRepoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
		t.Fatal(mkErr)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// execute runs a command with captured output, returning stdout, stderr,
// and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// fakeRunner is an invoke.Runner whose behavior is scripted per call.
type fakeRunner struct {
	calls int
	run   func(call int, ctx context.Context, spec invoke.Spec) (invoke.AttemptResult, error)
}

func (r *fakeRunner) Run(ctx context.Context, spec invoke.Spec) (invoke.AttemptResult, error) {
	r.calls++
	return r.run(r.calls, ctx, spec)
}
