package git

import (
	"errors"
	"strings"

	"github.com/sgmodkit/sgsync/internal/output"
)

// FileChanged reports whether path differs from its last committed state.
// An untracked file counts as changed; so does a file that was committed
// before and has since been deleted.
func (c *Client) FileChanged(path string) (bool, error) {
	tracked, err := c.isTracked(path)
	if err != nil {
		return false, err
	}
	if !tracked {
		// Never committed: any on-disk content is a change.
		return c.fileExistsInWorktree(path)
	}

	// diff --quiet exits 1 when content differs from HEAD.
	_, err = c.Run("diff", "--quiet", "HEAD", "--", path)
	if err == nil {
		return false, nil
	}
	var exitErr *output.ExitError
	if errors.As(err, &exitErr) && isDiffStatus(exitErr) {
		return true, nil
	}
	return false, err
}

// isTracked reports whether path exists in the index or HEAD.
func (c *Client) isTracked(path string) (bool, error) {
	out, err := c.Run("ls-files", "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// fileExistsInWorktree checks for the file via git status so the answer
// respects the repository's view (e.g. ignored files stay invisible).
func (c *Client) fileExistsInWorktree(path string) (bool, error) {
	out, err := c.Run("status", "--porcelain", "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitFile stages exactly the given path and commits it with message.
// The commit contains only that file. This step is deliberately not
// retried: a failure here must surface immediately so repository state is
// never left ambiguous.
func (c *Client) CommitFile(path, message string) error {
	if _, err := c.Run("add", "--", path); err != nil {
		return output.NewSystemErrorWithCause("failed to stage "+path, err)
	}
	if _, err := c.Run("commit", "--only", "-m", message, "--", path); err != nil {
		return output.NewSystemErrorWithCause("failed to commit "+path, err)
	}
	return nil
}

// LastCommitFor returns the subject and short SHA of the most recent commit
// touching path, or empty strings if there is none.
func (c *Client) LastCommitFor(path string) (sha, subject string) {
	out, err := c.Run("log", "-1", "--pretty=format:%h %s", "--", path)
	if err != nil || out == "" {
		return "", ""
	}
	parts := strings.SplitN(out, " ", 2)
	sha = parts[0]
	if len(parts) > 1 {
		subject = parts[1]
	}
	return sha, subject
}

// isDiffStatus reports whether the wrapped git failure is the diff exit
// status (content differs) rather than an operational failure. diff --quiet
// produces no stderr on a plain difference, so an empty underlying message
// distinguishes it.
func isDiffStatus(exitErr *output.ExitError) bool {
	return strings.HasPrefix(exitErr.Message, "git command failed: exit status 1")
}
