// Package tmux wraps the tmux binary as a detached-session primitive:
// start a named session running a script, check whether it is still
// alive, kill it, or attach to it interactively.
//
// Running jobs in detached sessions (rather than holding a child
// process handle) means job execution survives the orchestrator process
// itself restarting; the session is reconciled against on next startup.
package tmux

import (
	"os"
	"os/exec"
	"strings"

	"github.com/teranos/scout/errors"
)

// Client shells out to a tmux binary.
type Client struct {
	bin    string
	prefix string
}

// NewClient creates a client for the given tmux binary and session name
// prefix. Neither is checked here; call EnsureAvailable once at startup.
func NewClient(bin, prefix string) *Client {
	if prefix == "" {
		prefix = "scout"
	}
	return &Client{bin: bin, prefix: prefix}
}

// EnsureAvailable verifies the tmux binary can be found. Returns
// errors.ErrPreconditionFailed when it cannot; callers treat that as
// fatal for the operation, not retryable.
func (c *Client) EnsureAvailable() error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return errors.Wrapf(errors.ErrPreconditionFailed, "%s binary not found in PATH", c.bin)
	}
	return nil
}

// SessionName returns the globally unique session name for a job.
func (c *Client) SessionName(slug, jobID string) string {
	return c.prefix + "-" + slug + "-" + jobID
}

// SessionExists reports whether a session with the given name is alive.
func (c *Client) SessionExists(name string) bool {
	return exec.Command(c.bin, "has-session", "-t", name).Run() == nil
}

// NewSession starts a detached session running the given shell script.
// Fails with errors.ErrSessionExists when the name is already taken.
func (c *Client) NewSession(name, script string) error {
	if c.SessionExists(name) {
		return errors.Wrapf(errors.ErrSessionExists, "session %q", name)
	}

	out, err := exec.Command(c.bin, "new-session", "-d", "-s", name, script).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "failed to start session %q: %s", name, strings.TrimSpace(string(out)))
	}
	return nil
}

// KillSession terminates a session. Killing a session that is already
// gone is not an error.
func (c *Client) KillSession(name string) error {
	if !c.SessionExists(name) {
		return nil
	}
	out, err := exec.Command(c.bin, "kill-session", "-t", name).CombinedOutput()
	if err != nil {
		// The session may have exited between the check and the kill
		if !c.SessionExists(name) {
			return nil
		}
		return errors.Wrapf(err, "failed to kill session %q: %s", name, strings.TrimSpace(string(out)))
	}
	return nil
}

// Attach replaces the caller's terminal with the session. Blocking;
// used only by interactive callers, never by the lifecycle controller.
func (c *Client) Attach(name string) error {
	if !c.SessionExists(name) {
		return errors.NewNotFoundError("session %q", name)
	}

	cmd := exec.Command(c.bin, "attach", "-t", name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "failed to attach to session %q", name)
	}
	return nil
}

// ListSessions returns the names of all live sessions. A tmux server
// that is not running yields an empty list, not an error.
func (c *Client) ListSessions() []string {
	out, err := exec.Command(c.bin, "list-sessions", "-F", "#{session_name}").Output()
	if err != nil {
		return nil
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
