package tmux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scout/errors"
)

func TestSessionName(t *testing.T) {
	c := NewClient("tmux", "scout")
	assert.Equal(t, "scout-desk-a1b2c3d4", c.SessionName("desk", "a1b2c3d4"))

	// Empty prefix falls back to the default
	c = NewClient("tmux", "")
	assert.Equal(t, "scout-desk-a1b2c3d4", c.SessionName("desk", "a1b2c3d4"))
}

func TestEnsureAvailableMissingBinary(t *testing.T) {
	c := NewClient("definitely-not-a-real-multiplexer-binary", "scout")

	err := c.EnsureAvailable()
	require.Error(t, err)
	assert.True(t, errors.IsPreconditionError(err))
}

func TestSessionExistsMissingBinary(t *testing.T) {
	// A broken binary means no session can be observed; the check
	// degrades to false rather than erroring.
	c := NewClient("definitely-not-a-real-multiplexer-binary", "scout")
	assert.False(t, c.SessionExists("scout-desk-a1b2c3d4"))
}

func TestKillSessionIdempotentWhenGone(t *testing.T) {
	c := NewClient("definitely-not-a-real-multiplexer-binary", "scout")
	assert.NoError(t, c.KillSession("scout-desk-a1b2c3d4"))
}

func TestAgentCommand(t *testing.T) {
	argv := AgentCommand("agent", "", "find new papers")
	assert.Equal(t, []string{"agent", "run", "find new papers"}, argv)

	argv = AgentCommand("agent", "researcher", "find new papers")
	assert.Equal(t, []string{"agent", "run", "--agent", "researcher", "find new papers"}, argv)
}

func TestRunScript(t *testing.T) {
	argv := AgentCommand("agent", "", `summarize "today's" news`)
	script := RunScript(argv, "/data/jobs/a/output.log", "/data/jobs/a/EXIT_CODE", "/data/jobs/a/DONE")

	// Redirect, exit-code capture and completion marker, in that order
	assert.Contains(t, script, "> /data/jobs/a/output.log 2>&1")
	assert.Contains(t, script, "echo $? > /data/jobs/a/EXIT_CODE")
	assert.Contains(t, script, "touch /data/jobs/a/DONE")
	assert.Less(t, strings.Index(script, "output.log"), strings.Index(script, "EXIT_CODE"))
	assert.Less(t, strings.Index(script, "EXIT_CODE"), strings.Index(script, "DONE"))

	// The prompt's quotes must be shell-safe
	assert.NotContains(t, script, `"today's" news >`)
}

func TestRunScriptQuotesSpacedPaths(t *testing.T) {
	script := RunScript([]string{"agent", "run", "hi"}, "/tmp/my data/output.log", "/tmp/my data/EXIT_CODE", "/tmp/my data/DONE")
	assert.Contains(t, script, `'/tmp/my data/output.log'`)
}
