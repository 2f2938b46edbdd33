package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "agent", cfg.Agent.Bin)
	assert.Equal(t, "tmux", cfg.Tmux.Bin)
	assert.Equal(t, "scout", cfg.Tmux.SessionPrefix)
	assert.Equal(t, 2, cfg.Runner.PollIntervalSeconds)
	assert.Equal(t, 60, cfg.Scheduler.TickSeconds)
	require.NoError(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 2*time.Second, cfg.Runner.PollInterval())
	assert.Equal(t, 1*time.Second, cfg.Runner.SettleDelay())
	assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.toml")
	content := `
data_dir = "/tmp/scout-test"

[agent]
bin = "aider"
name = "researcher"

[scheduler]
tick_seconds = 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/scout-test", cfg.DataDir)
	assert.Equal(t, "aider", cfg.Agent.Bin)
	assert.Equal(t, "researcher", cfg.Agent.Name)
	assert.Equal(t, 30, cfg.Scheduler.TickSeconds)
	// Defaults still apply for unset sections
	assert.Equal(t, 2, cfg.Runner.PollIntervalSeconds)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Scheduler.TickSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Runner.PollIntervalSeconds = -1
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Agent.Bin = ""
	assert.Error(t, cfg.Validate())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scout.toml")

	require.NoError(t, WriteDefault(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Runner, cfg.Runner)

	// Second write must refuse to clobber
	assert.Error(t, WriteDefault(path))
}

func TestLoadUsesEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("SCOUT_AGENT_BIN", "env-agent")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-agent", cfg.Agent.Bin)
}
