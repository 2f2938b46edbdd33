package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())

	// Agent defaults
	v.SetDefault("agent.bin", "agent")
	v.SetDefault("agent.name", "")
	v.SetDefault("agent.timeout_minutes", 0)

	// Tmux defaults
	v.SetDefault("tmux.bin", "tmux")
	v.SetDefault("tmux.session_prefix", "scout")

	// Runner defaults
	v.SetDefault("runner.poll_interval_seconds", 2)
	v.SetDefault("runner.settle_seconds", 1)
	v.SetDefault("runner.log_tail_lines", 20)

	// Scheduler defaults
	v.SetDefault("scheduler.tick_seconds", 60)
}

// defaultDataDir returns ~/.scout/data, falling back to a relative
// directory when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "scout-data"
	}
	return filepath.Join(home, ".scout", "data")
}
