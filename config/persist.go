package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/scout/errors"
)

// WriteDefault writes a starter config file populated with the default
// values to the given path, creating parent directories as needed.
// Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file %s already exists", path)
	}

	cfg := Defaults()

	content, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal default config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create config directory for %s", path)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	return nil
}

// Defaults returns a Config populated with the default values, without
// consulting config files or the environment.
func Defaults() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Agent: AgentConfig{
			Bin: "agent",
		},
		Tmux: TmuxConfig{
			Bin:           "tmux",
			SessionPrefix: "scout",
		},
		Runner: RunnerConfig{
			PollIntervalSeconds: 2,
			SettleSeconds:       1,
			LogTailLines:        20,
		},
		Scheduler: SchedulerConfig{
			TickSeconds: 60,
		},
	}
}
