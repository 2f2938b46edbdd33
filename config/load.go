package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/scout/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the scout configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// Environment variable binding: SCOUT_AGENT_BIN, SCOUT_DATA_DIR, ...
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Merge config files in precedence order: user -> project
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// mergeConfigFiles merges the user config then the project config, so
// project-local settings win over user-level ones.
func mergeConfigFiles(v *viper.Viper) {
	for _, path := range []string{UserConfigPath(), projectConfigPath()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		// Merge errors are intentionally ignored: a malformed optional
		// config file must not prevent startup with defaults.
		_ = v.MergeInConfig()
	}
}

// UserConfigPath returns the path of the user-level config file
// (~/.scout/scout.toml), or empty when home cannot be resolved.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scout", "scout.toml")
}

func projectConfigPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(wd, "scout.toml")
}

// Validate checks configured values that must be positive for the runner
// and scheduler loops to function.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.Runner.PollIntervalSeconds <= 0 {
		return errors.Newf("config: runner.poll_interval_seconds must be positive, got %d", c.Runner.PollIntervalSeconds)
	}
	if c.Runner.SettleSeconds < 0 {
		return errors.Newf("config: runner.settle_seconds must not be negative, got %d", c.Runner.SettleSeconds)
	}
	if c.Scheduler.TickSeconds <= 0 {
		return errors.Newf("config: scheduler.tick_seconds must be positive, got %d", c.Scheduler.TickSeconds)
	}
	if c.Agent.Bin == "" {
		return errors.New("config: agent.bin must not be empty")
	}
	if c.Agent.TimeoutMinutes < 0 {
		return errors.Newf("config: agent.timeout_minutes must not be negative, got %d", c.Agent.TimeoutMinutes)
	}
	if c.Tmux.Bin == "" {
		return errors.New("config: tmux.bin must not be empty")
	}
	return nil
}
