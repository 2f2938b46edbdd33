// Package config manages the scout configuration.
//
// Configuration is read with Viper from TOML files merged in precedence
// order (user ~/.scout/scout.toml, then project ./scout.toml), with
// SCOUT_* environment variables overriding both.
package config

import "time"

// Config represents the core scout configuration
type Config struct {
	DataDir   string          `mapstructure:"data_dir" toml:"data_dir"`
	Agent     AgentConfig     `mapstructure:"agent" toml:"agent"`
	Tmux      TmuxConfig      `mapstructure:"tmux" toml:"tmux"`
	Runner    RunnerConfig    `mapstructure:"runner" toml:"runner"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" toml:"scheduler"`
}

// AgentConfig configures the external AI-agent CLI that executes prompts
type AgentConfig struct {
	Bin            string `mapstructure:"bin" toml:"bin"`                         // agent binary, resolved via PATH
	Name           string `mapstructure:"name" toml:"name"`                       // optional --agent name passed to the binary
	TimeoutMinutes int    `mapstructure:"timeout_minutes" toml:"timeout_minutes"` // kill jobs running longer than this, 0 disables
}

// TmuxConfig configures the detached session manager
type TmuxConfig struct {
	Bin           string `mapstructure:"bin" toml:"bin"`
	SessionPrefix string `mapstructure:"session_prefix" toml:"session_prefix"`
}

// RunnerConfig configures the job lifecycle controller
type RunnerConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" toml:"poll_interval_seconds"` // completion poll cadence (default: 2)
	SettleSeconds       int `mapstructure:"settle_seconds" toml:"settle_seconds"`               // delay before finalize so marker writes flush (default: 1)
	LogTailLines        int `mapstructure:"log_tail_lines" toml:"log_tail_lines"`               // lines scanned for error extraction (default: 20)
}

// SchedulerConfig configures the scheduler loop
type SchedulerConfig struct {
	TickSeconds int `mapstructure:"tick_seconds" toml:"tick_seconds"` // due-search evaluation cadence (default: 60)
}

// Timeout returns the job timeout as a duration, zero when disabled.
func (c AgentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// PollInterval returns the runner poll cadence as a duration.
func (c RunnerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// SettleDelay returns the pre-finalize settle delay as a duration.
func (c RunnerConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// TickInterval returns the scheduler tick cadence as a duration.
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}
