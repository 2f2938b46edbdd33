package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/teranos/scout/config"
)

// ConfigCmd manages scout configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage scout configuration.

Configuration is merged from, in increasing precedence:
  built-in defaults
  ~/.scout/scout.toml
  ./scout.toml
  SCOUT_* environment variables

Examples:
  scout config show    # Effective configuration
  scout config init    # Write a default ~/.scout/scout.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// ConfigShowCmd prints the effective configuration.
var ConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		out, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

// ConfigInitCmd writes a default user config file.
var ConfigInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default user configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.UserConfigPath()
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

// ConfigPathCmd prints the user config file path.
var ConfigPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the user configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.UserConfigPath())
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(ConfigShowCmd)
	ConfigCmd.AddCommand(ConfigInitCmd)
	ConfigCmd.AddCommand(ConfigPathCmd)
}
