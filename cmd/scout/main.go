package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/scout/cmd/scout/commands"
	"github.com/teranos/scout/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "scout - scheduled AI agent searches",
	Long: `scout - recurring AI agent searches in detached sessions.

A search pairs a natural-language prompt with an optional schedule.
Jobs run the prompt through an agent CLI inside a detached tmux
session, capture the output and write a report. One job runs at a
time; everything else waits in a FIFO queue.

Available commands:
  create  - Create a new search
  ls      - List searches
  show    - Show a search and its recent jobs
  edit    - Update a search's schedule or prompt
  rm      - Delete a search and its jobs
  run     - Run a search now
  jobs    - List jobs
  cancel  - Cancel a queued or running job
  logs    - Show captured output of a job
  attach  - Attach to a running job's session
  daemon  - Run the scheduler daemon in the foreground
  config  - Manage configuration

Examples:
  scout create "HN Digest" --prompt "summarize today's HN front page" --schedule "0 9 * * *"
  scout run hn-digest          # Run immediately
  scout daemon                 # Start the scheduler
  scout jobs --search hn-digest`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.InitializeWithLevel(jsonOutput, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.CreateCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.ShowCmd)
	rootCmd.AddCommand(commands.EditCmd)
	rootCmd.AddCommand(commands.RmCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.CancelCmd)
	rootCmd.AddCommand(commands.LogsCmd)
	rootCmd.AddCommand(commands.AttachCmd)
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
