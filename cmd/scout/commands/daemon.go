package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/scout/logger"
	"github.com/teranos/scout/scheduler"
)

// DaemonCmd runs the scheduler daemon in the foreground.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler daemon in the foreground",
	Long: `Run the scheduler daemon.

The daemon:
- Recovers orphaned jobs left over from a previous run
- Re-attaches to sessions that are still alive
- Evaluates search schedules once per tick and starts due jobs
- Drains the job queue as the run slot frees up
- Runs until interrupted (Ctrl+C); running sessions survive shutdown

Example:
  scout daemon
  scout daemon -v     # With per-tick logging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func runDaemon() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, st, cfg, err := newRunner(ctx)
	if err != nil {
		return err
	}

	// Reconcile state left by a previous process before scheduling
	// anything new
	if err := r.SyncOrphans(); err != nil {
		return fmt.Errorf("failed to recover orphaned jobs: %w", err)
	}

	ticker := scheduler.New(st, r, cfg.Scheduler.TickInterval(), logger.Logger)
	ticker.Start(ctx)

	scheduled := 0
	for _, def := range st.ListSearches() {
		if def.Scheduled() {
			scheduled++
		}
	}

	metrics := r.SystemMetrics()
	fmt.Printf("scout daemon started\n")
	fmt.Printf("  Data dir: %s\n", cfg.DataDir)
	fmt.Printf("  Scheduled searches: %d\n", scheduled)
	fmt.Printf("  Tick interval: %v\n", cfg.Scheduler.TickInterval())
	fmt.Printf("  Running: %d, queued: %d\n", metrics.RunningJobs, metrics.QueuedJobs)
	if stats := ticker.GetStats(); stats.NextDue != nil {
		fmt.Printf("  Next due: %s (%s)\n", stats.NextDueSearch, stats.NextDue.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nPress Ctrl+C to stop; running sessions keep going\n\n")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Printf("\nStopping daemon...\n")

	// Reverse order of startup; watchers stop, sessions stay alive
	ticker.Stop()
	r.Stop()

	fmt.Printf("Daemon stopped\n")
	return nil
}
