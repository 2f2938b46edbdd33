package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/scout/store"
)

// RunCmd runs a search immediately.
var RunCmd = &cobra.Command{
	Use:   "run <slug>",
	Short: "Run a search now",
	Long: `Run a search immediately, regardless of its schedule.

If another job is running the new job waits in the queue. By default
the command stays in the foreground until the job finishes; pass
--no-wait to exit right after launch and let the daemon (or a later
command) pick up the result.

Examples:
  scout run hn-digest
  scout run hn-digest --prompt "focus on AI stories today"
  scout run hn-digest --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		promptOverride, _ := cmd.Flags().GetString("prompt")
		noWait, _ := cmd.Flags().GetBool("no-wait")
		return runRun(args[0], promptOverride, noWait)
	},
}

func init() {
	RunCmd.Flags().String("prompt", "", "One-off prompt override for this run")
	RunCmd.Flags().Bool("no-wait", false, "Exit right after launching instead of waiting for completion")
}

func runRun(slug, promptOverride string, noWait bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, st, _, err := newRunner(ctx)
	if err != nil {
		return err
	}
	defer r.Stop()

	finished := make(chan *store.JobRecord, 1)
	r.OnComplete(func(job *store.JobRecord) {
		finished <- job
	})

	job, err := r.StartJob(slug, promptOverride)
	if err != nil {
		return err
	}

	if job.Status == store.JobStatusQueued {
		qs := st.LoadQueueState()
		fmt.Printf("Job %s queued (position %d, behind %s)\n", job.ID, len(qs.Queue), qs.CurrentJobID)
		return nil
	}

	fmt.Printf("Job %s started in session %s\n", job.ID, job.SessionHandle)
	if noWait {
		return nil
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case done := <-finished:
			if done.ID != job.ID {
				continue
			}
			switch done.Status {
			case store.JobStatusCompleted:
				fmt.Printf("Job %s completed in %s\n", done.ID, done.Duration().Round(time.Second))
				fmt.Printf("Report: %s\n", st.JobReportPath(slug, done.ID))
				return nil
			default:
				return fmt.Errorf("job %s %s: %s", done.ID, done.Status, done.Error)
			}
		case <-sigChan:
			fmt.Printf("\nDetaching; job %s keeps running. Check it with: scout jobs --search %s\n", job.ID, slug)
			return nil
		}
	}
}
