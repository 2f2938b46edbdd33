package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/scout/store"
	"github.com/teranos/scout/tmux"
)

// JobsCmd lists jobs.
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs",
	Long: `List jobs across all searches, newest first.

Status filters:
  queued    - Waiting for the run slot
  running   - Currently executing
  completed - Finished with exit code 0
  failed    - Finished with a non-zero exit code or spawn failure
  cancelled - Cancelled by the user

Examples:
  scout jobs                      # All jobs
  scout jobs --search hn-digest   # Jobs of one search
  scout jobs --status failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("search")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return runJobs(slug, status, limit)
	},
}

// CancelCmd cancels a queued or running job.
var CancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Long: `Cancel a job. A queued job leaves the queue; a running job has its
session killed. Unique id prefixes are accepted.

Example:
  scout cancel 3f9a`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("search")
		return runCancel(slug, args[0])
	},
}

// LogsCmd prints a job's captured output.
var LogsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Show captured output of a job",
	Long: `Print the captured output of a job, or its report with --report.

Examples:
  scout logs 3f9a
  scout logs 3f9a -n 100
  scout logs 3f9a --report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("search")
		lines, _ := cmd.Flags().GetInt("lines")
		report, _ := cmd.Flags().GetBool("report")
		return runLogs(slug, args[0], lines, report)
	},
}

// AttachCmd attaches the terminal to a running job's session.
var AttachCmd = &cobra.Command{
	Use:   "attach <job-id>",
	Short: "Attach to a running job's session",
	Long: `Attach the terminal to the detached session of a running job.
Detach with the multiplexer's detach binding (Ctrl+B D for tmux);
the job keeps running.

Example:
  scout attach 3f9a`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("search")
		return runAttach(slug, args[0])
	},
}

func init() {
	JobsCmd.Flags().String("search", "", "Only jobs of this search")
	JobsCmd.Flags().String("status", "", "Filter by status (queued, running, completed, failed, cancelled)")
	JobsCmd.Flags().Int("limit", 20, "Maximum number of jobs to display")

	CancelCmd.Flags().String("search", "", "Search the job belongs to (speeds up lookup)")
	LogsCmd.Flags().String("search", "", "Search the job belongs to (speeds up lookup)")
	LogsCmd.Flags().IntP("lines", "n", 0, "Only the last N lines")
	LogsCmd.Flags().Bool("report", false, "Show the report instead of the raw log")
	AttachCmd.Flags().String("search", "", "Search the job belongs to (speeds up lookup)")
}

func runJobs(slug, statusFilter string, limit int) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	if statusFilter != "" && !store.IsValidStatus(statusFilter) {
		return fmt.Errorf("unknown status %q", statusFilter)
	}

	var jobs []*store.JobRecord
	if slug != "" {
		if _, err := st.GetSearch(slug); err != nil {
			return err
		}
		jobs = st.ListJobs(slug)
	} else {
		jobs = st.ListAllJobs()
	}

	shown := 0
	header := false
	for _, job := range jobs {
		if statusFilter != "" && string(job.Status) != statusFilter {
			continue
		}
		if !header {
			fmt.Printf("%-10s %-25s %-10s %-10s %s\n", "JOB ID", "SEARCH", "STATUS", "DURATION", "CREATED")
			fmt.Printf("%-10s %-25s %-10s %-10s %s\n", "------", "------", "------", "--------", "-------")
			header = true
		}
		duration := "-"
		if job.Terminal() {
			duration = job.Duration().Round(time.Second).String()
		} else if job.Status == store.JobStatusRunning && job.StartedAt != nil {
			duration = time.Since(*job.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%-10s %-25s %-10s %-10s %s\n",
			job.ID,
			truncate(job.SearchSlug, 25),
			job.Status,
			duration,
			job.CreatedAt.Format("2006-01-02 15:04"))
		shown++
		if shown >= limit {
			break
		}
	}

	if shown == 0 {
		fmt.Println("No jobs found")
		return nil
	}
	fmt.Printf("\nTotal: %d job(s)\n", shown)
	return nil
}

func runCancel(slug, id string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, st, _, err := newRunner(ctx)
	if err != nil {
		return err
	}
	defer r.Stop()

	job, err := resolveJob(st, slug, id)
	if err != nil {
		return err
	}

	cancelled, err := r.CancelJob(job.SearchSlug, job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s cancelled\n", cancelled.ID)
	return nil
}

func runLogs(slug, id string, lines int, report bool) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	job, err := resolveJob(st, slug, id)
	if err != nil {
		return err
	}

	path := st.JobLogPath(job.SearchSlug, job.ID)
	if report {
		path = st.JobReportPath(job.SearchSlug, job.ID)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if report {
			return fmt.Errorf("no report for job %s (status: %s)", job.ID, job.Status)
		}
		return fmt.Errorf("no log for job %s (status: %s)", job.ID, job.Status)
	}

	if lines > 0 {
		for _, line := range tailLines(string(content), lines) {
			fmt.Println(line)
		}
		return nil
	}
	fmt.Print(string(content))
	return nil
}

func runAttach(slug, id string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}

	job, err := resolveJob(st, slug, id)
	if err != nil {
		return err
	}
	if job.Status != store.JobStatusRunning || job.SessionHandle == "" {
		return fmt.Errorf("job %s is not running (status: %s)", job.ID, job.Status)
	}

	client := tmux.NewClient(cfg.Tmux.Bin, cfg.Tmux.SessionPrefix)
	return client.Attach(job.SessionHandle)
}

func tailLines(content string, n int) []string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
