package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/scout/schedule"
	"github.com/teranos/scout/store"
)

// CreateCmd creates a new search.
var CreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new search",
	Long: `Create a search from a name, a prompt and an optional schedule.

The prompt comes from --prompt, --prompt-file, or stdin when neither
is given. The prompt may reference template variables that are
resolved per job:

  {{reportPath}}  - path the agent should write its report to
  {{searchSlug}}  - the search's slug
  {{jobId}}       - the job's id

Schedules are either an interval (30m, 2h) or a 5-field cron
expression. Omit --schedule for a manual-only search.

Examples:
  scout create "HN Digest" --prompt "summarize HN" --schedule "0 9 * * *"
  scout create "Repo Watch" --prompt-file watch.md --schedule 2h
  echo "find new Go releases" | scout create "Go Releases"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		promptFile, _ := cmd.Flags().GetString("prompt-file")
		spec, _ := cmd.Flags().GetString("schedule")
		return runCreate(args[0], prompt, promptFile, spec)
	},
}

// LsCmd lists searches.
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLs()
	},
}

// ShowCmd shows one search with its prompt and recent jobs.
var ShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a search and its recent jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShow(args[0])
	},
}

// EditCmd updates a search's schedule or prompt.
var EditCmd = &cobra.Command{
	Use:   "edit <slug>",
	Short: "Update a search's schedule or prompt",
	Long: `Update the schedule or prompt template of an existing search.

Examples:
  scout edit hn-digest --schedule "0 8 * * 1-5"
  scout edit hn-digest --schedule ""        # Make manual-only
  scout edit hn-digest --prompt-file new.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0])
	},
}

// RmCmd deletes a search and everything under it.
var RmCmd = &cobra.Command{
	Use:   "rm <slug>",
	Short: "Delete a search and all of its jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return runRm(args[0], force)
	},
}

func init() {
	CreateCmd.Flags().String("prompt", "", "Prompt text")
	CreateCmd.Flags().String("prompt-file", "", "Read prompt from file")
	CreateCmd.Flags().String("schedule", "", "Interval (30m, 2h) or 5-field cron expression")

	EditCmd.Flags().String("schedule", "", "New schedule (empty string makes the search manual-only)")
	EditCmd.Flags().String("prompt", "", "New prompt text")
	EditCmd.Flags().String("prompt-file", "", "Read new prompt from file")

	RmCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
}

func readPrompt(prompt, promptFile string) (string, error) {
	if prompt != "" && promptFile != "" {
		return "", fmt.Errorf("--prompt and --prompt-file are mutually exclusive")
	}
	if promptFile != "" {
		content, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		return string(content), nil
	}
	if prompt != "" {
		return prompt, nil
	}
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	if len(content) == 0 {
		return "", fmt.Errorf("prompt is empty (use --prompt, --prompt-file, or pipe to stdin)")
	}
	return string(content), nil
}

func runCreate(name, prompt, promptFile, spec string) error {
	template, err := readPrompt(prompt, promptFile)
	if err != nil {
		return err
	}
	if spec != "" {
		if _, err := schedule.Parse(spec); err != nil {
			return err
		}
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}

	def, err := st.CreateSearch(name, template, spec)
	if err != nil {
		return fmt.Errorf("failed to create search: %w", err)
	}

	fmt.Printf("Created search %q (%s)\n", def.Name, def.Slug)
	fmt.Printf("  Schedule: %s\n", schedule.Describe(def.Schedule))
	return nil
}

func runLs() error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	searches := st.ListSearches()
	if len(searches) == 0 {
		fmt.Println("No searches yet. Create one with: scout create <name> --prompt <prompt>")
		return nil
	}

	now := time.Now()
	fmt.Printf("%-25s %-20s %-12s %s\n", "SLUG", "SCHEDULE", "LAST RUN", "NEXT DUE")
	fmt.Printf("%-25s %-20s %-12s %s\n", "----", "--------", "--------", "--------")
	for _, def := range searches {
		last := st.LatestJob(def.Slug)
		lastLabel := "never"
		if last != nil {
			lastLabel = humanAge(now.Sub(last.CreatedAt))
		}
		nextLabel := "-"
		if next := schedule.NextDueTime(def, last, now); next != nil {
			if next.Before(now) {
				nextLabel = "overdue"
			} else {
				nextLabel = "in " + humanAge(next.Sub(now))
			}
		}
		fmt.Printf("%-25s %-20s %-12s %s\n",
			truncate(def.Slug, 25),
			truncate(schedule.Describe(def.Schedule), 20),
			lastLabel,
			nextLabel)
	}
	fmt.Printf("\nTotal: %d search(es)\n", len(searches))
	return nil
}

func runShow(slug string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	def, err := st.GetSearch(slug)
	if err != nil {
		return err
	}

	fmt.Printf("Search: %s (%s)\n", def.Name, def.Slug)
	fmt.Printf("  Schedule: %s\n", schedule.Describe(def.Schedule))
	fmt.Printf("  Created: %s\n", def.CreatedAt.Format("2006-01-02 15:04:05"))

	if next := schedule.NextDueTime(def, st.LatestJob(slug), time.Now()); next != nil {
		fmt.Printf("  Next due: %s\n", next.Format("2006-01-02 15:04"))
	}

	template, err := st.PromptTemplate(slug)
	if err == nil && template != "" {
		fmt.Printf("\nPrompt:\n%s\n", indent(template, "  "))
	}

	jobs := st.ListJobs(slug)
	if len(jobs) == 0 {
		fmt.Println("\nNo jobs yet.")
		return nil
	}

	fmt.Printf("\nRecent jobs:\n")
	limit := 10
	if len(jobs) < limit {
		limit = len(jobs)
	}
	for _, job := range jobs[:limit] {
		line := fmt.Sprintf("  %s  %-10s %s", job.ID, job.Status, job.CreatedAt.Format("2006-01-02 15:04"))
		if job.Terminal() {
			line += fmt.Sprintf("  (%s)", job.Duration().Round(time.Second))
		}
		if job.Error != "" {
			line += "  " + truncate(job.Error, 40)
		}
		fmt.Println(line)
	}
	return nil
}

func runEdit(cmd *cobra.Command, slug string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	def, err := st.GetSearch(slug)
	if err != nil {
		return err
	}

	changed := false
	if cmd.Flags().Changed("schedule") {
		spec, _ := cmd.Flags().GetString("schedule")
		if spec != "" {
			if _, err := schedule.Parse(spec); err != nil {
				return err
			}
		}
		def.Schedule = spec
		if err := st.UpdateSearch(def); err != nil {
			return fmt.Errorf("failed to update search: %w", err)
		}
		fmt.Printf("Schedule for %s is now: %s\n", slug, schedule.Describe(spec))
		changed = true
	}

	if cmd.Flags().Changed("prompt") || cmd.Flags().Changed("prompt-file") {
		prompt, _ := cmd.Flags().GetString("prompt")
		promptFile, _ := cmd.Flags().GetString("prompt-file")
		template, err := readPrompt(prompt, promptFile)
		if err != nil {
			return err
		}
		if err := st.WritePromptTemplate(slug, template); err != nil {
			return err
		}
		fmt.Printf("Prompt for %s updated\n", slug)
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to change (use --schedule, --prompt or --prompt-file)")
	}
	return nil
}

func runRm(slug string, force bool) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	def, err := st.GetSearch(slug)
	if err != nil {
		return err
	}

	for _, job := range st.ListJobs(slug) {
		if job.Status == store.JobStatusRunning {
			return fmt.Errorf("search %s has a running job (%s), cancel it first", slug, job.ID)
		}
	}

	if !force {
		jobCount := len(st.ListJobs(slug))
		fmt.Printf("Delete search %q and %d job(s)? [y/N] ", def.Name, jobCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.DeleteSearch(slug); err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	fmt.Printf("Deleted search %s\n", slug)
	return nil
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+prefix)
}

// humanAge renders a duration like "3h" or "2d" for table cells.
func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
