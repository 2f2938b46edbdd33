package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/teranos/scout/config"
	"github.com/teranos/scout/logger"
	"github.com/teranos/scout/runner"
	"github.com/teranos/scout/store"
	"github.com/teranos/scout/tmux"
)

// openStore loads config and opens the flat-file store.
func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, cfg, nil
}

// newRunner wires a runner over the store and the real tmux client.
func newRunner(ctx context.Context) (*runner.Runner, *store.Store, *config.Config, error) {
	st, cfg, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	sessions := tmux.NewClient(cfg.Tmux.Bin, cfg.Tmux.SessionPrefix)
	r := runner.New(ctx, st, sessions, cfg, logger.Logger)
	return r, st, cfg, nil
}

// resolveJob finds a job by id, searching across all searches when no
// slug is given. Unique id prefixes are accepted.
func resolveJob(st *store.Store, slug, id string) (*store.JobRecord, error) {
	var candidates []*store.JobRecord
	if slug != "" {
		if job, err := st.GetJob(slug, id); err == nil {
			return job, nil
		}
		for _, job := range st.ListJobs(slug) {
			if strings.HasPrefix(job.ID, id) {
				candidates = append(candidates, job)
			}
		}
	} else {
		for _, job := range st.ListAllJobs() {
			if job.ID == id {
				return job, nil
			}
			if strings.HasPrefix(job.ID, id) {
				candidates = append(candidates, job)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no job matching %q", id)
	case 1:
		return candidates[0], nil
	default:
		return nil, fmt.Errorf("job id %q is ambiguous (%d matches)", id, len(candidates))
	}
}

// truncate shortens a string for table display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
