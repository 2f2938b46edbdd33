// Package runner orchestrates the job lifecycle:
// create → queue-or-run → watch → finalize → drain queue.
//
// A single run slot is enforced through the persisted QueueState: at
// most one job is running at any instant, everything else waits in FIFO
// order. Execution happens in external detached sessions, so the
// runner's role is supervisory: spawn, watch for the completion
// marker, finalize from the exit-code marker, hand the slot to the next
// queued job.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/scout/config"
	"github.com/teranos/scout/errors"
	"github.com/teranos/scout/store"
	"github.com/teranos/scout/tmux"
)

// SessionManager is the detached-session primitive the runner drives.
// Implemented by *tmux.Client; tests substitute a fake.
type SessionManager interface {
	EnsureAvailable() error
	SessionName(slug, jobID string) string
	SessionExists(name string) bool
	NewSession(name, script string) error
	KillSession(name string) error
}

// CompletionCallback is invoked after a job reaches a terminal state
// through the watch path.
type CompletionCallback func(*store.JobRecord)

// writePromptFile is replaced in tests to simulate disk failure.
var writePromptFile = os.WriteFile

// Runner owns the run slot, the wait queue and the per-job watchers.
// Callers inject it rather than relying on process-wide state.
type Runner struct {
	store    *store.Store
	sessions SessionManager
	cfg      *config.Config
	logger   *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	watchers   map[string]context.CancelFunc // job id -> watcher cancel
	onComplete CompletionCallback
}

// New creates a runner. The parent context bounds all watcher
// goroutines; cancelling it (or calling Stop) stops watching without
// touching the external sessions.
func New(ctx context.Context, st *store.Store, sessions SessionManager, cfg *config.Config, logger *zap.SugaredLogger) *Runner {
	runnerCtx, cancel := context.WithCancel(ctx)
	return &Runner{
		store:    st,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		ctx:      runnerCtx,
		cancel:   cancel,
		watchers: make(map[string]context.CancelFunc),
	}
}

// OnComplete registers a callback fired after each natural finalize.
func (r *Runner) OnComplete(fn CompletionCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Stop cancels all watchers and waits for them to exit. External
// sessions keep running; they are reconciled by SyncOrphans on the next
// startup.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

// CurrentJobID returns the id of the job holding the run slot, empty
// when the slot is free.
func (r *Runner) CurrentJobID() string {
	return r.store.LoadQueueState().CurrentJobID
}

// StartJob creates a job for the search and either runs it immediately
// or enqueues it behind the job holding the run slot. Never blocks
// waiting for execution: the returned record's status says whether the
// job is running or queued.
//
// promptOverride, when non-empty, replaces the search's stored prompt
// template for this run only.
func (r *Runner) StartJob(slug, promptOverride string) (*store.JobRecord, error) {
	if _, err := r.store.GetSearch(slug); err != nil {
		return nil, err
	}

	template := promptOverride
	if template == "" {
		var err error
		template, err = r.store.PromptTemplate(slug)
		if err != nil {
			return nil, err
		}
	}

	job, err := r.store.CreateJob(slug)
	if err != nil {
		return nil, err
	}

	prompt := r.resolvePrompt(template, slug, job.ID)
	promptPath := filepath.Join(r.store.JobDir(slug, job.ID), store.JobPromptName)
	if err := writePromptFile(promptPath, []byte(prompt), 0644); err != nil {
		// Fail the record rather than stranding it queued; it was
		// never pushed onto the queue, so nothing else would ever
		// revisit it.
		job.Fail(fmt.Sprintf("failed to write resolved prompt: %v", err))
		if uerr := r.store.UpdateJob(job); uerr != nil {
			r.logger.Errorw("Failed to record prompt write failure",
				"search", slug, "job_id", job.ID, "error", uerr)
		}
		return nil, errors.Wrapf(err, "failed to write resolved prompt for %s/%s", slug, job.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	qs := r.store.LoadQueueState()
	if qs.CurrentJobID != "" {
		// Backpressure: the slot is taken, wait in line
		qs.Push(slug, job.ID)
		if err := r.store.SaveQueueState(qs); err != nil {
			return nil, err
		}
		r.logger.Infow("Job queued behind running job",
			"search", slug,
			"job_id", job.ID,
			"ahead", qs.CurrentJobID,
			"queue_len", len(qs.Queue))
		return job, nil
	}

	if err := r.launchLocked(qs, job, prompt); err != nil {
		return job, err
	}
	return r.store.GetJob(slug, job.ID)
}

// launchLocked claims the run slot and spawns the session for a queued
// job. Caller holds r.mu. On spawn failure the job is marked failed,
// the slot is released and the error is returned synchronously.
func (r *Runner) launchLocked(qs *store.QueueState, job *store.JobRecord, prompt string) error {
	if err := r.sessions.EnsureAvailable(); err != nil {
		return r.failLaunchLocked(qs, job, err)
	}
	if err := r.ensureAgentAvailable(); err != nil {
		return r.failLaunchLocked(qs, job, err)
	}

	name := r.sessions.SessionName(job.SearchSlug, job.ID)
	argv := tmux.AgentCommand(r.cfg.Agent.Bin, r.cfg.Agent.Name, prompt)
	script := tmux.RunScript(argv,
		r.store.JobLogPath(job.SearchSlug, job.ID),
		r.store.JobExitCodePath(job.SearchSlug, job.ID),
		r.store.JobDonePath(job.SearchSlug, job.ID),
	)

	qs.CurrentJobID = job.ID
	if err := r.store.SaveQueueState(qs); err != nil {
		return err
	}

	job.Start(name)
	if err := r.store.UpdateJob(job); err != nil {
		return err
	}

	if err := r.sessions.NewSession(name, script); err != nil {
		return r.failLaunchLocked(qs, job, err)
	}

	r.logger.Infow("Job started",
		"search", job.SearchSlug,
		"job_id", job.ID,
		"session", name)

	r.watchLocked(job)
	return nil
}

// failLaunchLocked records a spawn failure and frees the run slot.
func (r *Runner) failLaunchLocked(qs *store.QueueState, job *store.JobRecord, cause error) error {
	job.Fail(cause.Error())
	if err := r.store.UpdateJob(job); err != nil {
		r.logger.Errorw("Failed to record launch failure", "job_id", job.ID, "error", err)
	}
	if qs.CurrentJobID == job.ID {
		qs.CurrentJobID = ""
		if err := r.store.SaveQueueState(qs); err != nil {
			r.logger.Errorw("Failed to release run slot", "job_id", job.ID, "error", err)
		}
	}
	r.logger.Errorw("Job launch failed",
		"search", job.SearchSlug,
		"job_id", job.ID,
		"error", cause)
	return cause
}

// ensureAgentAvailable checks the agent binary once per launch. Like
// the multiplexer check this is a fatal precondition, not a retryable
// failure.
func (r *Runner) ensureAgentAvailable() error {
	bin := r.cfg.Agent.Bin
	if strings.ContainsRune(bin, os.PathSeparator) {
		if _, err := os.Stat(bin); err != nil {
			return errors.Wrapf(errors.ErrPreconditionFailed, "agent binary %s not found", bin)
		}
		return nil
	}
	if _, err := exec.LookPath(bin); err != nil {
		return errors.Wrapf(errors.ErrPreconditionFailed, "agent binary %s not found in PATH", bin)
	}
	return nil
}

// CancelJob cancels a queued or running job. Cancelling a job that is
// already terminal returns errors.ErrJobNotActive.
//
// Cancelling a running job frees the run slot but deliberately does NOT
// drain the queue; only natural completion does. A user cancelling a
// job usually wants the machine quiet, not the next job launched.
func (r *Runner) CancelJob(slug, id string) (*store.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.store.GetJob(slug, id)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case store.JobStatusQueued:
		qs := r.store.LoadQueueState()
		qs.Remove(id)
		if err := r.store.SaveQueueState(qs); err != nil {
			return nil, err
		}

	case store.JobStatusRunning:
		// Cancel the watcher first so a late completion marker cannot
		// overwrite the cancelled record
		if cancelWatch, ok := r.watchers[id]; ok {
			cancelWatch()
			delete(r.watchers, id)
		}
		if job.SessionHandle != "" {
			if err := r.sessions.KillSession(job.SessionHandle); err != nil {
				r.logger.Warnw("Failed to kill session on cancel",
					"job_id", id,
					"session", job.SessionHandle,
					"error", err)
			}
		}
		qs := r.store.LoadQueueState()
		if qs.CurrentJobID == id {
			qs.CurrentJobID = ""
			if err := r.store.SaveQueueState(qs); err != nil {
				return nil, err
			}
		}

	default:
		return nil, errors.Wrapf(errors.ErrJobNotActive, "job %s/%s is %s", slug, id, job.Status)
	}

	job.Cancel("cancelled by user")
	if err := r.store.UpdateJob(job); err != nil {
		return nil, err
	}

	r.logger.Infow("Job cancelled", "search", slug, "job_id", id)
	return job, nil
}

// resolvePrompt substitutes the recognized template variables. Literal
// string substitution, no escaping or recursion.
func (r *Runner) resolvePrompt(template, slug, jobID string) string {
	replacer := strings.NewReplacer(
		"{{reportPath}}", r.store.JobReportPath(slug, jobID),
		"{{searchSlug}}", slug,
		"{{jobId}}", jobID,
	)
	return replacer.Replace(template)
}

// drainLocked pops the oldest queued entry and starts it, preserving
// FIFO order. Entries whose job vanished or left the queued state are
// skipped. Caller holds r.mu.
func (r *Runner) drainLocked() {
	for {
		qs := r.store.LoadQueueState()
		if qs.CurrentJobID != "" {
			return
		}
		entry, ok := qs.Pop()
		if !ok {
			return
		}
		if err := r.store.SaveQueueState(qs); err != nil {
			r.logger.Errorw("Failed to persist queue after pop", "error", err)
			return
		}

		job, err := r.store.GetJob(entry.SearchSlug, entry.JobID)
		if err != nil || job.Status != store.JobStatusQueued {
			continue
		}

		prompt, err := r.resolvedPrompt(entry.SearchSlug, entry.JobID)
		if err != nil {
			r.logger.Errorw("Failed to read resolved prompt for queued job",
				"job_id", entry.JobID,
				"error", err)
			job.Fail("resolved prompt missing: " + err.Error())
			if updateErr := r.store.UpdateJob(job); updateErr != nil {
				r.logger.Errorw("Failed to fail queued job", "job_id", entry.JobID, "error", updateErr)
			}
			continue
		}

		if err := r.launchLocked(qs, job, prompt); err != nil {
			// Launch failure already marked the job failed and freed
			// the slot; keep draining so the queue cannot stall
			continue
		}
		return
	}
}

// resolvedPrompt reads back the prompt.txt written when the job was
// created.
func (r *Runner) resolvedPrompt(slug, id string) (string, error) {
	content, err := os.ReadFile(filepath.Join(r.store.JobDir(slug, id), store.JobPromptName))
	if err != nil {
		return "", err
	}
	return string(content), nil
}
