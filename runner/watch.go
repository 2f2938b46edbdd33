package runner

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/scout/store"
)

// watchLocked spawns a watcher goroutine for a running job and records
// its cancel func. Caller holds r.mu.
func (r *Runner) watchLocked(job *store.JobRecord) {
	ctx, cancel := context.WithCancel(r.ctx)
	r.watchers[job.ID] = cancel
	r.wg.Add(1)
	go r.watch(ctx, job.SearchSlug, job.ID)
}

// watch waits for the job's completion marker. Primary signal is a
// filesystem event on the job directory; a poll ticker backstops it for
// filesystems where events are unreliable and catches sessions that die
// without writing markers. Cancellation stops the watcher cold, so a
// marker that lands after cancel never resurrects the record.
func (r *Runner) watch(ctx context.Context, slug, id string) {
	defer r.wg.Done()

	jobDir := r.store.JobDir(slug, id)
	donePath := r.store.JobDonePath(slug, id)

	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(jobDir); addErr == nil {
			events = watcher.Events
		} else {
			r.logger.Debugw("Falling back to poll-only watch", "job_id", id, "error", addErr)
		}
		defer watcher.Close()
	}

	ticker := time.NewTicker(r.cfg.Runner.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Name == donePath && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				r.finalize(ctx, slug, id)
				return
			}

		case <-ticker.C:
			if fileExists(donePath) {
				r.finalize(ctx, slug, id)
				return
			}
			job, err := r.store.GetJob(slug, id)
			if err != nil || job.Status != store.JobStatusRunning {
				// Record finalized or removed out from under us
				r.forgetWatcher(id)
				return
			}
			if timeout := r.cfg.Agent.Timeout(); timeout > 0 &&
				job.StartedAt != nil && time.Since(*job.StartedAt) > timeout {
				r.timeOutJob(job, timeout)
				return
			}
			if job.SessionHandle != "" && !r.sessions.SessionExists(job.SessionHandle) {
				// Session died without writing markers
				r.finalize(ctx, slug, id)
				return
			}
		}
	}
}

// finalize settles briefly so the exit-code write can land, then reads
// the markers, records the terminal state, releases the run slot and
// drains the queue.
func (r *Runner) finalize(ctx context.Context, slug, id string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.cfg.Runner.SettleDelay()):
	}

	r.mu.Lock()

	if ctx.Err() != nil {
		// Cancelled while settling
		r.mu.Unlock()
		return
	}
	delete(r.watchers, id)

	job, err := r.store.GetJob(slug, id)
	if err != nil {
		r.logger.Errorw("Job vanished before finalize", "search", slug, "job_id", id, "error", err)
		r.releaseSlotLocked(id)
		r.mu.Unlock()
		return
	}
	if job.Status != store.JobStatusRunning {
		r.mu.Unlock()
		return
	}

	r.finalizeFromMarkers(job)
	r.releaseSlotLocked(id)
	r.drainLocked()

	callback := r.onComplete
	r.mu.Unlock()

	// Invoked outside the lock so callbacks may call back into the
	// runner
	if callback != nil {
		callback(job)
	}
}

// finalizeFromMarkers moves a running job to completed or failed based
// on the EXIT_CODE marker and persists the record. Shared with the
// orphan sweep.
func (r *Runner) finalizeFromMarkers(job *store.JobRecord) {
	code, found := r.readExitCode(job.SearchSlug, job.ID)
	if found && code == 0 {
		job.Complete()
		r.logger.Infow("Job completed",
			"search", job.SearchSlug,
			"job_id", job.ID,
			"duration", job.Duration())
	} else {
		msg := r.extractError(job.SearchSlug, job.ID, code, found)
		job.Fail(msg)
		r.logger.Warnw("Job failed",
			"search", job.SearchSlug,
			"job_id", job.ID,
			"error", msg)
	}
	if err := r.store.UpdateJob(job); err != nil {
		r.logger.Errorw("Failed to persist terminal job state",
			"job_id", job.ID,
			"error", err)
	}
}

// timeOutJob kills the session of a job that exceeded the configured
// timeout and records the failure. The queue is drained like any other
// terminal outcome.
func (r *Runner) timeOutJob(job *store.JobRecord, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.watchers, job.ID)

	current, err := r.store.GetJob(job.SearchSlug, job.ID)
	if err != nil || current.Status != store.JobStatusRunning {
		return
	}

	if current.SessionHandle != "" {
		if err := r.sessions.KillSession(current.SessionHandle); err != nil {
			r.logger.Warnw("Failed to kill timed-out session",
				"job_id", current.ID,
				"session", current.SessionHandle,
				"error", err)
		}
	}

	current.Fail(fmt.Sprintf("timed out after %s", timeout))
	if err := r.store.UpdateJob(current); err != nil {
		r.logger.Errorw("Failed to persist timeout", "job_id", current.ID, "error", err)
	}
	r.logger.Warnw("Job timed out",
		"search", current.SearchSlug,
		"job_id", current.ID,
		"timeout", timeout)

	r.releaseSlotLocked(current.ID)
	r.drainLocked()
}

// releaseSlotLocked frees the run slot if this job holds it. Caller
// holds r.mu.
func (r *Runner) releaseSlotLocked(id string) {
	qs := r.store.LoadQueueState()
	if qs.CurrentJobID != id {
		return
	}
	qs.CurrentJobID = ""
	if err := r.store.SaveQueueState(qs); err != nil {
		r.logger.Errorw("Failed to release run slot", "job_id", id, "error", err)
	}
}

// forgetWatcher drops the cancel entry for a watcher that exited on its
// own.
func (r *Runner) forgetWatcher(id string) {
	r.mu.Lock()
	delete(r.watchers, id)
	r.mu.Unlock()
}

// readExitCode parses the EXIT_CODE marker. Returns found=false when
// the marker is missing or unparseable.
func (r *Runner) readExitCode(slug, id string) (int, bool) {
	content, err := os.ReadFile(r.store.JobExitCodePath(slug, id))
	if err != nil {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, false
	}
	return code, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
