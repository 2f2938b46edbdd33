package runner

import (
	"github.com/teranos/scout/store"
)

// SyncOrphans reconciles persisted state with reality after a restart.
//
// Jobs recorded as running fall into two camps: the session is still
// alive, in which case a watcher is re-armed so the job finalizes
// normally, or the session is gone, in which case the job is finalized
// immediately from whatever markers it left behind. The queue state is
// scrubbed of entries that no longer point at a queued job, and the
// queue is drained if the slot came free.
func (r *Runner) SyncOrphans() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range r.store.ListRunningJobs() {
		if _, armed := r.watchers[job.ID]; armed {
			continue
		}
		if job.SessionHandle != "" && r.sessions.SessionExists(job.SessionHandle) {
			r.logger.Infow("Re-attaching watcher to live session",
				"search", job.SearchSlug,
				"job_id", job.ID,
				"session", job.SessionHandle)
			r.watchLocked(job)
			continue
		}
		r.logger.Warnw("Recovering orphaned job",
			"search", job.SearchSlug,
			"job_id", job.ID,
			"session", job.SessionHandle)
		r.finalizeFromMarkers(job)
	}

	qs := r.store.LoadQueueState()
	changed := false

	if qs.CurrentJobID != "" {
		if !r.jobStillRunning(qs.CurrentJobID) {
			qs.CurrentJobID = ""
			changed = true
		}
	}

	kept := qs.Queue[:0]
	for _, entry := range qs.Queue {
		job, err := r.store.GetJob(entry.SearchSlug, entry.JobID)
		if err != nil || job.Status != store.JobStatusQueued {
			changed = true
			continue
		}
		kept = append(kept, entry)
	}
	qs.Queue = kept

	if changed {
		if err := r.store.SaveQueueState(qs); err != nil {
			return err
		}
	}

	r.drainLocked()
	return nil
}

// jobStillRunning reports whether the job id names a running job in any
// search.
func (r *Runner) jobStillRunning(id string) bool {
	for _, job := range r.store.ListRunningJobs() {
		if job.ID == id {
			return true
		}
	}
	return false
}
