package store

// QueueEntry identifies a job waiting for the run slot.
type QueueEntry struct {
	SearchSlug string `json:"search_slug"`
	JobID      string `json:"job_id"`
}

// QueueState is the process-wide singleton tracking run-slot concurrency.
// CurrentJobID is set if and only if some JobRecord is running; after a
// crash that invariant can be violated on disk and is reconciled by the
// runner's orphan sync at startup.
type QueueState struct {
	CurrentJobID string       `json:"current_job_id,omitempty"`
	Queue        []QueueEntry `json:"queue"`
}

// Push appends an entry to the back of the wait queue.
func (q *QueueState) Push(slug, jobID string) {
	q.Queue = append(q.Queue, QueueEntry{SearchSlug: slug, JobID: jobID})
}

// Pop removes and returns the oldest queued entry, FIFO.
func (q *QueueState) Pop() (QueueEntry, bool) {
	if len(q.Queue) == 0 {
		return QueueEntry{}, false
	}
	entry := q.Queue[0]
	q.Queue = q.Queue[1:]
	return entry, true
}

// Remove deletes the entry for the given job id, returning true when an
// entry was removed.
func (q *QueueState) Remove(jobID string) bool {
	for i, entry := range q.Queue {
		if entry.JobID == jobID {
			q.Queue = append(q.Queue[:i], q.Queue[i+1:]...)
			return true
		}
	}
	return false
}
