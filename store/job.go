package store

import "time"

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValidStatus returns true if the status string is a valid JobStatus
func IsValidStatus(s string) bool {
	switch JobStatus(s) {
	case JobStatusQueued, JobStatusRunning,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobRecord is one execution attempt of a SearchDefinition.
//
// The state machine is strict: queued → running → {completed|failed},
// with cancelled reachable from queued or running. Records never
// transition out of a terminal state. At most one record across the
// whole store has status running at any time; that invariant is held by
// the QueueState singleton, not by the record.
type JobRecord struct {
	ID            string     `json:"id"`
	SearchSlug    string     `json:"search_slug"`
	Status        JobStatus  `json:"status"`
	SessionHandle string     `json:"session_handle,omitempty"` // tmux session name, present only while running
	Error         string     `json:"error,omitempty"`
	DurationMS    int64      `json:"duration_ms,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Start marks the job as running in the given session
func (j *JobRecord) Start(sessionHandle string) {
	now := time.Now()
	j.Status = JobStatusRunning
	j.SessionHandle = sessionHandle
	j.StartedAt = &now
}

// Complete marks the job as completed
func (j *JobRecord) Complete() {
	j.finish(JobStatusCompleted, "")
}

// Fail marks the job as failed with an error message
func (j *JobRecord) Fail(errMsg string) {
	j.finish(JobStatusFailed, errMsg)
}

// Cancel marks the job as cancelled with a reason
func (j *JobRecord) Cancel(reason string) {
	j.finish(JobStatusCancelled, reason)
}

func (j *JobRecord) finish(status JobStatus, errMsg string) {
	now := time.Now()
	j.Status = status
	j.Error = errMsg
	j.CompletedAt = &now
	j.SessionHandle = ""
	if j.StartedAt != nil {
		j.DurationMS = now.Sub(*j.StartedAt).Milliseconds()
	}
}

// Terminal reports whether the job has reached a terminal state.
func (j *JobRecord) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Duration returns the job duration, zero when not yet finished.
func (j *JobRecord) Duration() time.Duration {
	return time.Duration(j.DurationMS) * time.Millisecond
}
