package runner

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/scout/store"
)

// SystemMetrics is a point-in-time snapshot of orchestrator load and
// host memory, surfaced by the daemon status output.
type SystemMetrics struct {
	RunningJobs int `json:"running_jobs"`
	QueuedJobs  int `json:"queued_jobs"`

	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
}

// SystemMetrics gathers current job counts and host memory usage.
// Memory stats are best effort and read as zero when unavailable.
func (r *Runner) SystemMetrics() SystemMetrics {
	metrics := SystemMetrics{}

	qs := r.store.LoadQueueState()
	if qs.CurrentJobID != "" {
		metrics.RunningJobs = 1
	}
	for _, entry := range qs.Queue {
		job, err := r.store.GetJob(entry.SearchSlug, entry.JobID)
		if err != nil || job.Status != store.JobStatusQueued {
			continue
		}
		metrics.QueuedJobs++
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		const gb = 1024 * 1024 * 1024
		metrics.MemoryUsedGB = float64(vm.Used) / gb
		metrics.MemoryTotalGB = float64(vm.Total) / gb
		metrics.MemoryPercent = vm.UsedPercent
	} else {
		r.logger.Debugw("Failed to read memory stats", "error", err)
	}

	return metrics
}
