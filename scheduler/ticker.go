// Package scheduler drives scheduled searches. A background ticker
// wakes on a fixed cadence, evaluates every schedule-bearing search and
// starts the first one that is due. Single-concurrency is inherited
// from the runner: while a job holds the run slot, evaluation is
// skipped entirely and overdue searches catch up on a later tick.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/scout/schedule"
	"github.com/teranos/scout/store"
)

// JobStarter is the slice of the runner the ticker needs. Tests
// substitute a fake.
type JobStarter interface {
	StartJob(slug, promptOverride string) (*store.JobRecord, error)
	CurrentJobID() string
}

// Stats is a snapshot of ticker activity.
type Stats struct {
	Running       bool       `json:"running"`
	Ticks         int64      `json:"ticks"`
	JobsStarted   int64      `json:"jobs_started"`
	LastTick      time.Time  `json:"last_tick"`
	NextDue       *time.Time `json:"next_due,omitempty"`
	NextDueSearch string     `json:"next_due_search,omitempty"`
}

// Ticker periodically evaluates search schedules and launches due jobs
// through the runner.
type Ticker struct {
	store    *store.Store
	starter  JobStarter
	interval time.Duration
	logger   *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	running     bool
	stats       Stats
	lastNextDue string // last logged next-due line, logged only on change
}

// New creates a stopped ticker.
func New(st *store.Store, starter JobStarter, interval time.Duration, logger *zap.SugaredLogger) *Ticker {
	return &Ticker{
		store:    st,
		starter:  starter,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background loop. The first evaluation happens
// immediately, then once per interval. Start on a running ticker is a
// no-op.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stats.Running = true
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.logger.Infow("Scheduler started", "interval", t.interval)

	t.wg.Add(1)
	go t.loop(loopCtx)
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.stats.Running = false
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
	t.logger.Infow("Scheduler stopped")
}

// GetStats returns a copy of the current ticker statistics.
func (t *Ticker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Ticker) loop(ctx context.Context) {
	defer t.wg.Done()

	t.Tick()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick runs one evaluation pass. Exported so the daemon can trigger an
// immediate pass after state changes.
func (t *Ticker) Tick() {
	now := time.Now()

	t.mu.Lock()
	t.stats.Ticks++
	t.stats.LastTick = now
	t.mu.Unlock()

	if current := t.starter.CurrentJobID(); current != "" {
		t.logger.Debugw("Skipping schedule evaluation, run slot busy", "job_id", current)
		return
	}

	var started bool
	for _, def := range t.store.ListSearches() {
		if !def.Scheduled() {
			continue
		}
		last := t.store.LatestJob(def.Slug)
		if !schedule.IsDue(def, last, now) {
			continue
		}

		t.logger.Infow("Schedule due, starting job",
			"search", def.Slug,
			"schedule", def.Schedule)
		job, err := t.starter.StartJob(def.Slug, "")
		if err != nil {
			t.logger.Errorw("Scheduled job failed to start",
				"search", def.Slug,
				"error", err)
		} else {
			t.mu.Lock()
			t.stats.JobsStarted++
			t.mu.Unlock()
			t.logger.Infow("Scheduled job started",
				"search", def.Slug,
				"job_id", job.ID,
				"status", job.Status)
		}
		// One launch per tick keeps the slot accounting simple; any
		// other due search fires on the next pass
		started = true
		break
	}

	t.updateNextDue(now, started)
}

// updateNextDue recomputes the earliest upcoming activation across all
// scheduled searches and logs it when it changes or right after a
// launch.
func (t *Ticker) updateNextDue(now time.Time, launched bool) {
	var soonest *time.Time
	var soonestSlug string
	for _, def := range t.store.ListSearches() {
		if !def.Scheduled() {
			continue
		}
		next := schedule.NextDueTime(def, t.store.LatestJob(def.Slug), now)
		if next == nil {
			continue
		}
		if soonest == nil || next.Before(*soonest) {
			soonest = next
			soonestSlug = def.Slug
		}
	}

	t.mu.Lock()
	t.stats.NextDue = soonest
	t.stats.NextDueSearch = soonestSlug

	line := ""
	if soonest != nil {
		line = soonestSlug + "@" + soonest.Format(time.RFC3339)
	}
	changed := line != t.lastNextDue
	t.lastNextDue = line
	t.mu.Unlock()

	if soonest != nil && (changed || launched) {
		t.logger.Infow("Next scheduled run",
			"search", soonestSlug,
			"at", soonest.Format(time.RFC3339))
	}
}
