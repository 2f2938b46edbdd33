package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scout/errors"
	"github.com/teranos/scout/store"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		spec string
		want time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
	}
	for _, tt := range tests {
		sched, err := Parse(tt.spec)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, KindInterval, sched.Kind, tt.spec)
		assert.Equal(t, tt.want, sched.Every, tt.spec)
	}
}

func TestParseCron(t *testing.T) {
	sched, err := Parse("0 9 * * *")
	require.NoError(t, err)
	assert.Equal(t, KindCron, sched.Kind)

	// minute, hour, range, list, step all accepted
	for _, spec := range []string{"*/5 * * * *", "0 9-17 * * 1-5", "0 0 1,15 * *", "30 8 * * 0"} {
		_, err := Parse(spec)
		assert.NoError(t, err, spec)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, spec := range []string{"", "banana", "0m", "5s", "* * * *", "@daily", "0 9 * * * *"} {
		_, err := Parse(spec)
		assert.True(t, errors.Is(err, errors.ErrInvalidSchedule), spec)
	}
}

func search(spec string) *store.SearchDefinition {
	return &store.SearchDefinition{Slug: "desk", Name: "desk", Schedule: spec}
}

func jobCreatedAt(created time.Time) *store.JobRecord {
	return &store.JobRecord{ID: "abc12345", SearchSlug: "desk", Status: store.JobStatusCompleted, CreatedAt: created}
}

func TestIntervalDueBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	def := search("1h")

	assert.False(t, IsDue(def, jobCreatedAt(now.Add(-59*time.Minute)), now))
	assert.True(t, IsDue(def, jobCreatedAt(now.Add(-60*time.Minute)), now))
	assert.True(t, IsDue(def, jobCreatedAt(now.Add(-2*time.Hour)), now))
}

func TestIntervalDueWithNoPriorJob(t *testing.T) {
	now := time.Now()
	assert.True(t, IsDue(search("24h"), nil, now))
}

func TestCronCatchUpFiresOnce(t *testing.T) {
	// Cron "0 9 * * *", last run at 09:00 two days ago, process down
	// through this morning's slot; now 11:00 today.
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	lastRun := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	def := search("0 9 * * *")

	assert.True(t, IsDue(def, jobCreatedAt(lastRun), now))

	// After the catch-up run is recorded, the schedule is quiet until
	// tomorrow 09:00, one run total rather than one per missed day.
	assert.False(t, IsDue(def, jobCreatedAt(now), now))
}

func TestCronNotDueBeforeSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	lastRun := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	assert.False(t, IsDue(search("0 9 * * *"), jobCreatedAt(lastRun), now))
}

func TestCronDueWithNoPriorJobUsesStartOfToday(t *testing.T) {
	def := search("0 9 * * *")

	// 11:00: today's 09:00 slot has passed since start-of-day
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	assert.True(t, IsDue(def, nil, now))

	// 08:00: the slot hasn't arrived yet
	early := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.False(t, IsDue(def, nil, early))
}

func TestCronMidnightSlotDueWithNoPriorJob(t *testing.T) {
	def := search("0 0 * * *")

	// The activation coincides with start-of-today. With no prior job
	// the slot counts, both exactly at midnight and later that day.
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsDue(def, nil, midnight))
	assert.True(t, IsDue(def, nil, midnight.Add(30*time.Minute)))

	// Once today's run is recorded, quiet until tomorrow.
	assert.False(t, IsDue(def, jobCreatedAt(midnight), midnight.Add(30*time.Minute)))

	next := NextDueTime(def, nil, midnight.Add(30*time.Minute))
	require.NotNil(t, next)
	assert.Equal(t, midnight, *next)
}

func TestInvalidScheduleNeverDue(t *testing.T) {
	now := time.Now()
	assert.False(t, IsDue(search("definitely not a schedule"), nil, now))
	assert.False(t, IsDue(search(""), nil, now))
}

func TestNextDueTimeInterval(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lastRun := now.Add(-20 * time.Minute)

	next := NextDueTime(search("30m"), jobCreatedAt(lastRun), now)
	require.NotNil(t, next)
	assert.Equal(t, lastRun.Add(30*time.Minute), *next)

	// No prior job: due immediately
	next = NextDueTime(search("30m"), nil, now)
	require.NotNil(t, next)
	assert.Equal(t, now, *next)
}

func TestNextDueTimeCron(t *testing.T) {
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	lastRun := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	next := NextDueTime(search("0 9 * * *"), jobCreatedAt(lastRun), now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextDueTimeInvalid(t *testing.T) {
	assert.Nil(t, NextDueTime(search("nope"), nil, time.Now()))
	assert.Nil(t, NextDueTime(search(""), nil, time.Now()))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"", "manual"},
		{"30m", "every 30 minutes"},
		{"1h", "hourly"},
		{"24h", "daily"},
		{"6h", "every 6 hours"},
		{"0 9 * * *", "daily at 09:00"},
		{"30 18 * * *", "daily at 18:30"},
		{"0 9 * * 1-5", "weekdays at 09:00"},
		{"0 * * * *", "hourly"},
		{"*/15 * * * *", "every 15 minutes"},
		{"0 0 1 * *", "0 0 1 * *"}, // no label, echoed back
		{"gibberish", "gibberish"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.spec), tt.spec)
	}
}
