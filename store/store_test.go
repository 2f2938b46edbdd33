package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scout/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateAndGetSearch(t *testing.T) {
	s := openTestStore(t)

	def, err := s.CreateSearch("Desk Research", "find {{searchSlug}} updates", "24h")
	require.NoError(t, err)
	assert.Equal(t, "desk-research", def.Slug)

	got, err := s.GetSearch("desk-research")
	require.NoError(t, err)
	assert.Equal(t, def.Slug, got.Slug)
	assert.Equal(t, def.Name, got.Name)
	assert.Equal(t, "24h", got.Schedule)

	tmpl, err := s.PromptTemplate("desk-research")
	require.NoError(t, err)
	assert.Equal(t, "find {{searchSlug}} updates", tmpl)
}

func TestGetSearchNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSearch("missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	s := openTestStore(t)

	first, err := s.CreateSearch("Desk", "p", "")
	require.NoError(t, err)
	second, err := s.CreateSearch("Desk", "p", "")
	require.NoError(t, err)
	third, err := s.CreateSearch("desk!!", "p", "")
	require.NoError(t, err)

	assert.Equal(t, "desk", first.Slug)
	assert.Equal(t, "desk-2", second.Slug)
	assert.Equal(t, "desk-3", third.Slug)
}

func TestListSearchesNewestFirst(t *testing.T) {
	s := openTestStore(t)

	older, err := s.CreateSearch("older", "p", "")
	require.NoError(t, err)
	// Force a distinct creation timestamp on disk
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	require.NoError(t, s.UpdateSearch(older))

	_, err = s.CreateSearch("newer", "p", "")
	require.NoError(t, err)

	list := s.ListSearches()
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Slug)
	assert.Equal(t, "older", list[1].Slug)
}

func TestSearchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	def, err := s.CreateSearch("Round Trip", "prompt body", "0 9 * * *")
	require.NoError(t, err)

	// Reopen the store so everything comes back from disk
	reopened, err := Open(s.Root())
	require.NoError(t, err)

	got, err := reopened.GetSearch(def.Slug)
	require.NoError(t, err)
	assert.Equal(t, def.Slug, got.Slug)
	assert.Equal(t, def.Name, got.Name)
	assert.Equal(t, def.Schedule, got.Schedule)
	assert.WithinDuration(t, def.CreatedAt, got.CreatedAt, time.Second)
}

func TestJobRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateSearch("desk", "p", "")
	require.NoError(t, err)
	job, err := s.CreateJob("desk")
	require.NoError(t, err)
	assert.Equal(t, JobStatusQueued, job.Status)

	job.Start("scout-desk-" + job.ID)
	require.NoError(t, s.UpdateJob(job))

	reopened, err := Open(s.Root())
	require.NoError(t, err)
	got, err := reopened.GetJob("desk", job.ID)
	require.NoError(t, err)

	assert.Equal(t, JobStatusRunning, got.Status)
	assert.Equal(t, "scout-desk-"+job.ID, got.SessionHandle)
	require.NotNil(t, got.StartedAt)
	assert.WithinDuration(t, *job.StartedAt, *got.StartedAt, time.Second)
}

func TestJobStateMachine(t *testing.T) {
	job := &JobRecord{ID: "abc12345", SearchSlug: "desk", Status: JobStatusQueued, CreatedAt: time.Now()}

	job.Start("scout-desk-abc12345")
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.False(t, job.Terminal())

	job.Complete()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.True(t, job.Terminal())
	assert.Empty(t, job.SessionHandle)
	require.NotNil(t, job.CompletedAt)
	assert.GreaterOrEqual(t, job.DurationMS, int64(0))
}

func TestJobFailCarriesError(t *testing.T) {
	job := &JobRecord{ID: "abc12345", Status: JobStatusQueued, CreatedAt: time.Now()}
	job.Start("s")
	job.Fail("exit code 2")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "exit code 2", job.Error)
}

func TestCreateJobRequiresSearch(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateJob("ghost")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDeleteSearchCascades(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateSearch("desk", "p", "")
	require.NoError(t, err)
	job, err := s.CreateJob("desk")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSearch("desk"))

	_, err = s.GetSearch("desk")
	assert.True(t, errors.IsNotFoundError(err))
	_, err = s.GetJob("desk", job.ID)
	assert.True(t, errors.IsNotFoundError(err))
	_, statErr := os.Stat(s.SearchDir("desk"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCorruptJobIsSkippedOnRehydrate(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateSearch("desk", "p", "")
	require.NoError(t, err)
	good, err := s.CreateJob("desk")
	require.NoError(t, err)
	bad, err := s.CreateJob("desk")
	require.NoError(t, err)

	// Simulate a partial write
	metaPath := filepath.Join(s.JobDir("desk", bad.ID), "meta.json")
	require.NoError(t, os.WriteFile(metaPath, []byte(`{"id": "trunc`), 0644))

	reopened, err := Open(s.Root())
	require.NoError(t, err)

	_, err = reopened.GetJob("desk", good.ID)
	assert.NoError(t, err)
	_, err = reopened.GetJob("desk", bad.ID)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestQueueStatePersistence(t *testing.T) {
	s := openTestStore(t)

	qs := s.LoadQueueState()
	assert.Empty(t, qs.CurrentJobID)
	assert.Empty(t, qs.Queue)

	qs.CurrentJobID = "abc12345"
	qs.Push("desk", "def67890")
	require.NoError(t, s.SaveQueueState(qs))

	loaded := s.LoadQueueState()
	assert.Equal(t, "abc12345", loaded.CurrentJobID)
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, QueueEntry{SearchSlug: "desk", JobID: "def67890"}, loaded.Queue[0])
}

func TestQueueStateFIFO(t *testing.T) {
	qs := &QueueState{}
	qs.Push("desk", "a")
	qs.Push("desk", "b")
	qs.Push("news", "c")

	assert.True(t, qs.Remove("b"))
	assert.False(t, qs.Remove("b"))

	first, ok := qs.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", first.JobID)
	second, ok := qs.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", second.JobID)
	_, ok = qs.Pop()
	assert.False(t, ok)
}

func TestLatestJob(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateSearch("desk", "p", "")
	require.NoError(t, err)
	assert.Nil(t, s.LatestJob("desk"))

	older, err := s.CreateJob("desk")
	require.NoError(t, err)
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	require.NoError(t, s.UpdateJob(older))

	newer, err := s.CreateJob("desk")
	require.NoError(t, err)

	latest := s.LatestJob("desk")
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
}

func TestListRunningJobs(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateSearch("desk", "p", "")
	require.NoError(t, err)
	running, err := s.CreateJob("desk")
	require.NoError(t, err)
	running.Start("scout-desk-" + running.ID)
	require.NoError(t, s.UpdateJob(running))

	done, err := s.CreateJob("desk")
	require.NoError(t, err)
	done.Start("scout-desk-" + done.ID)
	done.Complete()
	require.NoError(t, s.UpdateJob(done))

	got := s.ListRunningJobs()
	require.Len(t, got, 1)
	assert.Equal(t, running.ID, got[0].ID)
}
