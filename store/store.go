// Package store persists searches, jobs and queue state as flat JSON
// files under a data directory. The files are the source of truth
// (prompt.md in particular is meant to be edited by hand) with an
// in-memory index rehydrated from disk to keep list operations cheap.
//
// Layout:
//
//	queue.json
//	searches/<slug>/config.json
//	searches/<slug>/prompt.md
//	searches/<slug>/jobs/<id>/meta.json
//	searches/<slug>/jobs/<id>/{prompt.txt,output.log,report.md,EXIT_CODE,DONE}
//
// Writes are whole-file overwrites. Reads tolerate missing or corrupt
// JSON by treating the record as absent; only operations that require
// the record to exist surface errors.ErrNotFound.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/scout/errors"
)

const (
	searchesDirName    = "searches"
	jobsDirName        = "jobs"
	queueFileName      = "queue.json"
	searchConfigName   = "config.json"
	promptTemplateName = "prompt.md"
	jobMetaName        = "meta.json"

	// JobPromptName is the resolved prompt written for a single run.
	JobPromptName = "prompt.txt"
	// JobLogName captures the combined output of the agent process.
	JobLogName = "output.log"
	// JobReportName is where the agent is asked to write its report.
	JobReportName = "report.md"
	// JobExitCodeName holds the numeric exit code of the agent process.
	JobExitCodeName = "EXIT_CODE"
	// JobDoneName is the completion marker touched by the run script.
	JobDoneName = "DONE"
)

// Store is the flat-file store rooted at a data directory.
type Store struct {
	root string

	mu       sync.RWMutex
	searches map[string]*SearchDefinition
	jobs     map[string]map[string]*JobRecord // slug -> job id -> record
}

// Open creates the data directory if needed and rehydrates the index
// from whatever is already on disk.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, searchesDirName), 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", root)
	}

	s := &Store{
		root:     root,
		searches: make(map[string]*SearchDefinition),
		jobs:     make(map[string]map[string]*JobRecord),
	}
	if err := s.Rehydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the data directory the store was opened on.
func (s *Store) Root() string {
	return s.root
}

// Rehydrate rebuilds the in-memory index from disk. Corrupt or missing
// files are skipped, never raised: a half-written meta.json must not
// break listing the rest of the store.
func (s *Store) Rehydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	searches := make(map[string]*SearchDefinition)
	jobs := make(map[string]map[string]*JobRecord)

	entries, err := os.ReadDir(filepath.Join(s.root, searchesDirName))
	if err != nil {
		if os.IsNotExist(err) {
			s.searches, s.jobs = searches, jobs
			return nil
		}
		return errors.Wrap(err, "failed to read searches directory")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		slug := entry.Name()

		var def SearchDefinition
		if !readJSON(s.searchConfigPath(slug), &def) {
			continue // not a search directory, or corrupt config
		}
		def.Slug = slug // directory name wins over whatever the file says
		searches[slug] = &def
		jobs[slug] = s.rehydrateJobs(slug)
	}

	s.searches, s.jobs = searches, jobs
	return nil
}

func (s *Store) rehydrateJobs(slug string) map[string]*JobRecord {
	records := make(map[string]*JobRecord)

	entries, err := os.ReadDir(filepath.Join(s.SearchDir(slug), jobsDirName))
	if err != nil {
		return records
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var job JobRecord
		if !readJSON(filepath.Join(s.JobDir(slug, entry.Name()), jobMetaName), &job) {
			continue
		}
		job.ID = entry.Name()
		job.SearchSlug = slug
		records[job.ID] = &job
	}
	return records
}

// --- searches ---

// CreateSearch saves a new search definition. The slug is derived from
// the name; collisions get a numeric suffix (my-search-2, my-search-3, ...).
func (s *Store) CreateSearch(name, promptTemplate, schedule string) (*SearchDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := Slugify(name)
	if base == "" {
		base = "search"
	}
	slug := base
	for i := 2; ; i++ {
		if _, exists := s.searches[slug]; !exists {
			break
		}
		slug = base + "-" + strconv.Itoa(i)
	}

	now := time.Now()
	def := &SearchDefinition{
		Slug:      slug,
		Name:      name,
		Schedule:  schedule,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := os.MkdirAll(s.SearchDir(slug), 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create search directory for %s", slug)
	}
	if err := writeJSON(s.searchConfigPath(slug), def); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.promptTemplatePath(slug), []byte(promptTemplate), 0644); err != nil {
		return nil, errors.Wrapf(err, "failed to write prompt template for %s", slug)
	}

	s.searches[slug] = def
	s.jobs[slug] = make(map[string]*JobRecord)
	return def, nil
}

// GetSearch returns the search with the given slug.
func (s *Store) GetSearch(slug string) (*SearchDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.searches[slug]
	if !ok {
		return nil, errors.NewNotFoundError("search %q", slug)
	}
	copied := *def
	return &copied, nil
}

// ListSearches returns all searches, newest first.
func (s *Store) ListSearches() []*SearchDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*SearchDefinition, 0, len(s.searches))
	for _, def := range s.searches {
		copied := *def
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// UpdateSearch rewrites the search metadata, bumping UpdatedAt.
func (s *Store) UpdateSearch(def *SearchDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.searches[def.Slug]; !ok {
		return errors.NewNotFoundError("search %q", def.Slug)
	}

	def.UpdatedAt = time.Now()
	if err := writeJSON(s.searchConfigPath(def.Slug), def); err != nil {
		return err
	}
	copied := *def
	s.searches[def.Slug] = &copied
	return nil
}

// DeleteSearch removes a search and its entire job history.
func (s *Store) DeleteSearch(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.searches[slug]; !ok {
		return errors.NewNotFoundError("search %q", slug)
	}
	if err := os.RemoveAll(s.SearchDir(slug)); err != nil {
		return errors.Wrapf(err, "failed to delete search %q", slug)
	}
	delete(s.searches, slug)
	delete(s.jobs, slug)
	return nil
}

// PromptTemplate reads the raw prompt template for a search.
func (s *Store) PromptTemplate(slug string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.searches[slug]; !ok {
		return "", errors.NewNotFoundError("search %q", slug)
	}
	content, err := os.ReadFile(s.promptTemplatePath(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to read prompt template for %q", slug)
	}
	return string(content), nil
}

// WritePromptTemplate replaces the prompt template for a search.
func (s *Store) WritePromptTemplate(slug, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.searches[slug]; !ok {
		return errors.NewNotFoundError("search %q", slug)
	}
	if err := os.WriteFile(s.promptTemplatePath(slug), []byte(template), 0644); err != nil {
		return errors.Wrapf(err, "failed to write prompt template for %q", slug)
	}
	return nil
}

// --- jobs ---

// CreateJob creates a new job for the search in the queued state.
func (s *Store) CreateJob(slug string) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.searches[slug]; !ok {
		return nil, errors.NewNotFoundError("search %q", slug)
	}

	job := &JobRecord{
		ID:         newJobID(),
		SearchSlug: slug,
		Status:     JobStatusQueued,
		CreatedAt:  time.Now(),
	}

	if err := os.MkdirAll(s.JobDir(slug, job.ID), 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create job directory for %s/%s", slug, job.ID)
	}
	if err := writeJSON(s.jobMetaPath(slug, job.ID), job); err != nil {
		return nil, err
	}

	if s.jobs[slug] == nil {
		s.jobs[slug] = make(map[string]*JobRecord)
	}
	copied := *job
	s.jobs[slug][job.ID] = &copied
	return job, nil
}

// GetJob returns the job with the given id under the given search.
func (s *Store) GetJob(slug, id string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[slug][id]
	if !ok {
		return nil, errors.NewNotFoundError("job %s/%s", slug, id)
	}
	copied := *job
	return &copied, nil
}

// UpdateJob rewrites the job metadata on disk.
func (s *Store) UpdateJob(job *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.SearchSlug][job.ID]; !ok {
		return errors.NewNotFoundError("job %s/%s", job.SearchSlug, job.ID)
	}
	if err := writeJSON(s.jobMetaPath(job.SearchSlug, job.ID), job); err != nil {
		return err
	}
	copied := *job
	s.jobs[job.SearchSlug][job.ID] = &copied
	return nil
}

// ListJobs returns all jobs of a search, newest first.
func (s *Store) ListJobs(slug string) []*JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortJobs(s.jobs[slug])
}

// ListAllJobs returns every job across all searches, newest first.
func (s *Store) ListAllJobs() []*JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]*JobRecord)
	for slug, records := range s.jobs {
		for id, job := range records {
			merged[slug+"/"+id] = job
		}
	}
	return sortJobs(merged)
}

// LatestJob returns the most recently created job of a search, nil when
// the search has no jobs yet.
func (s *Store) LatestJob(slug string) *JobRecord {
	jobs := s.ListJobs(slug)
	if len(jobs) == 0 {
		return nil
	}
	return jobs[0]
}

// ListRunningJobs returns every job currently marked running, across all
// searches. Used by orphan reconciliation at startup.
func (s *Store) ListRunningJobs() []*JobRecord {
	var running []*JobRecord
	for _, job := range s.ListAllJobs() {
		if job.Status == JobStatusRunning {
			running = append(running, job)
		}
	}
	return running
}

func sortJobs(records map[string]*JobRecord) []*JobRecord {
	out := make([]*JobRecord, 0, len(records))
	for _, job := range records {
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- queue state ---

// LoadQueueState reads queue.json. A missing or corrupt file yields an
// empty state rather than an error.
func (s *Store) LoadQueueState() *QueueState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var qs QueueState
	if !readJSON(filepath.Join(s.root, queueFileName), &qs) {
		return &QueueState{}
	}
	return &qs
}

// SaveQueueState overwrites queue.json.
func (s *Store) SaveQueueState(qs *QueueState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.root, queueFileName), qs)
}

// --- paths ---

// SearchDir returns the directory holding a search's files.
func (s *Store) SearchDir(slug string) string {
	return filepath.Join(s.root, searchesDirName, slug)
}

// JobDir returns the directory holding one job's files.
func (s *Store) JobDir(slug, id string) string {
	return filepath.Join(s.SearchDir(slug), jobsDirName, id)
}

// JobLogPath returns the captured output log path for a job.
func (s *Store) JobLogPath(slug, id string) string {
	return filepath.Join(s.JobDir(slug, id), JobLogName)
}

// JobReportPath returns the report path substituted for {{reportPath}}.
func (s *Store) JobReportPath(slug, id string) string {
	return filepath.Join(s.JobDir(slug, id), JobReportName)
}

// JobExitCodePath returns the exit-code marker path for a job.
func (s *Store) JobExitCodePath(slug, id string) string {
	return filepath.Join(s.JobDir(slug, id), JobExitCodeName)
}

// JobDonePath returns the completion marker path for a job.
func (s *Store) JobDonePath(slug, id string) string {
	return filepath.Join(s.JobDir(slug, id), JobDoneName)
}

func (s *Store) searchConfigPath(slug string) string {
	return filepath.Join(s.SearchDir(slug), searchConfigName)
}

func (s *Store) promptTemplatePath(slug string) string {
	return filepath.Join(s.SearchDir(slug), promptTemplateName)
}

func (s *Store) jobMetaPath(slug, id string) string {
	return filepath.Join(s.JobDir(slug, id), jobMetaName)
}

// --- helpers ---

// newJobID returns a short random identifier, unique enough within a
// single search's job list.
func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func writeJSON(path string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", path)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// readJSON reads and unmarshals a JSON file, reporting false for any
// missing or corrupt file.
func readJSON(path string, v interface{}) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(content, v) == nil
}
