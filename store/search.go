package store

import "time"

// SearchDefinition is a saved, reusable prompt-job template with an
// optional recurring schedule. The prompt template itself lives next to
// the metadata in prompt.md so it stays human-editable.
type SearchDefinition struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule,omitempty"` // "30m"/"1h"/"24h" or 5-field cron; empty = manual only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scheduled reports whether the search has a recurring schedule.
func (s *SearchDefinition) Scheduled() bool {
	return s.Schedule != ""
}
