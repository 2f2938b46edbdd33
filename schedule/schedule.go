// Package schedule evaluates search schedules: simple intervals ("30m",
// "1h", "24h") or 5-field cron expressions (minute, hour, day-of-month,
// month, day-of-week; 0=Sunday).
//
// Evaluation is pure and side-effect free. A schedule string that parses
// as neither grammar is treated as "never due"; the search degrades to
// manual-only instead of breaking the scheduler loop.
package schedule

import (
	"regexp"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teranos/scout/errors"
)

// Kind distinguishes the two schedule grammars.
type Kind int

const (
	KindInterval Kind = iota
	KindCron
)

var intervalRe = regexp.MustCompile(`^(\d+)(m|h)$`)

// cronParser accepts the classic 5-field grammar only: no seconds field,
// no @daily descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is a parsed schedule specification.
type Schedule struct {
	Kind  Kind
	Every time.Duration // interval schedules only

	cronSched cron.Schedule // cron schedules only
	raw       string
}

// Parse parses a schedule specification string.
func Parse(spec string) (*Schedule, error) {
	if spec == "" {
		return nil, errors.Wrap(errors.ErrInvalidSchedule, "empty schedule")
	}

	if m := intervalRe.FindStringSubmatch(spec); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return nil, errors.Wrapf(errors.ErrInvalidSchedule, "interval %q", spec)
		}
		unit := time.Minute
		if m[2] == "h" {
			unit = time.Hour
		}
		return &Schedule{Kind: KindInterval, Every: time.Duration(n) * unit, raw: spec}, nil
	}

	cronSched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidSchedule, "%q: %v", spec, err)
	}
	return &Schedule{Kind: KindCron, cronSched: cronSched, raw: spec}, nil
}

// Next returns the first activation time strictly after t. For interval
// schedules this is t + interval.
func (s *Schedule) Next(t time.Time) time.Time {
	if s.Kind == KindInterval {
		return t.Add(s.Every)
	}
	return s.cronSched.Next(t)
}

// String returns the raw schedule specification.
func (s *Schedule) String() string {
	return s.raw
}
