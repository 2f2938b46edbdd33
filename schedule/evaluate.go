package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/scout/store"
)

// IsDue reports whether a scheduled search should run now, given its
// most recent job (nil when the search never ran).
//
// Interval schedules are due when at least one interval has elapsed
// since the last job was created. Cron schedules use catch-up
// semantics: the search is due when the next cron activation after the
// last run is already in the past. A 9 AM job missed because the
// process was down until 11 AM fires at 11 AM rather than being
// skipped, and fires exactly once, not once per missed slot.
func IsDue(def *store.SearchDefinition, lastJob *store.JobRecord, now time.Time) bool {
	sched, err := Parse(def.Schedule)
	if err != nil {
		return false
	}

	switch sched.Kind {
	case KindInterval:
		if lastJob == nil {
			return true
		}
		return now.Sub(lastJob.CreatedAt) >= sched.Every
	default:
		// With no prior job the reference is start-of-today, and the
		// midnight slot itself must count. cron's Next is strictly
		// after its argument, so back the reference off by a second.
		// The last-job path stays strictly after: a slot whose run is
		// already recorded must not fire again.
		ref := startOfDay(now).Add(-time.Second)
		if lastJob != nil {
			ref = lastJob.CreatedAt
		}
		next := sched.Next(ref)
		return !next.After(now)
	}
}

// NextDueTime returns when the search will next be due, for display
// purposes only. Returns nil for unscheduled or invalid schedules. For
// an overdue cron schedule the returned time lies in the past.
func NextDueTime(def *store.SearchDefinition, lastJob *store.JobRecord, now time.Time) *time.Time {
	sched, err := Parse(def.Schedule)
	if err != nil {
		return nil
	}

	var next time.Time
	switch sched.Kind {
	case KindInterval:
		if lastJob == nil {
			next = now
		} else {
			next = lastJob.CreatedAt.Add(sched.Every)
		}
	default:
		// Same inclusive start-of-today reference as IsDue.
		ref := startOfDay(now).Add(-time.Second)
		if lastJob != nil {
			ref = lastJob.CreatedAt
		}
		next = sched.Next(ref)
	}
	return &next
}

// Describe renders a human-readable label for common schedule patterns,
// echoing the raw expression when no label applies.
func Describe(spec string) string {
	if spec == "" {
		return "manual"
	}

	if m := intervalRe.FindStringSubmatch(spec); m != nil {
		n, _ := strconv.Atoi(m[1])
		if m[2] == "h" {
			switch n {
			case 1:
				return "hourly"
			case 24:
				return "daily"
			default:
				return fmt.Sprintf("every %d hours", n)
			}
		}
		if n == 1 {
			return "every minute"
		}
		return fmt.Sprintf("every %d minutes", n)
	}

	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return spec
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if dom == "*" && month == "*" {
		at := clockLabel(minute, hour)
		switch {
		case at != "" && dow == "*":
			return "daily at " + at
		case at != "" && dow == "1-5":
			return "weekdays at " + at
		case at != "" && dow == "0,6":
			return "weekends at " + at
		case minute == "0" && hour == "*" && dow == "*":
			return "hourly"
		case hour == "*" && dow == "*" && strings.HasPrefix(minute, "*/"):
			return fmt.Sprintf("every %s minutes", minute[2:])
		}
	}

	return spec
}

// clockLabel formats literal minute/hour fields as HH:MM, or empty when
// either field is not a plain number.
func clockLabel(minute, hour string) string {
	m, errM := strconv.Atoi(minute)
	h, errH := strconv.Atoi(hour)
	if errM != nil || errH != nil {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
