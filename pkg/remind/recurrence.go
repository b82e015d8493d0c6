// Package remind advances and fires time-based reminders: a cancellable
// fixed-interval poll scoped to the active board, lifecycle transitions, and
// the recurrence arithmetic that computes the next due time after firing.
package remind

import (
	"sort"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// MaxCatchUpIterations bounds the catch-up loop. On exhaustion the last
// computed occurrence is accepted as-is — a valid if approximate future due
// time rather than an endless loop on a degenerate rule.
const MaxCatchUpIterations = 1000

// Next computes the single occurrence after due according to the rule.
// The original time-of-day is preserved across every computed occurrence.
func Next(due time.Time, rule core.RecurrenceRule) time.Time {
	rule = rule.Normalized()

	switch rule.Frequency {
	case core.Hourly:
		return due.Add(time.Duration(rule.Interval) * time.Hour)
	case core.Daily:
		return due.AddDate(0, 0, rule.Interval)
	case core.Weekly:
		return nextWeekly(due, rule)
	case core.Monthly:
		return addMonthsClamped(due, rule.Interval)
	case core.Yearly:
		return addMonthsClamped(due, 12*rule.Interval)
	default:
		// Unknown frequency degrades to daily so a malformed rule still
		// advances instead of wedging the scheduler.
		return due.AddDate(0, 0, rule.Interval)
	}
}

// NextAfter advances due until the result is strictly after now,
// compensating for scheduler downtime. The second result reports whether the
// iteration cap was hit before reaching the future.
func NextAfter(due time.Time, rule core.RecurrenceRule, now time.Time) (time.Time, bool) {
	next := due
	for i := 0; i < MaxCatchUpIterations; i++ {
		advanced := Next(next, rule)
		if !advanced.After(next) {
			// Degenerate rule that fails to advance; stop rather than spin.
			return advanced, true
		}
		next = advanced
		if next.After(now) {
			return next, false
		}
	}
	return next, true
}

// nextWeekly handles the two weekly shapes. Without a weekday set, the
// occurrence moves interval weeks ahead on the same weekday. With one,
// occurrences anchor to calendar weeks: the next occurrence is the earliest
// listed weekday strictly after the current one within the same week, else
// the earliest listed weekday interval weeks ahead.
func nextWeekly(due time.Time, rule core.RecurrenceRule) time.Time {
	days := weekdaySet(rule.Weekdays)
	if len(days) == 0 {
		return due.AddDate(0, 0, 7*rule.Interval)
	}

	current := due.Weekday()
	for _, wd := range days {
		if wd > current {
			return due.AddDate(0, 0, int(wd-current))
		}
	}

	// No listed weekday remains this week: advance the week anchor and take
	// the earliest listed weekday there.
	weekStart := due.AddDate(0, 0, -int(current))
	return weekStart.AddDate(0, 0, 7*rule.Interval+int(days[0]))
}

// weekdaySet returns the sorted, de-duplicated weekday list.
func weekdaySet(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// addMonthsClamped adds months while keeping the day-of-month, clamped to
// the last valid day of the target month (Jan 31 + 1 month is Feb 28/29,
// never Mar 3). time.AddDate alone would normalize overflow into the next
// month, which is exactly the behavior to avoid.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	anchor := time.Date(year, month, 1, hour, min, sec, t.Nanosecond(), t.Location())
	anchor = anchor.AddDate(0, months, 0)

	if last := daysInMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysInMonth exploits time.Date's normalization: day zero of the following
// month is the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
