package remind_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corkboard-dev/corkboard/pkg/core"
	"github.com/corkboard-dev/corkboard/pkg/remind"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextHourlyDaily(t *testing.T) {
	due := at(2024, time.March, 6, 8, 30)

	next := remind.Next(due, core.RecurrenceRule{Frequency: core.Hourly, Interval: 3})
	assert.Equal(t, at(2024, time.March, 6, 11, 30), next)

	next = remind.Next(due, core.RecurrenceRule{Frequency: core.Daily, Interval: 2})
	assert.Equal(t, at(2024, time.March, 8, 8, 30), next)
}

func TestNextMonthlyClampsToMonthEnd(t *testing.T) {
	// Jan 31 + 1 month lands on leap-year Feb 29, never Mar 3.
	due := at(2024, time.January, 31, 9, 0)
	next := remind.Next(due, core.RecurrenceRule{Frequency: core.Monthly, Interval: 1})
	assert.Equal(t, at(2024, time.February, 29, 9, 0), next)

	// Non-leap year clamps to Feb 28.
	due = at(2023, time.January, 31, 9, 0)
	next = remind.Next(due, core.RecurrenceRule{Frequency: core.Monthly, Interval: 1})
	assert.Equal(t, at(2023, time.February, 28, 9, 0), next)

	// Clamping does not stick: May 31 from a clamped April 30 is not
	// recomputed here; each advance starts from the current due time.
	due = at(2024, time.March, 31, 9, 0)
	next = remind.Next(due, core.RecurrenceRule{Frequency: core.Monthly, Interval: 1})
	assert.Equal(t, at(2024, time.April, 30, 9, 0), next)
}

func TestNextYearlyPreservesTimeOfDay(t *testing.T) {
	due := at(2024, time.February, 29, 14, 45)
	next := remind.Next(due, core.RecurrenceRule{Frequency: core.Yearly, Interval: 1})
	assert.Equal(t, at(2025, time.February, 28, 14, 45), next, "leap day clamps in non-leap year")
}

func TestNextWeeklyWithoutWeekdaySet(t *testing.T) {
	due := at(2024, time.March, 6, 8, 0) // Wednesday
	next := remind.Next(due, core.RecurrenceRule{Frequency: core.Weekly, Interval: 2})
	assert.Equal(t, at(2024, time.March, 20, 8, 0), next)
	assert.Equal(t, time.Wednesday, next.Weekday())
}

func TestNextWeeklyWithWeekdaySet(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.Weekly,
		Interval:  1,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}

	// Wed 2024-03-06: the same-week next listed weekday is Fri 2024-03-08.
	due := at(2024, time.March, 6, 8, 0)
	next := remind.Next(due, rule)
	assert.Equal(t, at(2024, time.March, 8, 8, 0), next)
	assert.Equal(t, time.Friday, next.Weekday())

	// After Friday nothing remains that week: the anchor advances one week
	// and takes the earliest listed weekday, Mon 2024-03-11.
	next = remind.Next(next, rule)
	assert.Equal(t, at(2024, time.March, 11, 8, 0), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestNextWeeklyIntervalSkipsWeeks(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.Weekly,
		Interval:  2,
		Weekdays:  []time.Weekday{time.Monday},
	}
	// Mon 2024-03-04: no later listed weekday that week, anchor jumps two
	// weeks to Mon 2024-03-18.
	due := at(2024, time.March, 4, 10, 0)
	next := remind.Next(due, rule)
	assert.Equal(t, at(2024, time.March, 18, 10, 0), next)
}

func TestNextAfterCatchUp(t *testing.T) {
	// Yearly reminder last due 2023-01-15, scheduler wakes mid-2025: the
	// next occurrence is 2026-01-15, not an already-past year.
	due := at(2023, time.January, 15, 10, 0)
	now := at(2025, time.June, 1, 0, 0)

	next, capped := remind.NextAfter(due, core.RecurrenceRule{Frequency: core.Yearly, Interval: 1}, now)
	assert.False(t, capped)
	assert.Equal(t, at(2026, time.January, 15, 10, 0), next)
}

func TestNextAfterAlreadyFutureAdvancesOnce(t *testing.T) {
	due := at(2024, time.March, 6, 8, 0)
	now := at(2024, time.March, 1, 0, 0)

	next, capped := remind.NextAfter(due, core.RecurrenceRule{Frequency: core.Daily, Interval: 1}, now)
	assert.False(t, capped)
	assert.Equal(t, at(2024, time.March, 7, 8, 0), next)
}

func TestNextAfterIterationCap(t *testing.T) {
	// An hourly rule trying to catch up across two centuries exhausts the
	// cap; the loop terminates with a valid (if approximate) occurrence
	// instead of spinning.
	due := at(1824, time.January, 1, 0, 0)
	now := at(2024, time.January, 1, 0, 0)

	next, capped := remind.NextAfter(due, core.RecurrenceRule{Frequency: core.Hourly, Interval: 1}, now)
	assert.True(t, capped)
	assert.Equal(t, due.Add(remind.MaxCatchUpIterations*time.Hour), next)
	assert.True(t, next.After(due))
}

func TestNextNormalizesInterval(t *testing.T) {
	due := at(2024, time.March, 6, 8, 0)
	next := remind.Next(due, core.RecurrenceRule{Frequency: core.Daily, Interval: 0})
	assert.Equal(t, due.AddDate(0, 0, 1), next, "interval clamps to 1")
}
