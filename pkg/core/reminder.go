package core

import "time"

// ReminderStatus is the lifecycle state of a reminder.
//
// Valid transitions:
//
//	scheduled → preparing → ready → (scheduled | fired)
//
// cancelled is reachable only from scheduled/preparing via explicit
// external cancellation. fired and cancelled are terminal.
type ReminderStatus string

const (
	ReminderScheduled ReminderStatus = "scheduled"
	ReminderPreparing ReminderStatus = "preparing"
	ReminderReady     ReminderStatus = "ready"
	ReminderFired     ReminderStatus = "fired"
	ReminderCancelled ReminderStatus = "cancelled"
)

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step.
func (s ReminderStatus) CanTransitionTo(next ReminderStatus) bool {
	switch s {
	case ReminderScheduled:
		return next == ReminderPreparing || next == ReminderCancelled
	case ReminderPreparing:
		return next == ReminderReady || next == ReminderCancelled
	case ReminderReady:
		return next == ReminderScheduled || next == ReminderFired
	default:
		// fired and cancelled are terminal
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s ReminderStatus) Terminal() bool {
	return s == ReminderFired || s == ReminderCancelled
}

// ReminderItem is one time-based reminder attached to a board.
type ReminderItem struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	Title     string `json:"title"`

	// Work is the free-text instruction used verbatim as the prepared
	// message when non-empty.
	Work string `json:"work,omitempty"`

	// DueAt is the next due time in unix seconds.
	DueAt int64 `json:"dueAt"`

	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`

	// PreparedMessage caches the resolved message from the last firing.
	PreparedMessage string `json:"preparedMessage,omitempty"`

	Status ReminderStatus `json:"status"`
}

// Frequency is the unit a recurrence rule advances by.
type Frequency string

const (
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// RecurrenceRule describes how a reminder's due time advances after firing.
// Weekdays is meaningful only for weekly rules; when present, occurrences
// anchor to calendar weeks (see remind.Next).
type RecurrenceRule struct {
	Frequency Frequency      `json:"frequency"`
	Interval  int            `json:"interval"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
}

// Normalized returns a copy with Interval clamped to at least 1.
func (r RecurrenceRule) Normalized() RecurrenceRule {
	if r.Interval < 1 {
		r.Interval = 1
	}
	return r
}
