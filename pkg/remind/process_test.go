package remind_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard-dev/corkboard/pkg/core"
	"github.com/corkboard-dev/corkboard/pkg/remind"
)

// tickHarness runs ProcessDue fully synchronously: Spawn executes inline and
// Rejoin applies against the same board, the way the owner loop would.
type tickHarness struct {
	board    core.Board
	now      time.Time
	persists int
	notices  []string
	active   []string
	statuses map[string][]core.ReminderStatus
}

func newTickHarness(now time.Time) *tickHarness {
	return &tickHarness{now: now, statuses: make(map[string][]core.ReminderStatus)}
}

func (h *tickHarness) collab(prep core.Preparer) remind.Collaborators {
	return remind.Collaborators{
		Preparer: prep,
		Notifier: core.NotifierFunc(func(title, body string) {
			h.notices = append(h.notices, title+": "+body)
		}),
		Clock: func() time.Time { return h.now },
		Persist: func() {
			h.persists++
			for _, r := range h.board.Reminders {
				h.statuses[r.ID] = append(h.statuses[r.ID], r.Status)
			}
		},
		Rejoin:    func(fn func(*core.Board)) { fn(&h.board) },
		SetActive: func(id string) { h.active = append(h.active, id) },
		Spawn: func(ctx context.Context, fn func(context.Context) error) {
			_ = fn(ctx)
		},
	}
}

func (h *tickHarness) tick(prep core.Preparer) {
	remind.ProcessDue(context.Background(), &h.board, h.collab(prep))
}

func TestNonRecurringLifecycleFiresExactlyOnce(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newTickHarness(now)
	h.board = core.Board{ID: "b1", Reminders: []core.ReminderItem{{
		ID:     "r1",
		Title:  "water plants",
		Work:   "go water the fern",
		DueAt:  now.Unix() - 10,
		Status: core.ReminderScheduled,
	}}}

	h.tick(nil)

	r := h.board.Reminder("r1")
	require.NotNil(t, r)
	assert.Equal(t, core.ReminderFired, r.Status)
	assert.Equal(t, "go water the fern", r.PreparedMessage, "work text used verbatim")
	assert.Equal(t, []string{"water plants: go water the fern"}, h.notices)
	assert.Equal(t, []string{"r1"}, h.active)

	// The observable sequence passed through preparing and ready, and the
	// pending state was published before preparation finished.
	seen := h.statuses["r1"]
	require.NotEmpty(t, seen)
	assert.Equal(t, core.ReminderPreparing, seen[0])
	assert.Contains(t, seen, core.ReminderReady)

	// Further ticks never re-enter the lifecycle.
	h.tick(nil)
	h.tick(nil)
	assert.Equal(t, core.ReminderFired, h.board.Reminder("r1").Status)
	assert.Len(t, h.notices, 1, "fired exactly once")
}

func TestRecurringReminderReschedules(t *testing.T) {
	due := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)
	now := due.Add(time.Minute)
	h := newTickHarness(now)
	h.board = core.Board{ID: "b1", Reminders: []core.ReminderItem{{
		ID:         "r1",
		Title:      "monthly report",
		DueAt:      due.Unix(),
		Status:     core.ReminderScheduled,
		Recurrence: &core.RecurrenceRule{Frequency: core.Monthly, Interval: 1},
	}}}

	h.tick(nil)

	r := h.board.Reminder("r1")
	assert.Equal(t, core.ReminderScheduled, r.Status, "recurring reminder returns to scheduled")
	next := time.Unix(r.DueAt, 0).UTC()
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC), next, "leap clamp")
}

func TestFallbackWhenNoWorkText(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newTickHarness(now)
	h.board = core.Board{Reminders: []core.ReminderItem{{
		ID: "r1", Title: "stretch", DueAt: now.Unix(), Status: core.ReminderScheduled,
	}}}

	h.tick(nil)
	assert.Equal(t, "Reminder: stretch is due.", h.board.Reminder("r1").PreparedMessage)
}

func TestPreparerFailureCollapsesToFallback(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newTickHarness(now)
	h.board = core.Board{Reminders: []core.ReminderItem{
		{ID: "r1", Title: "first", DueAt: now.Unix(), Status: core.ReminderScheduled},
		{ID: "r2", Title: "second", DueAt: now.Unix(), Status: core.ReminderScheduled},
	}}

	failing := core.PreparerFunc(func(ctx context.Context, r core.ReminderItem) (string, error) {
		if r.ID == "r1" {
			return "", errors.New("model unavailable")
		}
		return "prepared for " + r.Title, nil
	})

	h.tick(failing)

	// The failed preparation still reaches a terminal state with the
	// fallback, and the rest of the batch is unaffected.
	assert.Equal(t, core.ReminderFired, h.board.Reminder("r1").Status, "never stuck in preparing")
	assert.Equal(t, "Reminder: first is due.", h.board.Reminder("r1").PreparedMessage)
	assert.Equal(t, "prepared for second", h.board.Reminder("r2").PreparedMessage)
}

func TestNotDueRemindersUntouched(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newTickHarness(now)
	h.board = core.Board{Reminders: []core.ReminderItem{
		{ID: "future", Title: "later", DueAt: now.Unix() + 3600, Status: core.ReminderScheduled},
		{ID: "cancelled", Title: "never", DueAt: now.Unix() - 10, Status: core.ReminderCancelled},
	}}

	h.tick(nil)

	assert.Equal(t, core.ReminderScheduled, h.board.Reminder("future").Status)
	assert.Equal(t, core.ReminderCancelled, h.board.Reminder("cancelled").Status)
	assert.Zero(t, h.persists, "no due work, no publish")
}

func TestCancelledDuringPreparationIsDropped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newTickHarness(now)
	h.board = core.Board{Reminders: []core.ReminderItem{{
		ID: "r1", Title: "x", DueAt: now.Unix(), Status: core.ReminderScheduled,
	}}}

	// The preparer simulates an external cancellation racing the async work.
	cancelling := core.PreparerFunc(func(ctx context.Context, r core.ReminderItem) (string, error) {
		h.board.Reminder("r1").Status = core.ReminderCancelled
		return "too late", nil
	})

	h.tick(cancelling)

	assert.Equal(t, core.ReminderCancelled, h.board.Reminder("r1").Status)
	assert.Empty(t, h.notices, "completion is a no-op once cancelled")
}

func TestSchedulerTicks(t *testing.T) {
	ticks := make(chan time.Time, 10)
	s := remind.NewScheduler("reminder-poll:test", 10*time.Millisecond,
		func(now time.Time) { ticks <- now }, nil, nil)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}

	require.NoError(t, s.Stop(ctx))
	assert.Error(t, s.Start(ctx), "a stopped scheduler is not re-armable; construct a new one")
}
