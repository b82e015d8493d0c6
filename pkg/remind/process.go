package remind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// Collaborators bundles everything one poll tick needs. All board mutation
// happens on the owner context: preparation work is dispatched off it and
// rejoins through Rejoin before touching shared state.
type Collaborators struct {
	// Preparer resolves the prepared message; nil uses DefaultPreparer.
	Preparer core.Preparer

	// Notifier receives the user-visible alert for a ready reminder.
	Notifier core.Notifier

	Logger *slog.Logger
	Clock  func() time.Time

	// Persist flushes the active board. Called on the owner context.
	Persist func()

	// Rejoin schedules fn back onto the owner context against the active
	// board. Implementations drop the call when the board was switched out
	// in the meantime, so a stale preparation never mutates a foreign board.
	Rejoin func(fn func(*core.Board))

	// SetActive marks the reminder currently surfaced for display.
	SetActive func(id string)

	// Spawn runs preparation work off the owner context. Nil defaults to a
	// supervised lifecycle goroutine.
	Spawn func(ctx context.Context, fn func(context.Context) error)
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Preparer == nil {
		c.Preparer = DefaultPreparer
	}
	if c.Notifier == nil {
		c.Notifier = core.NotifierFunc(func(title, body string) {})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Persist == nil {
		c.Persist = func() {}
	}
	if c.Rejoin == nil {
		c.Rejoin = func(fn func(*core.Board)) {}
	}
	if c.Spawn == nil {
		logger := c.Logger
		c.Spawn = func(ctx context.Context, fn func(context.Context) error) {
			lifecycle.Go(ctx, fn, lifecycle.WithErrorHandler(func(err error) {
				logger.Error("reminder preparation panic", "error", err)
			}))
		}
	}
	return c
}

// DefaultPreparer is the pure fallback content preparation: the reminder's
// work text verbatim when non-empty, else a generated message referencing
// the title. It has no external dependency and never fails.
var DefaultPreparer = core.PreparerFunc(func(ctx context.Context, r core.ReminderItem) (string, error) {
	return fallbackMessage(r), nil
})

func fallbackMessage(r core.ReminderItem) string {
	if r.Work != "" {
		return r.Work
	}
	return fmt.Sprintf("Reminder: %s is due.", r.Title)
}

// ProcessDue runs one poll tick against the board. For every reminder that
// is scheduled and due it:
//
//  1. transitions to preparing and publishes immediately, so observers see
//     the pending state before async work finishes,
//  2. resolves the prepared message (preparer, falling back on any failure),
//  3. transitions to ready, persists, notifies and marks the reminder
//     active for display,
//  4. advances recurrence back to scheduled, or marks the reminder fired.
//
// Preparation failures collapse into the fallback message and are logged;
// they never stop the rest of the batch.
//
// Must be called on the owner context.
func ProcessDue(ctx context.Context, b *core.Board, c Collaborators) {
	if b == nil {
		return
	}
	c = c.withDefaults()
	nowUnix := c.Clock().Unix()

	var due []string
	for i := range b.Reminders {
		r := &b.Reminders[i]
		if r.Status == core.ReminderScheduled && r.DueAt <= nowUnix {
			r.Status = core.ReminderPreparing
			due = append(due, r.ID)
		}
	}
	if len(due) == 0 {
		return
	}
	c.Persist()

	for _, id := range due {
		item := *b.Reminder(id)
		c.Spawn(ctx, func(ctx context.Context) error {
			msg := resolveMessage(ctx, c, item)
			c.Rejoin(func(active *core.Board) {
				completeReminder(active, item.ID, msg, c)
			})
			return nil
		})
	}
}

// resolveMessage never fails: any preparer error or empty result collapses
// into the fallback.
func resolveMessage(ctx context.Context, c Collaborators, r core.ReminderItem) string {
	msg, err := c.Preparer.Prepare(ctx, r)
	if err != nil {
		c.Logger.Warn("reminder preparation failed, using fallback",
			"reminder", r.ID, "error", err)
		return fallbackMessage(r)
	}
	if msg == "" {
		return fallbackMessage(r)
	}
	return msg
}

// completeReminder finishes steps 3–4 back on the owner context. The status
// check makes it a no-op when the reminder was cancelled or removed while
// preparation ran.
func completeReminder(b *core.Board, id, msg string, c Collaborators) {
	if b == nil {
		return
	}
	r := b.Reminder(id)
	if r == nil || r.Status != core.ReminderPreparing {
		return
	}

	r.PreparedMessage = msg
	r.Status = core.ReminderReady
	c.Persist()
	c.Notifier.Notify(r.Title, msg)
	if c.SetActive != nil {
		c.SetActive(id)
	}

	if r.Recurrence != nil {
		next, capped := NextAfter(time.Unix(r.DueAt, 0), *r.Recurrence, c.Clock())
		if capped {
			c.Logger.Warn("recurrence catch-up hit iteration cap, accepting last occurrence",
				"reminder", id, "dueAt", next.Unix())
		}
		r.DueAt = next.Unix()
		r.Status = core.ReminderScheduled
	} else {
		r.Status = core.ReminderFired
	}
	c.Persist()
}
