// Package board implements the owner context: a single serialized loop that
// owns the active board and is the only place in-memory document state is
// mutated. Undo/redo, settings reconciliation and reminder transitions all
// execute here; concurrent work (reminder preparation) is dispatched out and
// rejoins the loop before touching shared state.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/corkboard-dev/corkboard/pkg/core"
	"github.com/corkboard-dev/corkboard/pkg/history"
	"github.com/corkboard-dev/corkboard/pkg/remind"
	"github.com/corkboard-dev/corkboard/pkg/settings"
)

// ErrNoBoard signals an operation that needs an active board when none is
// loaded.
var ErrNoBoard = errors.New("no active board")

// DefaultAutosaveInterval is how often dirty state is flushed to storage.
const DefaultAutosaveInterval = 5 * time.Second

// Config wires a Store. Only Repo is required.
type Config struct {
	Repo     core.Repository
	Logger   *slog.Logger
	Notifier core.Notifier
	Preparer core.Preparer
	Clock    func() time.Time

	PollInterval     time.Duration
	AutosaveInterval time.Duration
	UndoLimit        int
	CoalesceWindow   time.Duration

	// WatchPattern filters which storage change events the store consumes.
	// Empty means everything ("**").
	WatchPattern string
}

// Store is the owner context. All exported methods marshal their work onto
// the internal loop; callbacks passed to them run on that loop and must not
// call back into the Store.
type Store struct {
	repo     core.Repository
	logger   *slog.Logger
	notifier core.Notifier
	preparer core.Preparer
	clock    func() time.Time

	pollInterval     time.Duration
	autosaveInterval time.Duration

	jobs    chan func()
	closed  chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	runCtx  context.Context

	// Owner-loop state. Touched only from the run loop.
	board            *core.Board
	global           core.GlobalSettings
	hist             *history.Manager
	reconciler       *settings.Reconciler
	sched            *remind.Scheduler
	session          core.SessionState
	activeReminderID string
	dirty            bool
	events           <-chan core.Event
}

// Open initializes storage, loads the global settings record and starts the
// owner loop. No board is active yet; call SwitchBoard to load one.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Repo == nil {
		return nil, errors.New("config is missing a repository")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Notifier == nil {
		logger := cfg.Logger
		cfg.Notifier = core.NotifierFunc(func(title, body string) {
			logger.Info("reminder notification", "title", title, "body", body)
		})
	}
	if cfg.Preparer == nil {
		cfg.Preparer = remind.DefaultPreparer
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = remind.DefaultPollInterval
	}

	if err := cfg.Repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	global, err := cfg.Repo.LoadGlobalSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global settings: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		repo:             cfg.Repo,
		logger:           cfg.Logger,
		notifier:         cfg.Notifier,
		preparer:         cfg.Preparer,
		clock:            cfg.Clock,
		pollInterval:     cfg.PollInterval,
		autosaveInterval: cfg.AutosaveInterval,
		jobs:             make(chan func(), 128),
		closed:           make(chan struct{}),
		stopped:          make(chan struct{}),
		cancel:           cancel,
		runCtx:           runCtx,
		global:           global,
	}

	s.hist = history.New(s.captureSnapshot, s.restoreSnapshot, history.Config{
		Limit:          cfg.UndoLimit,
		CoalesceWindow: cfg.CoalesceWindow,
		Now:            cfg.Clock,
		Logger:         cfg.Logger,
	})
	s.reconciler = settings.NewReconciler(cfg.Repo, cfg.Logger, func() int64 {
		return cfg.Clock().Unix()
	})

	if w, ok := cfg.Repo.(core.Watchable); ok {
		pattern := cfg.WatchPattern
		if pattern == "" {
			pattern = "**"
		}
		events, err := w.Watch(runCtx, pattern)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to watch repository: %w", err)
		}
		s.events = events
	}

	lifecycle.Go(runCtx, s.run, lifecycle.WithErrorHandler(func(err error) {
		cfg.Logger.Error("owner loop panic", "error", err)
	}))

	return s, nil
}

// run is the owner loop: the one goroutine allowed to mutate in-memory
// document state.
func (s *Store) run(ctx context.Context) error {
	autosave := time.NewTicker(s.autosaveInterval)
	defer autosave.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.flush(context.Background())
			return nil
		case fn := <-s.jobs:
			fn()
		case <-autosave.C:
			// Failed saves keep the dirty flag; the next tick retries
			// instead of losing the in-memory mutation.
			s.flush(ctx)
		case ev, ok := <-s.events:
			if !ok {
				s.events = nil
				continue
			}
			s.handleEvent(ctx, ev)
		}
	}
}

// drain executes jobs that were accepted before shutdown so synchronous
// callers are always released.
func (s *Store) drain() {
	for {
		select {
		case fn := <-s.jobs:
			fn()
		default:
			return
		}
	}
}

// do runs fn on the owner loop and waits for it.
func (s *Store) do(fn func()) error {
	done := make(chan struct{})
	select {
	case s.jobs <- func() { defer close(done); fn() }:
	case <-s.closed:
		return core.ErrClosed
	}
	<-done
	return nil
}

// dispatch runs fn on the owner loop without waiting. Used by the scheduler
// tick and by preparation work rejoining the loop.
func (s *Store) dispatch(fn func()) {
	select {
	case s.jobs <- fn:
	case <-s.closed:
	}
}

// --- Undo/Redo surface ---

func (s *Store) captureSnapshot() core.Snapshot {
	if s.board == nil {
		return core.Snapshot{}
	}
	return core.NewSnapshot(s.board, s.session, "", s.clock())
}

// restoreSnapshot is the dedicated restore entry point: it bypasses the
// public mutation path entirely, so restoring never records snapshots or
// re-triggers reactive side effects.
func (s *Store) restoreSnapshot(snap core.Snapshot) {
	restored := snap.Board.Clone()
	// Restoration keeps updatedAt monotone even though the content rewinds.
	if s.board != nil && s.board.UpdatedAt > restored.UpdatedAt {
		restored.UpdatedAt = s.board.UpdatedAt
	}
	restored.Touch(s.clock().Unix())
	s.board = &restored
	s.session = snap.Session.Clone()
	s.dirty = true
}

// RecordSnapshot captures the current state for undo, subject to depth
// suppression and same-key coalescing.
func (s *Store) RecordSnapshot(key string) error {
	return s.do(func() {
		if s.board == nil {
			return
		}
		s.hist.RecordSnapshot(key)
	})
}

// Mutate records one undo step (coalesced by key) and applies fn to the
// active board on the owner loop.
func (s *Store) Mutate(key string, fn func(*core.Board)) error {
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		s.hist.PerformUndoable(key, func() { fn(s.board) })
		s.board.Touch(s.clock().Unix())
		s.dirty = true
	})
	if err != nil {
		return err
	}
	return opErr
}

// Undo restores the previous snapshot. False on an empty stack.
func (s *Store) Undo() (bool, error) {
	var ok bool
	err := s.do(func() { ok = s.hist.Undo() })
	return ok, err
}

// Redo reapplies the next snapshot. False on an empty stack.
func (s *Store) Redo() (bool, error) {
	var ok bool
	err := s.do(func() { ok = s.hist.Redo() })
	return ok, err
}

// CanUndo reports whether an undo entry exists.
func (s *Store) CanUndo() bool {
	var ok bool
	_ = s.do(func() { ok = s.hist.CanUndo() })
	return ok
}

// CanRedo reports whether a redo entry exists.
func (s *Store) CanRedo() bool {
	var ok bool
	_ = s.do(func() { ok = s.hist.CanRedo() })
	return ok
}

// --- Session state ---

// SetSession replaces the transient session fields captured in snapshots.
func (s *Store) SetSession(state core.SessionState) error {
	return s.do(func() { s.session = state.Clone() })
}

// Session returns a copy of the transient session fields.
func (s *Store) Session() core.SessionState {
	var out core.SessionState
	_ = s.do(func() { out = s.session.Clone() })
	return out
}

// --- Reminder CRUD ---

// AddReminder creates a scheduled reminder on the active board, persists and
// audits it.
func (s *Store) AddReminder(title, work string, dueAt int64, rule *core.RecurrenceRule) (core.ReminderItem, error) {
	var item core.ReminderItem
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		item = core.ReminderItem{
			ID:        uuid.NewString(),
			CreatedAt: s.clock().Unix(),
			Title:     title,
			Work:      work,
			DueAt:     dueAt,
			Status:    core.ReminderScheduled,
		}
		if rule != nil {
			normalized := rule.Normalized()
			item.Recurrence = &normalized
		}
		s.hist.PerformUndoable("reminder:add", func() {
			s.board.Reminders = append(s.board.Reminders, item)
		})
		s.appendAudit("reminder.add", title)
		s.touchAndSave()
	})
	if err != nil {
		return core.ReminderItem{}, err
	}
	return item, opErr
}

// UpdateReminder replaces a reminder by id. Status changes must be legal
// lifecycle transitions; in particular, cancellation is only reachable from
// scheduled or preparing.
func (s *Store) UpdateReminder(item core.ReminderItem) error {
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		existing := s.board.Reminder(item.ID)
		if existing == nil {
			opErr = core.ErrNotFound
			return
		}
		if existing.Status != item.Status && !existing.Status.CanTransitionTo(item.Status) {
			opErr = fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, existing.Status, item.Status)
			return
		}
		s.hist.PerformUndoable("reminder:update:"+item.ID, func() {
			*existing = item
		})
		s.appendAudit("reminder.update", item.Title)
		s.touchAndSave()
	})
	if err != nil {
		return err
	}
	return opErr
}

// CancelReminder cancels a scheduled or preparing reminder.
func (s *Store) CancelReminder(id string) error {
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		r := s.board.Reminder(id)
		if r == nil {
			opErr = core.ErrNotFound
			return
		}
		if !r.Status.CanTransitionTo(core.ReminderCancelled) {
			opErr = fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, r.Status, core.ReminderCancelled)
			return
		}
		s.hist.PerformUndoable("reminder:cancel:"+id, func() {
			r.Status = core.ReminderCancelled
		})
		s.appendAudit("reminder.cancel", r.Title)
		s.touchAndSave()
	})
	if err != nil {
		return err
	}
	return opErr
}

// RemoveReminder deletes a reminder by id.
func (s *Store) RemoveReminder(id string) error {
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		idx := -1
		for i := range s.board.Reminders {
			if s.board.Reminders[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			opErr = core.ErrNotFound
			return
		}
		title := s.board.Reminders[idx].Title
		s.hist.PerformUndoable("reminder:remove:"+id, func() {
			s.board.Reminders = append(s.board.Reminders[:idx], s.board.Reminders[idx+1:]...)
		})
		if s.activeReminderID == id {
			s.activeReminderID = ""
		}
		s.appendAudit("reminder.remove", title)
		s.touchAndSave()
	})
	if err != nil {
		return err
	}
	return opErr
}

// Reminder returns a copy of the reminder with the given id.
func (s *Store) Reminder(id string) (core.ReminderItem, error) {
	var item core.ReminderItem
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		r := s.board.Reminder(id)
		if r == nil {
			opErr = core.ErrNotFound
			return
		}
		item = *r
	})
	if err != nil {
		return core.ReminderItem{}, err
	}
	return item, opErr
}

// Reminders returns copies of all reminders on the active board.
func (s *Store) Reminders() []core.ReminderItem {
	var out []core.ReminderItem
	_ = s.do(func() {
		if s.board != nil {
			out = append(out, s.board.Reminders...)
		}
	})
	return out
}

// ActiveReminder returns the reminder currently surfaced for display, set by
// the scheduler when a reminder becomes ready.
func (s *Store) ActiveReminder() (core.ReminderItem, bool) {
	var item core.ReminderItem
	var ok bool
	_ = s.do(func() {
		if s.board == nil || s.activeReminderID == "" {
			return
		}
		if r := s.board.Reminder(s.activeReminderID); r != nil {
			item, ok = *r, true
		}
	})
	return item, ok
}

// --- Board lifecycle ---

// SwitchBoard synchronously flushes the current board, stops its reminder
// poll, loads (or creates) the requested board, reconciles settings and
// re-arms a fresh poll scoped to the new board.
func (s *Store) SwitchBoard(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("board id cannot be empty")
	}
	var opErr error
	err := s.do(func() { opErr = s.switchBoard(ctx, id) })
	if err != nil {
		return err
	}
	return opErr
}

func (s *Store) switchBoard(ctx context.Context, id string) error {
	// Pending writes must land before in-memory state is discarded.
	if err := s.flushNow(ctx); err != nil {
		return err
	}
	s.stopScheduler(ctx)

	b, err := s.repo.LoadBoard(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		b = core.Board{ID: id}
		b.Touch(s.clock().Unix())
		if err := s.repo.SaveBoard(ctx, b); err != nil {
			return fmt.Errorf("failed to create board %s: %w", id, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load board %s: %w", id, err)
	}

	s.board = &b
	s.session = core.SessionState{}
	s.activeReminderID = ""
	s.dirty = false
	s.hist.Clear()

	if _, err := s.reconciler.Reconcile(ctx, s.board, &s.global); err != nil {
		// Reconciliation failures degrade gracefully; the replicas are
		// retried at the next invocation point.
		s.logger.Warn("settings reconciliation failed", "board", id, "error", err)
	}

	s.startScheduler()
	s.logger.Info("board activated", "board", id)
	return nil
}

// BoardID returns the id of the active board, or empty.
func (s *Store) BoardID() string {
	var id string
	_ = s.do(func() {
		if s.board != nil {
			id = s.board.ID
		}
	})
	return id
}

// CurrentBoard returns a deep copy of the active board.
func (s *Store) CurrentBoard() (core.Board, error) {
	var out core.Board
	var opErr error
	err := s.do(func() {
		if s.board == nil {
			opErr = ErrNoBoard
			return
		}
		out = s.board.Clone()
	})
	if err != nil {
		return core.Board{}, err
	}
	return out, opErr
}

// GlobalSettings returns a copy of the in-memory global settings replica.
func (s *Store) GlobalSettings() core.GlobalSettings {
	var out core.GlobalSettings
	_ = s.do(func() { out = s.global })
	return out
}

// ListBoards returns the ids of all stored boards.
func (s *Store) ListBoards(ctx context.Context) ([]string, error) {
	return s.repo.ListBoardIDs(ctx)
}

// Flush forces a synchronous save of dirty state.
func (s *Store) Flush(ctx context.Context) error {
	var opErr error
	err := s.do(func() { opErr = s.flushNow(ctx) })
	if err != nil {
		return err
	}
	return opErr
}

// Close flushes pending writes, stops the poll and the owner loop, and
// closes the repository.
func (s *Store) Close(ctx context.Context) error {
	err := s.do(func() {
		s.stopScheduler(ctx)
		s.flush(ctx)
	})
	if err != nil {
		return err
	}
	close(s.closed)
	s.cancel()
	<-s.stopped
	return s.repo.Close()
}

// --- Internals (owner loop only) ---

func (s *Store) startScheduler() {
	boardID := s.board.ID
	s.sched = remind.NewScheduler("reminder-poll:"+boardID, s.pollInterval, func(now time.Time) {
		s.dispatch(func() { s.processDue(boardID) })
	}, s.clock, s.logger)
	if err := s.sched.Start(s.runCtx); err != nil {
		s.logger.Error("failed to arm reminder poll", "board", boardID, "error", err)
	}
}

func (s *Store) stopScheduler(ctx context.Context) {
	if s.sched == nil {
		return
	}
	if err := s.sched.Stop(ctx); err != nil {
		s.logger.Warn("failed to stop reminder poll", "error", err)
	}
	s.sched = nil
}

// processDue runs one reminder tick. The board id guard drops ticks that
// were queued before a switch.
func (s *Store) processDue(boardID string) {
	if s.board == nil || s.board.ID != boardID {
		return
	}
	remind.ProcessDue(s.runCtx, s.board, remind.Collaborators{
		Preparer: s.preparer,
		Notifier: s.notifier,
		Logger:   s.logger,
		Clock:    s.clock,
		Persist: func() {
			s.dirty = true
			s.flush(s.runCtx)
		},
		Rejoin: func(fn func(*core.Board)) {
			s.dispatch(func() {
				if s.board == nil || s.board.ID != boardID {
					return
				}
				fn(s.board)
			})
		},
		SetActive: func(id string) { s.activeReminderID = id },
	})
}

func (s *Store) handleEvent(ctx context.Context, ev core.Event) {
	switch ev.Tag {
	case core.TagGlobalSettings:
		loaded, err := s.repo.LoadGlobalSettings(ctx)
		if err != nil {
			s.logger.Warn("failed to load externally changed settings", "error", err)
			return
		}
		adopted, _, err := s.reconciler.OnExternalChange(ctx, s.board, &s.global, loaded)
		if err != nil {
			s.logger.Warn("failed to reconcile external settings change", "error", err)
			return
		}
		if !adopted {
			s.logger.Debug("external settings change merged")
		}
	default:
		// Board/index/asset changes are surfaced to hosts elsewhere; the
		// consistency core only reacts to the global settings record.
		s.logger.Debug("storage event", "event", ev.String())
	}
}

// appendAudit records a mutating operation on the board's audit log.
func (s *Store) appendAudit(action, detail string) {
	s.board.AuditLog = append(s.board.AuditLog, core.AuditEntry{
		ID:     uuid.NewString(),
		At:     s.clock().Unix(),
		Action: action,
		Detail: detail,
	})
}

// touchAndSave bumps the board version and persists immediately; failures
// keep the dirty flag so the autosave tick retries.
func (s *Store) touchAndSave() {
	s.board.Touch(s.clock().Unix())
	s.dirty = true
	s.flush(s.runCtx)
}

// flush saves dirty state, keeping it dirty on failure.
func (s *Store) flush(ctx context.Context) {
	if err := s.flushNow(ctx); err != nil {
		s.logger.Warn("save failed, will retry on next autosave tick", "error", err)
	}
}

func (s *Store) flushNow(ctx context.Context) error {
	if !s.dirty || s.board == nil {
		return nil
	}
	if err := s.repo.SaveBoard(ctx, *s.board); err != nil {
		return fmt.Errorf("failed to save board %s: %w", s.board.ID, err)
	}
	s.dirty = false
	return nil
}
