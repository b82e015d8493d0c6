// Package history implements the undo/redo manager: a bounded stack of
// whole-board snapshots captured around mutations, with coalescing of
// closely-timed same-key edits into a single undo step.
package history

import (
	"log/slog"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

const (
	// DefaultLimit bounds the undo stack; the oldest entry is evicted on
	// overflow.
	DefaultLimit = 200

	// DefaultCoalesceWindow groups same-key snapshots recorded within this
	// interval into one undo step. Continuous gestures (drag, slider, zoom)
	// emit many incremental mutations; coalescing keeps them one step while
	// still separating logically distinct edits that share a key once
	// enough time has passed.
	DefaultCoalesceWindow = 350 * time.Millisecond
)

// Capture produces an immutable snapshot of the current state.
type Capture func() core.Snapshot

// Restore applies a snapshot back onto the current state. It is a dedicated
// entry point that bypasses the public mutation path, so restoring never
// triggers snapshot recording or reactive side effects.
type Restore func(core.Snapshot)

// Manager owns the undo and redo stacks. It is not safe for concurrent use;
// like all board mutation it runs on the single serialized owner context.
type Manager struct {
	capture Capture
	restore Restore

	limit  int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	undo []core.Snapshot
	redo []core.Snapshot

	depth   int
	lastKey string
	lastAt  time.Time
}

// Config carries the optional knobs for a Manager.
type Config struct {
	Limit          int
	CoalesceWindow time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// New creates a manager around the given capture/restore pair.
func New(capture Capture, restore Restore, cfg Config) *Manager {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.CoalesceWindow <= 0 {
		cfg.CoalesceWindow = DefaultCoalesceWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		capture: capture,
		restore: restore,
		limit:   cfg.Limit,
		window:  cfg.CoalesceWindow,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
}

// RecordSnapshot captures the current state onto the undo stack.
//
// The capture is skipped when called inside an outer undoable operation
// (depth > 0), or coalesced when a snapshot with the same non-empty key was
// recorded within the coalescing window — in that case only the timestamp is
// refreshed and the redo stack discarded, without growing the undo stack.
// Any new recording clears the redo stack.
func (m *Manager) RecordSnapshot(key string) {
	if m.depth > 0 {
		return
	}
	now := m.now()

	if key != "" && key == m.lastKey && now.Sub(m.lastAt) < m.window {
		m.lastAt = now
		m.redo = m.redo[:0]
		return
	}

	snap := m.capture()
	snap.Key = key
	snap.TakenAt = now

	m.undo = append(m.undo, snap)
	if len(m.undo) > m.limit {
		// Evict oldest. Copy down instead of re-slicing so the backing
		// array does not pin evicted snapshots.
		copy(m.undo, m.undo[1:])
		m.undo = m.undo[:m.limit]
	}
	m.redo = m.redo[:0]
	m.lastKey = key
	m.lastAt = now
}

// PerformUndoable records a snapshot only at the outermost invocation, then
// runs action. Nested calls run their action without capturing again, so one
// user-level operation yields exactly one undo step.
func (m *Manager) PerformUndoable(key string, action func()) {
	if m.depth == 0 {
		m.RecordSnapshot(key)
	}
	m.depth++
	defer func() { m.depth-- }()
	action()
}

// Undo pops the undo stack, pushes the current state onto the redo stack and
// restores. Returns false on an empty stack; that is a normal result, not an
// error.
func (m *Manager) Undo() bool {
	if len(m.undo) == 0 {
		return false
	}
	snap := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	current := m.capture()
	current.TakenAt = m.now()
	m.redo = append(m.redo, current)

	m.restore(snap)
	m.resetCoalescing()
	m.logger.Debug("undo applied", "remaining", len(m.undo))
	return true
}

// Redo pops the redo stack, pushes the current state onto the undo stack and
// restores. Returns false on an empty stack.
func (m *Manager) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	snap := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	current := m.capture()
	current.TakenAt = m.now()
	m.undo = append(m.undo, current)

	m.restore(snap)
	m.resetCoalescing()
	m.logger.Debug("redo applied", "remaining", len(m.redo))
	return true
}

// CanUndo reports whether an undo entry exists.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether a redo entry exists.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Clear drops both stacks, e.g. when switching the active board.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
	m.resetCoalescing()
}

// resetCoalescing ensures the next recording starts a fresh undo step even
// if it reuses the previous key.
func (m *Manager) resetCoalescing() {
	m.lastKey = ""
	m.lastAt = time.Time{}
}
