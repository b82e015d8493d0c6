package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// Reconciler applies the pure Merge at the defined invocation points (store
// startup, board switch, external global-settings change) and persists both
// replicas when the merge touched either. It remembers the serialized form
// of the global record it last wrote so externally observed echoes of its
// own writes can be adopted directly instead of re-merged, breaking
// persistence feedback loops.
type Reconciler struct {
	repo   core.Repository
	logger *slog.Logger
	now    func() int64

	lastWritten []byte
}

// NewReconciler creates a reconciler over the given repository.
func NewReconciler(repo core.Repository, logger *slog.Logger, now func() int64) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repo: repo, logger: logger, now: now}
}

// Reconcile merges the board-embedded settings with the global record and
// persists both sides if either changed. A nil board makes the whole step a
// no-op: partially initialized replicas are left as-is.
func (r *Reconciler) Reconcile(ctx context.Context, board *core.Board, global *core.GlobalSettings) (Outcome, error) {
	if board == nil || global == nil {
		return Outcome{}, nil
	}

	mergedDoc, mergedGlobal, out := Merge(board.SettingsFields(), global.SettingsFields())
	if !out.Clean() {
		r.logger.Warn("settings replicas diverged, leaving both unchanged",
			"board", board.ID, "fields", out.Diverged)
	}
	if !out.Changed() {
		return out, nil
	}

	board.ApplySettingsFields(mergedDoc)
	global.ApplySettingsFields(mergedGlobal)

	now := r.now()
	board.Touch(now)
	if now > global.UpdatedAt {
		global.UpdatedAt = now
	}

	// Postcondition: a field changed in one side is persisted on both.
	if err := r.repo.SaveBoard(ctx, *board); err != nil {
		return out, fmt.Errorf("failed to persist board after merge: %w", err)
	}
	if err := r.saveGlobal(ctx, *global); err != nil {
		return out, err
	}

	r.logger.Debug("settings reconciled",
		"board", board.ID, "docChanged", out.DocChanged, "globalChanged", out.GlobalChanged)
	return out, nil
}

// OnExternalChange handles a notification that the global record changed in
// storage. If the loaded record equals the last copy this instance wrote
// (byte-wise, via stable serialization), it is adopted directly. Otherwise
// the loaded record replaces the in-memory global replica and a full merge
// against the current board runs.
func (r *Reconciler) OnExternalChange(ctx context.Context, board *core.Board, global *core.GlobalSettings, loaded core.GlobalSettings) (adopted bool, out Outcome, err error) {
	data, err := stableMarshal(loaded)
	if err != nil {
		return false, Outcome{}, fmt.Errorf("failed to serialize loaded settings: %w", err)
	}

	if r.lastWritten != nil && bytes.Equal(data, r.lastWritten) {
		if global != nil {
			*global = loaded
		}
		r.logger.Debug("external settings change is our own write, adopted directly")
		return true, Outcome{}, nil
	}

	if global != nil {
		*global = loaded
	}
	out, err = r.Reconcile(ctx, board, global)
	return false, out, err
}

// saveGlobal persists the global record and remembers its serialized form
// for echo suppression.
func (r *Reconciler) saveGlobal(ctx context.Context, g core.GlobalSettings) error {
	if err := r.repo.SaveGlobalSettings(ctx, g); err != nil {
		return fmt.Errorf("failed to persist global settings after merge: %w", err)
	}
	data, err := stableMarshal(g)
	if err != nil {
		return fmt.Errorf("failed to serialize written settings: %w", err)
	}
	r.lastWritten = data
	return nil
}

// stableMarshal produces the canonical byte form used for self-write
// comparison. encoding/json emits struct fields in declaration order, so
// equal values always serialize identically.
func stableMarshal(g core.GlobalSettings) ([]byte, error) {
	return json.Marshal(g)
}
