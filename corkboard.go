package corkboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/corkboard-dev/corkboard/internal/platform"
	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/core"
)

// Version exposes the library version.
const Version = "0.3.0"

// --- Configuration ---

// Option defines a functional option for configuring the store.
type Option = platform.Option

// WithLogger sets the logger used across the store and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter (e.g. a mock).
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name: "fs" (default) or "badger".
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithNotifier sets the alert sink for ready reminders.
func WithNotifier(n core.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithPreparer sets the reminder content preparation hook.
func WithPreparer(p core.Preparer) Option {
	return platform.WithPreparer(p)
}

// WithPollInterval sets the reminder scheduler's poll cadence.
func WithPollInterval(d time.Duration) Option {
	return platform.WithPollInterval(d)
}

// WithAutosaveInterval sets how often dirty state is flushed to storage.
func WithAutosaveInterval(d time.Duration) Option {
	return platform.WithAutosaveInterval(d)
}

// WithUndoLimit bounds the undo stack.
func WithUndoLimit(n int) Option {
	return platform.WithUndoLimit(n)
}

// WithCoalesceWindow sets the interval within which same-key snapshots merge
// into one undo step.
func WithCoalesceWindow(d time.Duration) Option {
	return platform.WithCoalesceWindow(d)
}

// WithWatchPattern filters which storage change events the store consumes.
func WithWatchPattern(pattern string) Option {
	return platform.WithWatchPattern(pattern)
}

// WithMustExist refuses to create the vault when it is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithSyncWrites toggles synchronous writes on the badger adapter.
func WithSyncWrites(sync bool) Option {
	return platform.WithSyncWrites(sync)
}

// --- Factory ---

// Open assembles a repository at the given URI and starts a board store on
// top of it. The URI is adapter-specific: a directory path for "fs", a
// database directory for "badger".
func Open(ctx context.Context, uri string, opts ...Option) (*board.Store, error) {
	return platform.Open(ctx, uri, opts...)
}

// --- Utils ---

// FindVaultRoot looks upwards from startDir for a vault root indicator.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
