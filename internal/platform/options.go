package platform

import (
	"log/slog"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// options holds the internal configuration assembled from functional options.
type options struct {
	repository core.Repository
	logger     *slog.Logger
	adapter    string

	notifier core.Notifier
	preparer core.Preparer
	clock    func() time.Time

	pollInterval     time.Duration
	autosaveInterval time.Duration
	undoLimit        int
	coalesceWindow   time.Duration
	watchPattern     string

	mustExist  bool
	syncWrites bool
}

// Option defines a functional option for configuring the store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:    "fs",
		syncWrites: true,
	}
}

// WithLogger sets the logger used across the store and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom storage adapter (e.g. a mock). If provided,
// the adapter selection is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default) or
// "badger".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithNotifier sets the alert sink for ready reminders. Defaults to logging.
func WithNotifier(n core.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithPreparer sets the reminder content preparation hook.
func WithPreparer(p core.Preparer) Option {
	return func(o *options) {
		o.preparer = p
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithPollInterval sets how often the reminder scheduler checks for due
// reminders.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithAutosaveInterval sets how often dirty state is flushed to storage.
func WithAutosaveInterval(d time.Duration) Option {
	return func(o *options) {
		o.autosaveInterval = d
	}
}

// WithUndoLimit bounds the undo stack.
func WithUndoLimit(n int) Option {
	return func(o *options) {
		o.undoLimit = n
	}
}

// WithCoalesceWindow sets the interval within which same-key snapshots merge
// into one undo step.
func WithCoalesceWindow(d time.Duration) Option {
	return func(o *options) {
		o.coalesceWindow = d
	}
}

// WithWatchPattern filters which storage change events the store consumes,
// as a doublestar glob over logical record paths.
func WithWatchPattern(pattern string) Option {
	return func(o *options) {
		o.watchPattern = pattern
	}
}

// WithMustExist refuses to create the vault when it is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithSyncWrites toggles synchronous writes on the badger adapter.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}
