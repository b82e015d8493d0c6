package core

import "context"

// Repository defines the persistence contract: one addressable record per
// board keyed by id, plus one singleton record for the global settings.
// Adhering to this interface keeps the core independent of the underlying
// storage mechanism (filesystem, embedded KV, SQL, ...).
//
// Both record kinds are forward-compatible keyed structures: unknown fields
// are ignored on read, missing fields default.
type Repository interface {
	// Initialize ensures the underlying storage is ready (directories,
	// database files, schema).
	Initialize(ctx context.Context) error

	// LoadBoard retrieves a board by id. Returns ErrNotFound if absent.
	LoadBoard(ctx context.Context, id string) (Board, error)

	// SaveBoard persists a board, creating or replacing its record.
	SaveBoard(ctx context.Context, b Board) error

	// DeleteBoard removes a board record. Returns ErrNotFound if absent.
	DeleteBoard(ctx context.Context, id string) error

	// ListBoardIDs returns the ids of all stored boards.
	ListBoardIDs(ctx context.Context) ([]string, error)

	// LoadGlobalSettings retrieves the singleton record. A missing record
	// is not an error; the zero value is returned.
	LoadGlobalSettings(ctx context.Context) (GlobalSettings, error)

	// SaveGlobalSettings persists the singleton record.
	SaveGlobalSettings(ctx context.Context, g GlobalSettings) error

	// Close releases underlying resources.
	Close() error
}

// Watchable is implemented by repositories that can report external changes
// to their records. The pattern is a doublestar glob matched against the
// record's logical path (e.g. "boards/*" or "**").
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Notifier delivers a user-visible alert for a ready reminder. Enqueueing is
// fire-and-forget; delivery failures are the notifier's own concern.
type Notifier interface {
	Notify(title, body string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(title, body string)

func (f NotifierFunc) Notify(title, body string) { f(title, body) }

// Preparer resolves a reminder into its prepared message. Implementations
// may call out to external services; they are responsible for their own
// timeouts. Any error collapses into the fallback message at the caller.
type Preparer interface {
	Prepare(ctx context.Context, r ReminderItem) (string, error)
}

// PreparerFunc adapts a function to the Preparer interface.
type PreparerFunc func(ctx context.Context, r ReminderItem) (string, error)

func (f PreparerFunc) Prepare(ctx context.Context, r ReminderItem) (string, error) {
	return f(ctx, r)
}
