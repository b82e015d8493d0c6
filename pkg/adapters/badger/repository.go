// Package badger implements core.Repository on an embedded BadgerDB, for
// hosts that want a single database file tree instead of a human-editable
// vault. Records keep the same logical paths as the filesystem adapter
// ("boards/<id>", "global/settings"), so watch patterns behave identically.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

const (
	boardPrefix = "boards/"
	globalKey   = "global/settings"
)

// Config holds the configuration for the BadgerDB repository.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM; useful for tests.
	InMemory bool

	// SyncWrites trades write latency for durability.
	SyncWrites bool

	// GCInterval is how often the value log garbage collector runs.
	// Zero disables it.
	GCInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns production defaults: synchronous writes and a
// five-minute GC cadence.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
		GCInterval: 5 * time.Minute,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory, no sync, no
// GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Repository implements core.Repository and core.Watchable over BadgerDB.
type Repository struct {
	db     *badgerdb.DB
	config Config
	logger *slog.Logger
	gcStop context.CancelFunc
}

// NewRepository creates a repository; the database opens on Initialize.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{config: config, logger: config.Logger}
}

// Initialize opens the database and starts the GC loop when configured.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.db != nil {
		return nil
	}
	if !r.config.InMemory && r.config.Path == "" {
		return errors.New("path is required for a persistent database")
	}

	var opts badgerdb.Options
	if r.config.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badgerdb.DefaultOptions(r.config.Path)
	}
	opts = opts.WithSyncWrites(r.config.SyncWrites)
	opts = opts.WithLogger(&badgerLogger{logger: r.logger})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	r.db = db

	if r.config.GCInterval > 0 && !r.config.InMemory {
		gcCtx, cancel := context.WithCancel(context.Background())
		r.gcStop = cancel
		lifecycle.Go(gcCtx, r.runGC, lifecycle.WithErrorHandler(func(err error) {
			r.logger.Error("badger GC panic", "error", err)
		}))
	}
	return nil
}

// LoadBoard retrieves a board record by id.
func (r *Repository) LoadBoard(ctx context.Context, id string) (core.Board, error) {
	if err := r.ready(); err != nil {
		return core.Board{}, err
	}
	if id == "" {
		return core.Board{}, errors.New("board id cannot be empty")
	}

	var b core.Board
	err := r.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(boardPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &b)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return core.Board{}, fmt.Errorf("board %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Board{}, fmt.Errorf("failed to load board %s: %w", id, err)
	}
	b.ID = id
	return b, nil
}

// SaveBoard persists a board record.
func (r *Repository) SaveBoard(ctx context.Context, b core.Board) error {
	if err := r.ready(); err != nil {
		return err
	}
	if b.ID == "" {
		return errors.New("board id cannot be empty")
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode board %s: %w", b.ID, err)
	}
	err = r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(boardPrefix+b.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save board %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBoard removes a board record.
func (r *Repository) DeleteBoard(ctx context.Context, id string) error {
	if err := r.ready(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badgerdb.Txn) error {
		key := []byte(boardPrefix + id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return fmt.Errorf("board %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete board %s: %w", id, err)
	}
	return nil
}

// ListBoardIDs iterates the board key prefix.
func (r *Repository) ListBoardIDs(ctx context.Context) ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var ids []string
	err := r.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(boardPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, boardPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return ids, nil
}

// LoadGlobalSettings retrieves the singleton record; missing is the zero
// value.
func (r *Repository) LoadGlobalSettings(ctx context.Context) (core.GlobalSettings, error) {
	if err := r.ready(); err != nil {
		return core.GlobalSettings{}, err
	}
	var g core.GlobalSettings
	err := r.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(globalKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &g)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return core.GlobalSettings{}, nil
	}
	if err != nil {
		return core.GlobalSettings{}, fmt.Errorf("failed to load global settings: %w", err)
	}
	return g, nil
}

// SaveGlobalSettings persists the singleton record.
func (r *Repository) SaveGlobalSettings(ctx context.Context, g core.GlobalSettings) error {
	if err := r.ready(); err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode global settings: %w", err)
	}
	err = r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(globalKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save global settings: %w", err)
	}
	return nil
}

// Close stops GC and closes the database.
func (r *Repository) Close() error {
	if r.gcStop != nil {
		r.gcStop()
		r.gcStop = nil
	}
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Watch subscribes to key changes and maps them to record events. Badger
// delivers the repository's own writes too; callers that need to tell them
// apart do so at the record level.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	events := make(chan core.Event, 16)
	db := r.db

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		err := db.Subscribe(ctx, func(kvs *badgerdb.KVList) error {
			for _, kv := range kvs.GetKv() {
				ev, ok := resolveKey(string(kv.GetKey()))
				if !ok {
					continue
				}
				if match, _ := doublestar.Match(pattern, string(kv.GetKey())); !match {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}, []pb.Match{{Prefix: nil}})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("badger subscription ended", "error", err)
			return err
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		r.logger.Error("badger subscription panic", "error", err)
	}))

	return events, nil
}

func (r *Repository) ready() error {
	if r.db == nil {
		return core.ErrClosed
	}
	return nil
}

func (r *Repository) runGC(ctx context.Context) error {
	ticker := time.NewTicker(r.config.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := r.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				r.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

// resolveKey maps a database key to the logical record it backs.
func resolveKey(key string) (core.Event, bool) {
	now := time.Now().Unix()
	switch {
	case key == globalKey:
		return core.Event{Tag: core.TagGlobalSettings, Timestamp: now}, true
	case strings.HasPrefix(key, boardPrefix):
		id := strings.TrimPrefix(key, boardPrefix)
		if id == "" {
			return core.Event{}, false
		}
		return core.Event{Tag: core.TagBoard, BoardID: id, Timestamp: now}, true
	}
	return core.Event{}, false
}

// badgerLogger adapts slog to badger's internal logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
