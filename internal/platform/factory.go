package platform

import (
	"context"
	"fmt"

	"github.com/corkboard-dev/corkboard/pkg/adapters/badger"
	"github.com/corkboard-dev/corkboard/pkg/adapters/fs"
	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/core"
)

// Open assembles a repository for the URI and starts a store on top of it.
// The URI is adapter-specific: a directory path for "fs", a database
// directory for "badger".
func Open(ctx context.Context, uri string, opts ...Option) (*board.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo, err := buildRepository(uri, o)
	if err != nil {
		return nil, err
	}

	return board.Open(ctx, board.Config{
		Repo:             repo,
		Logger:           o.logger,
		Notifier:         o.notifier,
		Preparer:         o.preparer,
		Clock:            o.clock,
		PollInterval:     o.pollInterval,
		AutosaveInterval: o.autosaveInterval,
		UndoLimit:        o.undoLimit,
		CoalesceWindow:   o.coalesceWindow,
		WatchPattern:     o.watchPattern,
	})
}

func buildRepository(uri string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	switch o.adapter {
	case "fs":
		return fs.NewRepository(fs.Config{
			Path:      uri,
			MustExist: o.mustExist,
			Logger:    o.logger,
		}), nil
	case "badger":
		cfg := badger.DefaultConfig(uri)
		cfg.SyncWrites = o.syncWrites
		cfg.Logger = o.logger
		return badger.NewRepository(cfg), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}
