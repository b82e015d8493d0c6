// Package fs implements core.Repository on a plain directory tree. Boards
// are one file each under boards/, the global settings record is a singleton
// under global/, and assets live under assets/. Records are JSON by default;
// a board saved as YAML keeps its extension, so hand-edited vaults round-trip.
//
// The layout:
//
//	<path>/boards/<id>.json
//	<path>/boards/index.json
//	<path>/global/settings.json
//	<path>/assets/...
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

const (
	boardsDir  = "boards"
	globalDir  = "global"
	assetsDir  = "assets"
	indexName  = "index"
	globalName = "settings"
)

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path string

	// MustExist refuses to create the directory tree, for opening vaults
	// that are expected to already be there.
	MustExist bool

	Logger *slog.Logger

	// ErrorHandler receives asynchronous watcher errors. Nil logs them.
	ErrorHandler func(error)
}

// Repository implements core.Repository and core.Watchable on a directory.
type Repository struct {
	Path   string
	config Config
}

// NewRepository creates a filesystem-backed repository rooted at config.Path.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{Path: config.Path, config: config}
}

// Initialize creates the directory layout, or verifies it when MustExist is
// set.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	}
	for _, dir := range []string{boardsDir, globalDir, assetsDir} {
		if err := os.MkdirAll(filepath.Join(r.Path, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return nil
}

// LoadBoard reads a board by id, trying JSON first and YAML as fallback.
func (r *Repository) LoadBoard(ctx context.Context, id string) (core.Board, error) {
	if err := validateID(id); err != nil {
		return core.Board{}, err
	}

	path, ext, err := r.findBoardFile(id)
	if err != nil {
		return core.Board{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Board{}, fmt.Errorf("board %s: %w", id, core.ErrNotFound)
		}
		return core.Board{}, fmt.Errorf("failed to read board %s: %w", id, err)
	}

	var b core.Board
	if err := decode(data, ext, &b); err != nil {
		return core.Board{}, fmt.Errorf("failed to decode board %s: %w", id, err)
	}
	// The filename is authoritative for the id.
	b.ID = id
	return b, nil
}

// SaveBoard persists a board atomically and updates the boards index. A
// board already stored as YAML stays YAML.
func (r *Repository) SaveBoard(ctx context.Context, b core.Board) error {
	if err := validateID(b.ID); err != nil {
		return err
	}

	ext := ".json"
	if _, existing, err := r.findBoardFile(b.ID); err == nil {
		ext = existing
	}

	data, err := encode(b, ext)
	if err != nil {
		return fmt.Errorf("failed to encode board %s: %w", b.ID, err)
	}

	path := filepath.Join(r.Path, boardsDir, b.ID+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create boards directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write board %s: %w", b.ID, err)
	}

	return r.updateIndex(func(idx map[string]indexEntry) {
		idx[b.ID] = indexEntry{ID: b.ID, Name: b.Name, UpdatedAt: b.UpdatedAt}
	})
}

// DeleteBoard removes a board file and its index entry.
func (r *Repository) DeleteBoard(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	path, _, err := r.findBoardFile(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("board %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("failed to delete board %s: %w", id, err)
	}

	return r.updateIndex(func(idx map[string]indexEntry) {
		delete(idx, id)
	})
}

// ListBoardIDs lists stored boards from the directory contents, not the
// index, so boards dropped into the vault by hand are found too.
func (r *Repository) ListBoardIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.Path, boardsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !isDataExt(ext) {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if id == indexName || strings.HasPrefix(id, ".") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadGlobalSettings reads the singleton record. Missing is not an error;
// the zero value is returned.
func (r *Repository) LoadGlobalSettings(ctx context.Context) (core.GlobalSettings, error) {
	for _, ext := range dataExts {
		path := filepath.Join(r.Path, globalDir, globalName+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return core.GlobalSettings{}, fmt.Errorf("failed to read global settings: %w", err)
		}
		var g core.GlobalSettings
		if err := decode(data, ext, &g); err != nil {
			return core.GlobalSettings{}, fmt.Errorf("failed to decode global settings: %w", err)
		}
		return g, nil
	}
	return core.GlobalSettings{}, nil
}

// SaveGlobalSettings persists the singleton record atomically.
func (r *Repository) SaveGlobalSettings(ctx context.Context, g core.GlobalSettings) error {
	data, err := encode(g, ".json")
	if err != nil {
		return fmt.Errorf("failed to encode global settings: %w", err)
	}
	path := filepath.Join(r.Path, globalDir, globalName+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write global settings: %w", err)
	}
	return nil
}

// Close releases resources. Watch workers are bound to their context and
// stop with it.
func (r *Repository) Close() error { return nil }

// Watch emits an event whenever a record matching the doublestar pattern
// changes on disk. The channel closes when ctx is cancelled.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	events := make(chan core.Event, 16)
	w := newWatchWorker(r, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

// indexEntry is one row of the boards index, a cheap listing for hosts that
// want board names without loading every board.
type indexEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (r *Repository) indexPath() string {
	return filepath.Join(r.Path, boardsDir, indexName+".json")
}

func (r *Repository) updateIndex(mutate func(map[string]indexEntry)) error {
	idx := make(map[string]indexEntry)

	data, err := os.ReadFile(r.indexPath())
	if err == nil {
		var entries []indexEntry
		if err := decode(data, ".json", &entries); err != nil {
			// A corrupt index is rebuilt from the mutation onward rather
			// than blocking saves.
			r.config.Logger.Warn("boards index unreadable, rebuilding", "error", err)
		} else {
			for _, e := range entries {
				idx[e.ID] = e
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read boards index: %w", err)
	}

	mutate(idx)

	entries := make([]indexEntry, 0, len(idx))
	for _, e := range idx {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	out, err := encode(entries, ".json")
	if err != nil {
		return fmt.Errorf("failed to encode boards index: %w", err)
	}
	if err := atomic.WriteFile(r.indexPath(), bytes.NewReader(out)); err != nil {
		return fmt.Errorf("failed to write boards index: %w", err)
	}
	return nil
}

// findBoardFile locates the file backing a board id, preferring JSON.
func (r *Repository) findBoardFile(id string) (path, ext string, err error) {
	for _, ext := range dataExts {
		path := filepath.Join(r.Path, boardsDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, ext, nil
		}
	}
	return "", "", fmt.Errorf("board %s: %w", id, core.ErrNotFound)
}

func validateID(id string) error {
	if id == "" {
		return errors.New("board id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid board id: %q", id)
	}
	if id == indexName {
		return fmt.Errorf("board id %q is reserved", id)
	}
	return nil
}
