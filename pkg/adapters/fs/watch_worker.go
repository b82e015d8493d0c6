package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// watchWorker turns fsnotify events into debounced core.Events. Atomic
// writes land as a temp-file create plus rename, so a single logical save
// can surface as several filesystem events; the debouncer collapses them per
// record.
type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(repo *Repository, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, dir := range []string{boardsDir, globalDir, assetsDir} {
		if err := watcher.Add(filepath.Join(w.repo.Path, dir)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic",
					"error", panicErr, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", panicErr)
			}
		}
	}()
	defer w.watcher.Close()
	defer close(w.events)

	err = w.eventLoop(ctx)

	// Stop accepting new events and let in-flight debounce timers settle
	// before the deferred close of the events channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

// processEvent filters, maps and debounces one filesystem event.
func (w *watchWorker) processEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	ev, ok := w.repo.resolveEvent(event.Name)
	if !ok {
		return
	}

	rel, err := filepath.Rel(w.repo.Path, event.Name)
	if err == nil {
		if match, _ := doublestar.Match(w.pattern, filepath.ToSlash(rel)); !match {
			return
		}
	}

	w.repo.config.Logger.Debug("storage change", "path", event.Name, "event", ev.String())
	w.sendEvent(ctx, ev)
}

// sendEvent enqueues via the debouncer. The recover guards against the
// events channel closing while a timer is still in flight during shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() { _ = recover() }()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) handleWatcherError(err error) {
	w.repo.config.Logger.Error("fsnotify error", "error", err)
	if w.repo.config.ErrorHandler != nil {
		w.repo.config.ErrorHandler(err)
	}
}

// resolveEvent maps an absolute file path to the logical record it backs.
// Paths that do not correspond to a record (temp files from atomic writes,
// hidden files, unknown extensions) resolve to false.
func (r *Repository) resolveEvent(name string) (core.Event, bool) {
	rel, err := filepath.Rel(r.Path, name)
	if err != nil {
		return core.Event{}, false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") {
		return core.Event{}, false
	}
	now := time.Now().Unix()

	switch {
	case strings.HasPrefix(rel, assetsDir+"/"):
		return core.Event{Tag: core.TagAssets, Timestamp: now}, true

	case strings.HasPrefix(rel, globalDir+"/"):
		ext := filepath.Ext(base)
		if isDataExt(ext) && strings.TrimSuffix(base, ext) == globalName {
			return core.Event{Tag: core.TagGlobalSettings, Timestamp: now}, true
		}

	case strings.HasPrefix(rel, boardsDir+"/"):
		ext := filepath.Ext(base)
		if !isDataExt(ext) || rel != boardsDir+"/"+base {
			return core.Event{}, false
		}
		id := strings.TrimSuffix(base, ext)
		if id == indexName {
			return core.Event{Tag: core.TagBoardsIndex, Timestamp: now}, true
		}
		return core.Event{Tag: core.TagBoard, BoardID: id, Timestamp: now}, true
	}
	return core.Event{}, false
}
