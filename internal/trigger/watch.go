package trigger

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// ChangeEvent represents a file change in the watched directory
type ChangeEvent struct {
	Type EventType
	Path string
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a change to path should start a cycle.
type FileFilter func(path string) bool

// Watch runs a cycle when files in a directory change. Bursts of events are
// coalesced by a debouncer into one cycle. A fallback interval also runs
// cycles so files that were present before Run, or whose events were
// dropped, are still picked up.
type Watch struct {
	dir      string
	debounce time.Duration
	fallback time.Duration
	retry    time.Duration
	logger   logging.Logger

	mutex   sync.RWMutex
	filters []FileFilter
}

// NewWatch creates a watch trigger for dir. A zero fallback disables the
// fallback interval.
func NewWatch(dir string, debounce, fallback time.Duration, logger logging.Logger) (*Watch, error) {
	if dir == "" {
		return nil, errors.NewConfigError("watch trigger requires a directory")
	}
	if debounce < 0 || fallback < 0 {
		return nil, errors.NewConfigError("watch trigger durations must not be negative")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Watch{
		dir:      filepath.Clean(dir),
		debounce: debounce,
		fallback: fallback,
		retry:    time.Second,
		logger:   logger,
	}, nil
}

// AddFilter adds a file filter
func (w *Watch) AddFilter(filter FileFilter) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.filters = append(w.filters, filter)
}

// Run implements Trigger. The first cycle runs immediately.
//
// A directory that cannot be watched yet is not fatal: cycles then run on
// the fallback interval, or every second without one, and the watch is
// retried before each of them.
func (w *Watch) Run(ctx context.Context, cycle func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewIOError(errors.CodeListFailed, "creating file watcher", err).WithOp("watch")
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(ctx)
	debouncer := newDebouncer(w.debounce)

	var wg conc.WaitGroup
	wg.Go(func() { w.watchLoop(ctx, watcher, debouncer) })
	defer func() {
		cancel()
		debouncer.stop()
		wg.Wait()
	}()

	watching := w.add(ctx, watcher, true)

	every := w.fallback
	if !watching && every == 0 {
		every = w.retry
	}
	var fallback <-chan time.Time
	if every > 0 {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		fallback = ticker.C
	}

	w.logger.Debug(ctx, "Watching directory", "dir", w.dir, "debounce", w.debounce.String())
	cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-debouncer.output:
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Debug(ctx, "Directory changed", "events", len(events))
			cycle(ctx)
		case <-fallback:
			if ctx.Err() != nil {
				return nil
			}
			if !watching {
				watching = w.add(ctx, watcher, false)
			}
			cycle(ctx)
		}
	}
}

// add starts watching the directory. Only the first failure is logged as a
// warning.
func (w *Watch) add(ctx context.Context, watcher *fsnotify.Watcher, first bool) bool {
	if err := watcher.Add(w.dir); err != nil {
		ioErr := errors.NewIOError(errors.CodeListFailed, "watching directory", err).
			WithOp("watch").WithPath(w.dir)
		if first {
			w.logger.Warn(ctx, ioErr, "Directory cannot be watched, polling until it can")
		} else {
			w.logger.Debug(ctx, "Directory still cannot be watched", "error", err.Error())
		}
		return false
	}
	if !first {
		w.logger.Info(ctx, "Watching directory", "dir", w.dir)
	}
	return true
}

func (w *Watch) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, d *debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if change, ok := w.convert(event); ok {
				d.add(change)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			w.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

// convert maps an fsnotify event onto a ChangeEvent. Deletions and events
// rejected by a filter never start a cycle.
func (w *Watch) convert(event fsnotify.Event) (ChangeEvent, bool) {
	w.mutex.RLock()
	filters := w.filters
	w.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return ChangeEvent{}, false
		}
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventTypeCreated
	case event.Has(fsnotify.Write):
		eventType = EventTypeModified
	case event.Has(fsnotify.Rename):
		eventType = EventTypeRenamed
	case event.Has(fsnotify.Remove):
		return ChangeEvent{}, false
	default:
		// Chmod and friends do not make a file claimable.
		return ChangeEvent{}, false
	}

	return ChangeEvent{Type: eventType, Path: event.Name}, true
}
