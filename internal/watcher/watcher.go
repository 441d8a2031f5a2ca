// Package watcher turns files appearing in a drop folder into drop-origin
// intake candidates.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/logging"
)

// DefaultSettle is how long a file must stay quiet before it is reported.
const DefaultSettle = 750 * time.Millisecond

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

var _ Watcher = (*FSWatcher)(nil)

// FSWatcher reports video files written into a directory once their writes
// settle, so a copy in progress is not staged half-written.
type FSWatcher struct {
	logger *slog.Logger
	settle time.Duration
	fsw    *fsnotify.Watcher

	mu       sync.Mutex
	callback func(path string, event EventType)
	pending  map[string]*time.Timer
	seen     map[string]bool
}

func NewFSWatcher(logger *slog.Logger, settle time.Duration) (*FSWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &FSWatcher{
		logger:  logger,
		settle:  settle,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]bool),
	}, nil
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch starts watching path, creating it if needed. Events are delivered
// until ctx is done or Stop is called.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create drop folder: %w", err)
	}
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w.logger.Info("watching drop folder", "path", path)
	go w.loop(ctx)
	return nil
}

func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *FSWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("drop folder watch error", "error", err)
		}
	}
}

func (w *FSWatcher) handle(ev fsnotify.Event) {
	if !eligible(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.mu.Lock()
		if t, ok := w.pending[ev.Name]; ok {
			t.Stop()
			delete(w.pending, ev.Name)
		}
		wasSeen := w.seen[ev.Name]
		delete(w.seen, ev.Name)
		w.mu.Unlock()
		if wasSeen {
			w.emit(ev.Name, EventDelete)
		}
	}
}

func (w *FSWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		event := EventCreate
		if w.seen[path] {
			event = EventModify
		}
		w.seen[path] = true
		w.mu.Unlock()
		w.emit(path, event)
	})
}

func (w *FSWatcher) emit(path string, event EventType) {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	w.logger.Debug("drop folder event", "path", path, "event", event.String())
	if cb != nil {
		cb(path, event)
	}
}

// eligible filters out hidden and partial-download files.
func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, suffix := range []string{".part", ".crdownload", ".tmp"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			return false
		}
	}
	return true
}

// Stager accepts candidates from an entry point.
type Stager interface {
	Stage(origin intake.Origin, candidates []intake.Candidate) (intake.StagedFile, error)
}

// StageDrops returns a callback that stages every settled file as a drop.
// Validation is left to the stager so non-video files raise the same notice
// a browser drop would.
func StageDrops(stager Stager, logger *slog.Logger) func(path string, event EventType) {
	return func(path string, event EventType) {
		if event == EventDelete {
			return
		}

		candidate, err := intake.CandidateFromPath(path)
		if err != nil {
			logger.Warn("failed to read dropped file", "path", logging.SanitizePath(path), "error", err)
			return
		}

		if _, err := stager.Stage(intake.OriginDrop, []intake.Candidate{candidate}); err != nil {
			logger.Info("dropped file not staged", "path", logging.SanitizePath(path), "error", err)
		}
	}
}
