package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports that one of the watched files was written or replaced.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to a fixed set of files. It watches the parent
// directories so editors that replace files by rename keep being tracked.
type Watcher struct {
	files  map[string]struct{}
	logger *slog.Logger
	events chan ChangeEvent
}

// NewWatcher watches the given files. Paths are cleaned and made absolute.
func NewWatcher(logger *slog.Logger, files ...string) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		set[filepath.Clean(f)] = struct{}{}
	}
	return &Watcher{
		files:  set,
		logger: logger,
		events: make(chan ChangeEvent, 16),
	}
}

// NewConfigWatcher watches config.yaml in homeDir.
func NewConfigWatcher(homeDir string, logger *slog.Logger) *Watcher {
	return NewWatcher(logger, ConfigPath(homeDir))
}

func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins watching until ctx is done. The events channel is closed when
// the watcher stops.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("watch directory failed", "dir", dir, "error", err)
		}
	}

	go func() {
		defer fsw.Close()
		defer close(w.events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if _, watched := w.files[filepath.Clean(ev.Name)]; !watched {
					continue
				}
				select {
				case w.events <- ChangeEvent{Path: ev.Name, Op: ev.Op}:
				default:
				}
				w.logger.Debug("watched file changed", "path", ev.Name, "op", ev.Op.String())
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("file watcher error", "error", err)
			}
		}
	}()
	return nil
}
