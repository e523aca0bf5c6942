package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the global configuration when its file changes.
// The directory is watched rather than the file, so editors that replace
// the file by rename are noticed.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("no configuration file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: NewDebouncer(debounce),
		logger:   slog.Default().With("component", "config.watcher"),
	}, nil
}

// Watch blocks until ctx is done, calling reload after each burst of
// changes to the file. Reload failures are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, reload func() error) error {
	defer w.debounce.Stop()
	defer w.watcher.Close()

	w.logger.Info("watching configuration", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("configuration changed", "op", event.Op.String())
			w.debounce.Trigger(func() {
				if err := reload(); err != nil {
					w.logger.Error("configuration reload failed", "path", w.path, "error", err)
					return
				}
				w.logger.Info("configuration reloaded", "path", w.path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("configuration watcher error", "error", err)
		}
	}
}

// Debouncer collects rapid events and runs the last callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			callback()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
