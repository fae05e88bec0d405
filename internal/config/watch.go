package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file into a Store whenever it changes.
// Invalid edits are logged and ignored; the last good configuration stays
// active.
type Watcher struct {
	path   string
	store  *Store
	logger *slog.Logger
	// OnReload, if set, is called after every successful reload.
	OnReload func(*Config)
}

// NewWatcher prepares a watcher for path. The path is expanded the same way
// Load expands it.
func NewWatcher(path string, store *Store, logger *slog.Logger) (*Watcher, error) {
	if store == nil {
		return nil, errors.New("config watcher: nil store")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if expanded == "" {
		return nil, errors.New("config watcher: empty path")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{path: expanded, store: store, logger: logger.With(slog.String("component", "config-watch"))}, nil
}

// Run blocks until ctx is done. The parent directory is watched so editors
// that replace the file by rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching configuration", slog.String("path", w.path))

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error",
				slog.String("event_type", "config_watch_error"),
				slog.String("error_hint", "configuration changes may not be picked up until restart"),
				slog.Any("error", err),
			)
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		w.logger.Warn("config reload failed",
			slog.String("event_type", "config_reload_failed"),
			slog.String("error_hint", "check file permissions"),
			slog.Any("error", err),
		)
		return
	}
	cfg, err := Parse(data)
	if err != nil {
		w.logger.Warn("config reload rejected",
			slog.String("event_type", "config_reload_invalid"),
			slog.String("error_hint", "fix the configuration file; the previous settings remain active"),
			slog.Any("error", err),
		)
		return
	}
	if err := w.store.Apply(cfg); err != nil {
		w.logger.Warn("config reload rejected", slog.Any("error", err))
		return
	}
	w.logger.Info("configuration reloaded", slog.String("path", w.path))
	if w.OnReload != nil {
		w.OnReload(w.store.Snapshot())
	}
}
