package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackup-io/stackup/pkg/telemetry"
)

// Watcher re-loads and re-validates an override file whenever it changes.
// It backs `stackup config watch`, a development aid for editing override
// files while the stack definition evolves.
type Watcher struct {
	path    string
	log     *telemetry.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given override file.
func NewWatcher(path string, log *telemetry.Logger) *Watcher {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Watcher{path: path, log: log.NewComponentLogger("config-watch")}
}

// Watch blocks until the context is cancelled, invoking onReload with the
// freshly loaded store after each change to the override file. Load or
// validation failures are logged and watching continues; the operator
// fixes the file and saves again.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Store) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	w.watcher = watcher

	// Watch the directory rather than the file: editors commonly replace
	// the file on save, which drops a direct file watch.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.log.Infof("watching %s", w.path)

	var reloadTimer *time.Timer
	const debounce = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Clean(event.Name), filepath.Clean(w.path)) {
				continue
			}
			w.log.Debugf("override changed (%s)", event.Op)

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(debounce, func() {
				store, err := Load(w.path)
				if err != nil {
					w.log.WithError(err).Error("reload failed")
					return
				}
				if err := onReload(store); err != nil {
					w.log.WithError(err).Error("reload callback failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}
