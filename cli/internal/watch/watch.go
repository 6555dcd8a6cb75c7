// Package watch reruns a callback when a file is written.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/satishbabariya/strata/internal/debug"
)

// DefaultDebounce coalesces editor write bursts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reruns OnChange after the watched file settles.
type Watcher struct {
	path     string
	delay    time.Duration
	onChange func() error
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory containing file, so editors that
// replace the file on save are still seen. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(file string, debounce time.Duration, onChange func() error) (*Watcher, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", file, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: path, delay: debounce, onChange: onChange, fsw: fsw}, nil
}

// Run calls onChange once, then again after every debounced write to the
// file until ctx is done. Only the first call's error is returned, later
// ones are logged.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.onChange(); err != nil {
		return err
	}

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(w.delay)
				pending = timer.C
			}

		case <-pending:
			pending = nil
			if err := w.onChange(); err != nil {
				debug.Error("watch", "rerun failed", "file", w.path, "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			debug.Warn("watch", "fsnotify error", "file", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	path, err := filepath.Abs(ev.Name)
	return err == nil && path == w.path
}
