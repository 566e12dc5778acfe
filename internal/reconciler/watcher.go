package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"scmcicd/pkg/logging"
)

// FileWatcher reports changes to a fixed set of input files.
//
// It watches the directories holding the files rather than the files
// themselves, so editors that save by renaming a temp file are still seen.
// Bursts of events are debounced into a single notification.
type FileWatcher struct {
	// files is the set of watched files, as cleaned absolute paths
	files map[string]bool

	// dirs are the directories passed to fsnotify
	dirs []string

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration
}

// NewFileWatcher creates a watcher for files.
func NewFileWatcher(files []string, debounceInterval time.Duration) (*FileWatcher, error) {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}

	w := &FileWatcher{
		files:            make(map[string]bool, len(files)),
		debounceInterval: debounceInterval,
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		w.dirs = append(w.dirs, d)
	}
	sort.Strings(w.dirs)
	return w, nil
}

// Watch blocks until ctx is done, calling onChange with the sorted list of
// changed files after each debounced burst. onChange runs on the calling
// goroutine, so no two calls overlap.
func (w *FileWatcher) Watch(ctx context.Context, onChange func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("Reconciler", err, "Error closing file watcher")
		}
	}()

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Debug("Reconciler", "Watching directory: %s", dir)
	}
	logging.Info("Reconciler", "Watching %d file(s) for changes", len(w.files))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounceInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = true
			timer.Reset(w.debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Reconciler", err, "File watcher error")

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for f := range pending {
				changed = append(changed, f)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			logging.Debug("Reconciler", "Input files changed: %s", strings.Join(changed, ", "))
			onChange(changed)
		}
	}
}

// relevant reports whether event concerns a watched file's content.
func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
