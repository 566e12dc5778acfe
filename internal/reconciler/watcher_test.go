package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "rules.yaml")
	ignored := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("[]"), 0o644))

	w, err := NewFileWatcher([]string{watched}, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(changed []string) {
			changes <- changed
			cancel()
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("- name: r1\n"), 0o644))

	select {
	case changed := <-changes:
		abs, _ := filepath.Abs(watched)
		assert.Equal(t, []string{abs}, changed)
	case <-time.After(4 * time.Second):
		t.Fatal("no change reported")
	}
	assert.NoError(t, <-done)
}

func TestNewFileWatcherDefaults(t *testing.T) {
	w, err := NewFileWatcher([]string{"a/one.yaml", "a/two.yaml", "b/three.yaml"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, w.debounceInterval)
	assert.Len(t, w.files, 3)
	assert.Len(t, w.dirs, 2)
}
