package watcher_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/artifact-validator/internal/watcher"
)

func newWatcher(t *testing.T, paths ...string) (*watcher.Watcher, <-chan struct{}) {
	t.Helper()
	cfg := watcher.DefaultConfig(paths...)
	cfg.DebounceDur = 50 * time.Millisecond

	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return w, onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Test\n"), 0644))

	_, onChange := newWatcher(t, path)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("name: Test%d\n", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("name: Test\n"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0644))

	_, onChange := newWatcher(t, path)

	require.NoError(t, os.WriteFile(other, []byte("other content"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_DirectoryExtension(t *testing.T) {
	dir := t.TempDir()
	_, onChange := newWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0644))
	select {
	case <-onChange:
		t.Fatal("should not notify for files with another extension")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "windows.yaml"), []byte("name: Test\n"), 0644))
	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for a new definitions file")
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	cfg := watcher.DefaultConfig(dir)
	w, err := watcher.New(cfg)
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Test\n"), 0644))

	cfg := watcher.DefaultConfig(path)
	cfg.DebounceDur = 20 * time.Millisecond
	w, err := watcher.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx, func() { runs.Add(1) })
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: Changed\n"), 0644))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := watcher.New(watcher.Config{})
	assert.Error(t, err)

	_, err = watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("a.yaml", "defs")
	assert.Equal(t, []string{"a.yaml", "defs"}, cfg.Paths)
	assert.Equal(t, "yaml", cfg.Extension)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDur)
}
