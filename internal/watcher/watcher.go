// Package watcher reports debounced changes to artifact definition files.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/open-edge-platform/artifact-validator/internal/definitions"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
)

// Watcher monitors definition files and directories and signals when any of
// them changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]bool
	dirs      map[string]bool
	extension string
	debounce  time.Duration
	log       *zap.SugaredLogger
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Paths are definition files or directories of definition files.
	Paths []string
	// Extension selects the files of watched directories, "*" for all.
	Extension   string
	DebounceDur time.Duration
}

// DefaultConfig returns the defaults for watching paths.
func DefaultConfig(paths ...string) Config {
	return Config{
		Paths:       paths,
		Extension:   definitions.DefaultExtension,
		DebounceDur: 500 * time.Millisecond,
	}
}

// New creates a watcher for the configured paths. Files are watched through
// their parent directory so that editors replacing the file are noticed.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	extension := strings.TrimPrefix(cfg.Extension, ".")
	if extension == "" {
		extension = definitions.DefaultExtension
	}

	w := &Watcher{
		fsWatcher: fsw,
		files:     make(map[string]bool),
		dirs:      make(map[string]bool),
		extension: extension,
		debounce:  cfg.DebounceDur,
		log:       logger.Named("watcher"),
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, path := range cfg.Paths {
		info, err := os.Stat(path)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("accessing %s: %w", path, err)
		}
		if info.IsDir() {
			w.dirs[filepath.Clean(path)] = true
		} else {
			w.files[filepath.Clean(path)] = true
		}
	}
	return w, nil
}

// Start begins watching. The returned channel receives a signal after the
// watched files stop changing for the debounce duration.
func (w *Watcher) Start() (<-chan struct{}, error) {
	watched := make(map[string]bool)
	for dir := range w.dirs {
		watched[dir] = true
	}
	for file := range w.files {
		watched[filepath.Dir(file)] = true
	}
	for dir := range watched {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
		w.log.Debugf("Watching directory: %s", dir)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// Run calls fn once and again after every change until ctx is done.
func (w *Watcher) Run(ctx context.Context, fn func()) error {
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	fn()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			fn()
		}
	}
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			w.log.Debugf("Definitions changed: %s (%s)", event.Name, event.Op)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-timerC(timer):
			if pending {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Watch error: %v", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func timerC(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}

// isRelevantEvent reports whether the event touches a watched file or a file
// of a watched directory with the configured extension.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)
	if w.files[name] {
		return true
	}
	if !w.dirs[filepath.Dir(name)] {
		return false
	}
	return w.extension == "*" || strings.TrimPrefix(filepath.Ext(name), ".") == w.extension
}
