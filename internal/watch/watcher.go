// Package watch re-runs an analysis when its input files change on disk.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay collapses editor save bursts into one callback
const DefaultDebounceDelay = time.Second

// ChangeFunc receives the groups whose files changed, in resume-first order
type ChangeFunc func(groups []types.GroupID)

type fileState struct {
	modTime time.Time
	size    int64
}

// InputWatcher watches the files backing the input groups
type InputWatcher struct {
	mu sync.RWMutex

	files map[types.GroupID]string
	last  map[string]fileState

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange ChangeFunc
	logger   *errors.Logger

	running bool
}

// NewInputWatcher creates a watcher for the given group files. Empty paths are ignored.
func NewInputWatcher(files map[types.GroupID]string, debounceDelay time.Duration, onChange ChangeFunc, logger *errors.Logger) (*InputWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounceDelay
	}

	watched := make(map[types.GroupID]string, len(files))
	for group, path := range files {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		watched[group] = abs
	}
	if len(watched) == 0 {
		return nil, fmt.Errorf("no input files to watch")
	}

	return &InputWatcher{
		files:         watched,
		last:          make(map[string]fileState),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		onChange:      onChange,
		logger:        logger,
	}, nil
}

// Start begins watching. It fails if the watcher is already running.
func (w *InputWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("input watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	for _, path := range w.paths() {
		if stat, err := os.Stat(path); err == nil {
			w.last[path] = fileState{modTime: stat.ModTime(), size: stat.Size()}
		}
		// editors replace files by rename, so the directory is what we watch
		dir := filepath.Dir(path)
		if err := w.fsWatcher.Add(dir); err != nil {
			w.cleanupWatcher()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	// a stopped watcher can be started again, so each run gets fresh channels
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.watchLoop(watcher, w.stopChan, w.done)

	w.logger.Info("Input file watcher started", "files", w.paths(), "debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. It is safe to call twice.
func (w *InputWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
	done, fsWatcher := w.done, w.fsWatcher
	w.mu.Unlock()

	<-done
	err := fsWatcher.Close()
	if err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
	}
	w.logger.Info("Input file watcher stopped")
	return err
}

// IsRunning returns whether the watcher is currently running
func (w *InputWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetWatchedFiles returns the absolute paths being watched
func (w *InputWatcher) GetWatchedFiles() []string {
	return w.paths()
}

func (w *InputWatcher) cleanupWatcher() {
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			w.logger.LogError(err, "Failed to close file watcher during cleanup")
		}
	}
}

func (w *InputWatcher) paths() []string {
	paths := make([]string, 0, len(w.files))
	for _, group := range groupOrder(w.files) {
		paths = append(paths, w.files[group])
	}
	return paths
}

func (w *InputWatcher) watchLoop(fsWatcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")

		case <-w.reloadChan:
			if changed := w.changedGroups(); len(changed) > 0 {
				w.logger.Info("Input files changed", "groups", changed)
				w.onChange(changed)
			}

		case <-stop:
			return
		}
	}
}

func (w *InputWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		name = event.Name
	}
	if !slices.Contains(w.paths(), name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// changedGroups is only called from the event loop
func (w *InputWatcher) changedGroups() []types.GroupID {
	var changed []types.GroupID
	for _, group := range groupOrder(w.files) {
		if w.hasFileChanged(w.files[group]) {
			changed = append(changed, group)
		}
	}
	return changed
}

func (w *InputWatcher) hasFileChanged(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		// a missing file is mid-rename; wait for the create
		return false
	}
	current := fileState{modTime: stat.ModTime(), size: stat.Size()}
	prev, exists := w.last[path]
	if exists && current == prev {
		return false
	}
	w.last[path] = current
	return true
}

func (w *InputWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}

func groupOrder(files map[types.GroupID]string) []types.GroupID {
	order := make([]types.GroupID, 0, len(files))
	for _, group := range []types.GroupID{types.GroupResume, types.GroupJobDescription} {
		if _, ok := files[group]; ok {
			order = append(order, group)
		}
	}
	return order
}
