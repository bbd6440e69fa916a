package placer

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"TrackVault/logger"

	"github.com/fsnotify/fsnotify"
)

// Janitor watches the staging directory and sweeps temp files that were
// orphaned by crashed or aborted downloads. All removal is best effort:
// failures are logged at info level and never surfaced.
type Janitor struct {
	stagingDir string
	maxAge     time.Duration

	mu      sync.Mutex
	seen    map[string]time.Time
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewJanitor creates a janitor for stagingDir. Files older than maxAge that
// are still in staging get swept.
func NewJanitor(stagingDir string, maxAge time.Duration) *Janitor {
	return &Janitor{
		stagingDir: stagingDir,
		maxAge:     maxAge,
		seen:       make(map[string]time.Time),
		done:       make(chan struct{}),
	}
}

// Start begins watching and sweeping. Returns an error only when the watch
// cannot be established; sweep errors are swallowed.
func (j *Janitor) Start() error {
	if err := os.MkdirAll(j.stagingDir, 0755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(j.stagingDir); err != nil {
		watcher.Close()
		return err
	}
	j.watcher = watcher

	// Anything already in staging at startup is a leftover from a previous
	// run and ages from now.
	if entries, err := os.ReadDir(j.stagingDir); err == nil {
		now := time.Now()
		j.mu.Lock()
		for _, entry := range entries {
			if !entry.IsDir() {
				j.seen[filepath.Join(j.stagingDir, entry.Name())] = now
			}
		}
		j.mu.Unlock()
	}

	go j.watch()
	go j.sweepLoop()
	return nil
}

// Stop ends watching and sweeping.
func (j *Janitor) Stop() {
	close(j.done)
	if j.watcher != nil {
		j.watcher.Close()
	}
}

// Forget removes a path from sweep tracking, for files the pipeline moved
// into the library itself.
func (j *Janitor) Forget(path string) {
	j.mu.Lock()
	delete(j.seen, path)
	j.mu.Unlock()
}

func (j *Janitor) watch() {
	for {
		select {
		case event, ok := <-j.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				j.mu.Lock()
				if _, exists := j.seen[event.Name]; !exists {
					j.seen[event.Name] = time.Now()
				}
				j.mu.Unlock()
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				j.Forget(event.Name)
			}
		case _, ok := <-j.watcher.Errors:
			if !ok {
				return
			}
		case <-j.done:
			return
		}
	}
}

func (j *Janitor) sweepLoop() {
	ticker := time.NewTicker(j.maxAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.done:
			return
		}
	}
}

func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.maxAge)

	j.mu.Lock()
	var stale []string
	for path, firstSeen := range j.seen {
		if firstSeen.Before(cutoff) {
			stale = append(stale, path)
		}
	}
	j.mu.Unlock()

	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Info("failed to sweep orphaned temp file",
				logger.String("path", path), logger.ErrorField(err))
			continue
		}
		logger.Info("swept orphaned temp file", logger.String("path", path))
		j.Forget(path)
	}
}
