package indexing

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lri/internal/config"
	"github.com/standardbeagle/lri/internal/debug"
	"github.com/standardbeagle/lri/internal/types"
)

// controllerNameHints is the cheap file-name prefilter for change
// notifications. It is not authoritative - the scanner re-verifies through
// annotations - it only keeps unrelated source churn out of the updater.
var controllerNameHints = []string{"controller", "resource", "endpoint"}

// sourceExtensions are the file extensions the watcher reacts to.
var sourceExtensions = []string{".java"}

// FileWatcher monitors the workspace and delivers debounced batches of
// file-change events to the updater.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	cfg       *config.Config
	debouncer *eventDebouncer
	onBatch   func(events []types.FileEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu         sync.RWMutex
	eventsProcessed int64
	lastEventTime   time.Time
}

// NewFileWatcher creates a watcher that calls onBatch with each debounced
// event batch.
func NewFileWatcher(cfg *config.Config, onBatch func(events []types.FileEvent)) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FileWatcher{
		watcher: watcher,
		cfg:     cfg,
		onBatch: onBatch,
		ctx:     ctx,
		cancel:  cancel,
	}
	fw.debouncer = newEventDebouncer(time.Duration(cfg.Index.WatchDebounceMs)*time.Millisecond, fw.flushBatch)

	return fw, nil
}

// Start adds watches for the workspace directory tree and begins processing.
func (fw *FileWatcher) Start() error {
	debug.LogIndexing("starting file watcher for %s\n", fw.cfg.Project.Root)

	if err := fw.addWatches(fw.cfg.Project.Root); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// Stop shuts the watcher down and waits for its goroutine. Events pending in
// the debouncer at shutdown are dropped; the index is being torn down anyway.
func (fw *FileWatcher) Stop() error {
	fw.cancel()
	fw.debouncer.stop()

	if err := fw.watcher.Close(); err != nil {
		log.Printf("error closing fsnotify watcher: %v", err)
	}

	fw.wg.Wait()
	return nil
}

// addWatches recursively watches all relevant directories. Symlink cycles are
// broken by tracking resolved paths.
func (fw *FileWatcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if !info.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if fw.ignoredDirectory(path) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// ignoredDirectory checks a directory against the exclude patterns.
func (fw *FileWatcher) ignoredDirectory(path string) bool {
	rel, err := filepath.Rel(fw.cfg.Project.Root, path)
	if err != nil || rel == "." {
		return false
	}
	slashed := filepath.ToSlash(rel)

	for _, pattern := range fw.cfg.Exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := doublestar.Match(dirPattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
	}
	return false
}

// processEvents drains fsnotify until shutdown.
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("file watcher error: %v", err)
		}
	}
}

// handleEvent classifies one fsnotify event and hands it to the debouncer.
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	info, err := os.Stat(path)
	if err != nil {
		// The path is gone; only removals are interesting now.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && fw.interestingFile(path) {
			fw.debouncer.add(fw.relPath(path), types.FileDeleted)
		}
		return
	}

	if info.IsDir() {
		// Watch newly created directories so files inside them are seen.
		if event.Op&fsnotify.Create != 0 && !fw.ignoredDirectory(path) {
			if err := fw.watcher.Add(path); err != nil {
				log.Printf("warning: failed to watch new directory %s: %v", path, err)
			}
		}
		return
	}

	if info.Size() > fw.cfg.Index.MaxFileSize || !fw.interestingFile(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		fw.debouncer.add(fw.relPath(path), types.FileCreated)
	case event.Op&fsnotify.Write != 0:
		fw.debouncer.add(fw.relPath(path), types.FileModified)
	}
}

// interestingFile applies the extension check and the controller-name hint.
func (fw *FileWatcher) interestingFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, e := range sourceExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return false
	}

	base := strings.ToLower(filepath.Base(path))
	for _, hint := range controllerNameHints {
		if strings.Contains(base, hint) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) relPath(abs string) string {
	rel, err := filepath.Rel(fw.cfg.Project.Root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// flushBatch forwards one debounced batch to the updater and updates stats.
func (fw *FileWatcher) flushBatch(events []types.FileEvent) {
	if fw.ctx.Err() != nil {
		return
	}

	fw.statsMu.Lock()
	fw.eventsProcessed += int64(len(events))
	fw.lastEventTime = time.Now()
	fw.statsMu.Unlock()

	if fw.onBatch != nil {
		fw.onBatch(events)
	}
}

// Stats returns watch statistics for diagnostics.
func (fw *FileWatcher) Stats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed: fw.eventsProcessed,
		LastEventTime:   fw.lastEventTime,
		IsActive:        fw.ctx.Err() == nil,
	}
}

// WatchStats contains statistics about file watching.
type WatchStats struct {
	EventsProcessed int64
	LastEventTime   time.Time
	IsActive        bool
}

// eventDebouncer coalesces file events until a quiescence window elapses, so
// a save-then-reformat burst produces one batch instead of many.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]types.FileEventKind
	debounce time.Duration
	timer    *time.Timer
	flush    func(events []types.FileEvent)
	stopped  bool
}

func newEventDebouncer(debounce time.Duration, flush func([]types.FileEvent)) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]types.FileEventKind),
		debounce: debounce,
		flush:    flush,
	}
}

// add records the latest event kind for a path and restarts the timer.
func (d *eventDebouncer) add(path string, kind types.FileEventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.events[path] = kind

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.fire)
}

// fire drains the accumulated events into one batch.
func (d *eventDebouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]types.FileEventKind)
	d.mu.Unlock()

	batch := make([]types.FileEvent, 0, len(events))
	// Deletions first so resources are released before re-parses.
	for path, kind := range events {
		if kind == types.FileDeleted {
			batch = append(batch, types.FileEvent{Path: path, Kind: kind})
		}
	}
	for path, kind := range events {
		if kind != types.FileDeleted {
			batch = append(batch, types.FileEvent{Path: path, Kind: kind})
		}
	}

	debug.LogIndexing("flushing %d debounced file events\n", len(batch))
	d.flush(batch)
}

// stop prevents further flushes.
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
