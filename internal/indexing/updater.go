// Package indexing keeps the route store fresh: the startup restore, the
// full scan, the per-file incremental update, and the file watcher that
// drives them. At most one scan runs at a time; redundant triggers are
// dropped, never queued.
package indexing

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lri/internal/config"
	"github.com/standardbeagle/lri/internal/debug"
	lrierrors "github.com/standardbeagle/lri/internal/errors"
	"github.com/standardbeagle/lri/internal/persist"
	"github.com/standardbeagle/lri/internal/scanner"
	"github.com/standardbeagle/lri/internal/store"
	"github.com/standardbeagle/lri/internal/symbols"
	"github.com/standardbeagle/lri/internal/types"
)

// rescanWorkers bounds the parallelism of per-file re-resolution in an
// incremental batch.
const rescanWorkers = 4

// invalidator is implemented by providers that cache parses per file.
type invalidator interface {
	Invalidate(path string)
}

// Updater owns the scan lifecycle over one workspace.
type Updater struct {
	cfg       *config.Config
	provider  symbols.Provider
	store     *store.Store
	persister *persist.Persister
	watcher   *FileWatcher

	// lastIndex is the unix-nano time of the last successful index, read by
	// the minimum-interval throttle.
	lastIndex atomic.Int64

	wg sync.WaitGroup
}

// NewUpdater wires the updater to its collaborators and installs the
// write-through persistence hook on the store.
func NewUpdater(cfg *config.Config, provider symbols.Provider, st *store.Store, persister *persist.Persister) *Updater {
	u := &Updater{
		cfg:       cfg,
		provider:  provider,
		store:     st,
		persister: persister,
	}

	// Write-through: persistence runs synchronously after each successful
	// cache publish and is best-effort - a failed save leaves the in-memory
	// cache authoritative and is only logged.
	st.SetWriteThrough(func(routes []types.Route) {
		stamps := persist.StampFiles(cfg.Project.Root, st.Files())
		if err := persister.Save(routes, stamps); err != nil {
			log.Printf("route index write-through failed: %v", err)
		}
	})

	return u
}

// Start populates the store - from the persisted snapshot when it restores
// cleanly, otherwise by a full scan - and begins watching for changes when
// watch mode is enabled.
func (u *Updater) Start(ctx context.Context) error {
	if !u.tryRestore(ctx) {
		if err := u.FullScan(ctx); err != nil {
			log.Printf("initial scan failed: %v", err)
		}
	}

	if u.cfg.Index.WatchMode {
		watcher, err := NewFileWatcher(u.cfg, u.handleBatch)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		u.watcher = watcher
	}

	return nil
}

// Stop shuts down the watcher, waits for in-flight work, and empties the
// store; the workspace session is over.
func (u *Updater) Stop() {
	if u.watcher != nil {
		_ = u.watcher.Stop()
	}
	u.wg.Wait()
	u.store.Invalidate()
}

// tryRestore adopts the persisted snapshot when it yields a non-empty,
// resolved route set. It then schedules a background freshness check that
// re-scans any files that drifted since the snapshot was written.
func (u *Updater) tryRestore(ctx context.Context) bool {
	state, err := u.persister.Load()
	if err != nil {
		log.Printf("failed to load persisted route index: %v", err)
		return false
	}
	if state.Empty() {
		return false
	}

	restored := u.persister.Restore(ctx, state.Routes)
	if len(restored) == 0 {
		return false
	}
	debug.LogIndexing("restored %d of %d persisted routes\n", len(restored), len(state.Routes))

	if !u.store.TryBeginScan() {
		return false
	}
	u.store.ReplaceAll(restored)
	u.store.EndScan(true)
	u.lastIndex.Store(state.IndexedAt.UnixNano())

	// Freshness check: the snapshot may predate edits made while no watcher
	// was running. Drifted files get a normal incremental update, off the
	// startup path.
	files := state.Files
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		drifted := persist.Drifted(u.cfg.Project.Root, files)
		if len(drifted) == 0 {
			return
		}
		debug.LogIndexing("freshness check: %d files drifted since last persist\n", len(drifted))
		u.rescanFiles(context.Background(), drifted)
	}()

	return true
}

// FullScan rebuilds the entire index. It ignores the minimum-interval
// throttle - only change notifications are throttled - but still respects
// the single-flight guard: a scan already in flight wins and this call is a
// no-op.
func (u *Updater) FullScan(ctx context.Context) error {
	if !u.store.TryBeginScan() {
		debug.LogIndexing("full scan dropped: scan already in flight\n")
		return nil
	}

	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			log.Printf("full scan panicked: %v", r)
		}
		u.store.EndScan(succeeded)
	}()

	controllers, err := scanner.CollectControllers(ctx, u.provider)
	if err != nil {
		scanErr := lrierrors.NewScanError("full scan", err)
		log.Printf("%v", scanErr)
		return scanErr
	}

	routes := scanner.Scan(controllers)
	u.store.ReplaceAll(routes)
	u.lastIndex.Store(time.Now().UnixNano())
	succeeded = true

	debug.LogIndexing("full scan complete: %d controllers, %d routes\n", len(controllers), len(routes))
	return nil
}

// ForceRebuild schedules a full scan on the background worker. Used by the
// manual refresh surface; the minimum interval does not apply.
func (u *Updater) ForceRebuild() {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		_ = u.FullScan(context.Background())
	}()
}

// IsIndexing reports whether a scan is in flight or the first scan has not
// completed.
func (u *Updater) IsIndexing() bool {
	return u.store.IsIndexing()
}

// handleBatch receives one debounced event batch from the watcher. Batches
// arriving inside the minimum interval since the last successful index are
// dropped outright - a deliberate staleness/throughput trade-off.
func (u *Updater) handleBatch(events []types.FileEvent) {
	minInterval := time.Duration(u.cfg.Index.MinRescanIntervalSec) * time.Second
	if last := u.lastIndex.Load(); last > 0 && time.Since(time.Unix(0, last)) < minInterval {
		debug.LogIndexing("dropping %d file events: inside minimum rescan interval\n", len(events))
		return
	}

	paths := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Kind == types.FileDeleted {
			if inv, ok := u.provider.(invalidator); ok {
				inv.Invalidate(ev.Path)
			}
		}
		paths = append(paths, ev.Path)
	}

	u.rescanFiles(context.Background(), paths)
}

// rescanFiles runs one incremental update over exactly the given files: each
// file's prior group is discarded and rebuilt from the controller-like types
// the file declares now; files that no longer declare any simply lose their
// group. Groups of unaffected files are never touched. On any failure the
// previous cache is left fully intact.
func (u *Updater) rescanFiles(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	if !u.store.TryBeginScan() {
		debug.LogIndexing("incremental update dropped: scan already in flight\n")
		return
	}

	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			log.Printf("incremental update panicked: %v", r)
		}
		u.store.EndScan(succeeded)
	}()

	groups := make(map[string][]types.Route, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rescanWorkers)
	for _, path := range paths {
		g.Go(func() error {
			controllers, err := scanner.CollectControllersInFile(gctx, u.provider, path)
			if err != nil {
				return lrierrors.NewScanError("incremental update", err).WithFile(path)
			}
			routes := scanner.Scan(controllers)

			mu.Lock()
			groups[path] = routes
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("%v", err)
		return
	}

	u.store.UpdateFiles(groups)
	u.lastIndex.Store(time.Now().UnixNano())
	succeeded = true

	debug.LogIndexing("incremental update complete: %d files\n", len(paths))
}
