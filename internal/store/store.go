// Package store holds the live route cache: a flattened route list plus a
// per-file grouping, published together by a single atomic snapshot swap so
// readers never observe a half-updated state.
package store

import (
	"sort"
	"sync/atomic"

	"github.com/standardbeagle/lri/internal/debug"
	"github.com/standardbeagle/lri/internal/types"
)

// State models the idle/scanning lifecycle explicitly, as one value instead
// of independent flags that could disagree.
type State int32

const (
	// StateEmpty means no scan has completed yet.
	StateEmpty State = iota
	// StateReady means a complete snapshot is published.
	StateReady
	// StateScanningInitial means the first scan is in flight.
	StateScanningInitial
	// StateScanningRefresh means a scan is in flight over a published snapshot.
	StateScanningRefresh
)

// snapshot is one immutable published generation of the cache. The flattened
// slice is always exactly the concatenation of the per-file groups.
type snapshot struct {
	flattened []types.Route
	byFile    map[string][]types.Route
}

var emptySnapshot = &snapshot{byFile: map[string][]types.Route{}}

// Store is the in-memory route cache.
//
// Thread safety: readers take the current snapshot pointer atomically and
// never block; writers prepare a complete new snapshot off to the side and
// swap it in. The single-flight guard lives in the state word: at most one
// scan (full or incremental) holds it at a time.
type Store struct {
	snap  atomic.Pointer[snapshot]
	state atomic.Int32

	// writeThrough, when set, runs after every successful publish with the
	// new flattened cache. Best-effort persistence hangs off this hook.
	writeThrough atomic.Pointer[func([]types.Route)]
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.snap.Store(emptySnapshot)
	s.state.Store(int32(StateEmpty))
	return s
}

// SetWriteThrough installs the post-publish persistence hook.
func (s *Store) SetWriteThrough(fn func([]types.Route)) {
	s.writeThrough.Store(&fn)
}

// CurrentRoutes returns the flattened cache. Non-blocking; the returned
// slice is a defensive copy.
func (s *Store) CurrentRoutes() []types.Route {
	flattened := s.snap.Load().flattened
	if len(flattened) == 0 {
		return nil
	}
	out := make([]types.Route, len(flattened))
	copy(out, flattened)
	return out
}

// RoutesForFile returns the routes currently grouped under one file.
func (s *Store) RoutesForFile(path string) []types.Route {
	group := s.snap.Load().byFile[path]
	if len(group) == 0 {
		return nil
	}
	out := make([]types.Route, len(group))
	copy(out, group)
	return out
}

// Files returns the file paths that currently declare routes.
func (s *Store) Files() []string {
	byFile := s.snap.Load().byFile
	out := make([]string, 0, len(byFile))
	for path := range byFile {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of cached routes.
func (s *Store) Len() int {
	return len(s.snap.Load().flattened)
}

// IsIndexing reports whether a scan is in flight or the first scan has not
// completed yet.
func (s *Store) IsIndexing() bool {
	return State(s.state.Load()) != StateReady
}

// TryBeginScan acquires the single-flight guard. A second trigger while a
// scan is in flight gets false and must not queue.
func (s *Store) TryBeginScan() bool {
	if s.state.CompareAndSwap(int32(StateEmpty), int32(StateScanningInitial)) {
		return true
	}
	return s.state.CompareAndSwap(int32(StateReady), int32(StateScanningRefresh))
}

// EndScan releases the guard. On failure the state falls back to whatever it
// was before the scan started; the published snapshot is already untouched.
func (s *Store) EndScan(succeeded bool) {
	switch State(s.state.Load()) {
	case StateScanningInitial:
		if succeeded {
			s.state.Store(int32(StateReady))
		} else {
			s.state.Store(int32(StateEmpty))
		}
	case StateScanningRefresh:
		s.state.Store(int32(StateReady))
	}
}

// ReplaceAll atomically installs a full scan result, regrouping the routes by
// declaring file. Partial results are never published; callers pass the
// complete route set or nothing.
func (s *Store) ReplaceAll(routes []types.Route) {
	byFile := make(map[string][]types.Route)
	for _, r := range routes {
		// A route without a resolvable owner is invalid and never cached.
		if r.Owner == nil {
			continue
		}
		path := routeFile(r)
		byFile[path] = append(byFile[path], r)
	}
	s.publish(byFile)
}

// UpdateFile replaces the per-file group of exactly one file. An empty group
// deletes the file's entry. Groups of other files are carried over untouched.
func (s *Store) UpdateFile(path string, routes []types.Route) {
	s.UpdateFiles(map[string][]types.Route{path: routes})
}

// UpdateFiles replaces the per-file groups of the given files in one publish,
// so a debounced batch of changes becomes a single new snapshot. An empty or
// nil group deletes that file's entry; unaffected files keep their groups.
func (s *Store) UpdateFiles(groups map[string][]types.Route) {
	current := s.snap.Load().byFile
	byFile := make(map[string][]types.Route, len(current)+len(groups))
	for k, v := range current {
		if _, replaced := groups[k]; !replaced {
			byFile[k] = v
		}
	}
	for path, routes := range groups {
		if len(routes) > 0 {
			byFile[path] = routes
		}
	}
	s.publish(byFile)
}

// Invalidate empties the store when the workspace session ends.
func (s *Store) Invalidate() {
	s.snap.Store(emptySnapshot)
	s.state.Store(int32(StateEmpty))
}

// publish rebuilds the flattened cache as the concatenation of the per-file
// groups (file order is stable: lexicographic) and swaps the snapshot in.
func (s *Store) publish(byFile map[string][]types.Route) {
	paths := make([]string, 0, len(byFile))
	total := 0
	for path, group := range byFile {
		paths = append(paths, path)
		total += len(group)
	}
	sort.Strings(paths)

	flattened := make([]types.Route, 0, total)
	for _, path := range paths {
		flattened = append(flattened, byFile[path]...)
	}

	s.snap.Store(&snapshot{flattened: flattened, byFile: byFile})
	debug.LogIndexing("published snapshot: %d routes across %d files\n", total, len(paths))

	if fn := s.writeThrough.Load(); fn != nil {
		(*fn)(flattened)
	}
}

// routeFile resolves the declaring file of a route through its owner handle.
func routeFile(r types.Route) string {
	if r.Owner == nil {
		return ""
	}
	path, _ := r.Owner.Navigate()
	return path
}
