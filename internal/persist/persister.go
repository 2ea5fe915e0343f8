// Package persist saves the route index across process restarts. The
// IndexState snapshot lives in <root>/.lri/index.toml; routes are stored
// without live symbol handles and re-resolved from file path plus member
// signature on load, since line and column offsets are unstable across edits.
package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/lri/internal/debug"
	lrierrors "github.com/standardbeagle/lri/internal/errors"
	"github.com/standardbeagle/lri/internal/symbols"
	"github.com/standardbeagle/lri/internal/types"
)

const (
	stateDirName  = ".lri"
	stateFileName = "index.toml"
)

// Persister reads and writes the durable IndexState for one project.
type Persister struct {
	root     string
	provider symbols.Provider
}

// New creates a persister rooted at the project directory.
func New(root string, provider symbols.Provider) *Persister {
	return &Persister{root: root, provider: provider}
}

// StatePath returns the snapshot location.
func (p *Persister) StatePath() string {
	return filepath.Join(p.root, stateDirName, stateFileName)
}

// Save serializes the route set plus the file stamp map and writes the
// snapshot atomically. Routes whose owner handle cannot produce a signature
// are skipped; they would be unrestorable anyway.
func (p *Persister) Save(routes []types.Route, stamps map[string]types.FileStamp) error {
	state := types.IndexState{
		Routes:    make([]types.PersistedRoute, 0, len(routes)),
		Files:     stamps,
		IndexedAt: time.Now(),
	}

	for _, r := range routes {
		member, ok := r.Owner.(symbols.Member)
		if !ok {
			debug.LogPersist("skipping route %s %s: owner is not a symbol member\n", r.Method, r.Path)
			continue
		}
		filePath, _ := member.Navigate()
		state.Routes = append(state.Routes, types.PersistedRoute{
			Method:     string(r.Method),
			Path:       r.Path,
			TypeName:   r.TypeName,
			MemberName: r.MemberName,
			ModuleName: r.ModuleName,
			FilePath:   filePath,
			Signature:  symbols.Signature(member),
		})
	}

	data, err := toml.Marshal(state)
	if err != nil {
		return err
	}

	return p.writeAtomic(data)
}

// Load returns the last-saved IndexState, or an empty state when no snapshot
// exists yet.
func (p *Persister) Load() (*types.IndexState, error) {
	data, err := os.ReadFile(p.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &types.IndexState{Files: map[string]types.FileStamp{}}, nil
		}
		return nil, err
	}

	var state types.IndexState
	if err := toml.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Files == nil {
		state.Files = map[string]types.FileStamp{}
	}
	return &state, nil
}

// Restore re-resolves persisted routes against the current workspace.
// Entries whose file, type, or member can no longer be located are silently
// dropped rather than failing the whole restore.
func (p *Persister) Restore(ctx context.Context, persisted []types.PersistedRoute) []types.Route {
	var routes []types.Route

	for _, pr := range persisted {
		if err := ctx.Err(); err != nil {
			return routes
		}

		member := p.resolveMember(ctx, pr)
		if member == nil {
			continue
		}

		verb, ok := types.ParseMethod(pr.Method)
		if !ok {
			debug.LogPersist("%v\n", lrierrors.NewRestoreError(pr.FilePath, pr.Signature, "unknown verb "+pr.Method))
			continue
		}

		routes = append(routes, types.Route{
			Method:     verb,
			Path:       pr.Path,
			Owner:      member,
			TypeName:   pr.TypeName,
			MemberName: pr.MemberName,
			ModuleName: pr.ModuleName,
		})
	}

	return routes
}

// resolveMember locates the exact member a persisted route pointed at, by
// recomputing candidate signatures and matching them against the saved one.
func (p *Persister) resolveMember(ctx context.Context, pr types.PersistedRoute) symbols.Member {
	t, ok := p.provider.FindType(ctx, pr.FilePath, pr.TypeName)
	if !ok {
		debug.LogPersist("%v\n", lrierrors.NewRestoreError(pr.FilePath, pr.Signature, "file or type missing"))
		return nil
	}

	for _, member := range t.Members() {
		if symbols.Signature(member) == pr.Signature {
			return member
		}
	}

	debug.LogPersist("%v\n", lrierrors.NewRestoreError(pr.FilePath, pr.Signature, "no member with matching signature"))
	return nil
}

// writeAtomic writes the snapshot through a temp file in the same directory
// and renames it into place, so readers never observe a partial file.
func (p *Persister) writeAtomic(data []byte) error {
	dir := filepath.Join(p.root, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, stateFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, p.StatePath())
}
