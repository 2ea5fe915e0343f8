package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/standardbeagle/lri/internal/types"
)

// ConfigFileName is the project-level configuration file.
const ConfigFileName = ".lri.kdl"

type Config struct {
	Version int
	Project Project
	Index   Index
	Search  Search
	Include []string
	Exclude []string

	// path the config was loaded from, used when settings are written back.
	path string
	mu   sync.Mutex
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize          int64
	WatchMode            bool // Enable file system watching for automatic reindexing
	WatchDebounceMs      int  // Debounce time for file change events
	MinRescanIntervalSec int  // Minimum seconds between change-triggered rescans
}

type Search struct {
	MaxResults      int
	ServicePrefixes []string // service-name segments collapsible under /api/
}

// Default returns the built-in configuration rooted at the given directory.
func Default(root string) *Config {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	return &Config{
		Version: 1,
		Project: Project{Root: absRoot, Name: filepath.Base(absRoot)},
		Index: Index{
			MaxFileSize:          types.DefaultMaxFileSize,
			WatchMode:            true,
			WatchDebounceMs:      types.DefaultWatchDebounceMs,
			MinRescanIntervalSec: types.DefaultMinRescanIntervalSec,
		},
		Search: Search{
			MaxResults: types.DefaultMaxResults,
		},
		Include: []string{"**/*.java"},
		Exclude: []string{"**/target/**", "**/build/**", "**/.git/**"},
		path:    filepath.Join(absRoot, ConfigFileName),
	}
}

// Load reads the project configuration from <root>/.lri.kdl, falling back to
// defaults when no file exists.
func Load(root string) (*Config, error) {
	cfg, err := LoadKDL(root)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default(root)
	}
	return cfg, nil
}

// LoadFile reads configuration from an explicitly named KDL file. Unlike
// Load, a missing file is an error since the caller asked for that file.
func LoadFile(path string) (*Config, error) {
	return LoadKDLFile(path)
}

// ServicePrefixes returns the configured service-name prefixes in order.
func (c *Config) ServicePrefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.Search.ServicePrefixes))
	copy(out, c.Search.ServicePrefixes)
	return out
}

// SetServicePrefixes replaces the configured prefixes and writes the config
// file back. Blank entries are filtered out before storage, never surfaced as
// an error to the caller.
func (c *Config) SetServicePrefixes(prefixes []string) error {
	cleaned := sanitizePrefixes(prefixes)

	c.mu.Lock()
	c.Search.ServicePrefixes = cleaned
	c.mu.Unlock()

	return c.save()
}

// sanitizePrefixes drops blank entries and strips surrounding whitespace and
// slashes so "/user/" and "user" configure the same segment.
func sanitizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// save rewrites the config file in canonical form.
func (c *Config) save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path
	if path == "" {
		path = filepath.Join(c.Project.Root, ConfigFileName)
	}

	return os.WriteFile(path, []byte(c.render()), 0644)
}
