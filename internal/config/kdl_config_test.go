package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lri/internal/types"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(types.DefaultMaxFileSize), cfg.Index.MaxFileSize)
	assert.True(t, cfg.Index.WatchMode)
	assert.Equal(t, types.DefaultWatchDebounceMs, cfg.Index.WatchDebounceMs)
	assert.Equal(t, types.DefaultMinRescanIntervalSec, cfg.Index.MinRescanIntervalSec)
	assert.Equal(t, types.DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, []string{"**/*.java"}, cfg.Include)
}

func TestParseKDL_FullConfig(t *testing.T) {
	kdlContent := `
project {
    root "services"
    name "shop"
}
index {
    max_file_size 1048576
    watch_mode false
    watch_debounce_ms 250
    min_rescan_interval_sec 120
}
search {
    max_results 50
    service_prefixes "user" "order"
}
include "**/*.java" "**/*.kt"
exclude "**/generated/**"
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "services", cfg.Project.Root)
	assert.Equal(t, "shop", cfg.Project.Name)
	assert.Equal(t, int64(1048576), cfg.Index.MaxFileSize)
	assert.False(t, cfg.Index.WatchMode)
	assert.Equal(t, 250, cfg.Index.WatchDebounceMs)
	assert.Equal(t, 120, cfg.Index.MinRescanIntervalSec)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, []string{"user", "order"}, cfg.Search.ServicePrefixes)
	assert.Equal(t, []string{"**/*.java", "**/*.kt"}, cfg.Include)
	assert.Equal(t, []string{"**/generated/**"}, cfg.Exclude)
}

func TestParseKDL_PartialConfigKeepsDefaults(t *testing.T) {
	kdlContent := `
search {
    max_results 25
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.True(t, cfg.Index.WatchMode)
	assert.Equal(t, types.DefaultWatchDebounceMs, cfg.Index.WatchDebounceMs)
}

func TestParseKDL_PrefixesSanitized(t *testing.T) {
	kdlContent := `
search {
    service_prefixes "/user/" "  " "order"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "order"}, cfg.Search.ServicePrefixes)
}

func TestParseKDL_Invalid(t *testing.T) {
	_, err := parseKDL(`project { root `)
	assert.Error(t, err)
}

func TestLoadKDL_MissingFileFallsBack(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDL_ResolvesRootAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("project {\n    root \"services\"\n}\n"), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, filepath.Join(dir, "services"), cfg.Project.Root)
	assert.Equal(t, "services", cfg.Project.Name)
}

func TestSetServicePrefixes_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)

	require.NoError(t, cfg.SetServicePrefixes([]string{"/user/", "", "order"}))
	assert.Equal(t, []string{"user", "order"}, cfg.ServicePrefixes())

	// The rewritten file parses back to the same settings.
	loaded, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"user", "order"}, loaded.ServicePrefixes())
	assert.Equal(t, cfg.Index.MaxFileSize, loaded.Index.MaxFileSize)
	assert.Equal(t, cfg.Search.MaxResults, loaded.Search.MaxResults)
}
