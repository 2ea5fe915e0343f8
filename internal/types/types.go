package types

import (
	"fmt"
	"strings"
	"time"
)

// Common system-wide constants
const (
	// DefaultMaxFileSize is the largest source file the indexer will parse.
	// Controller sources are small; anything above this is generated code.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	// DefaultWatchDebounceMs is the quiescence window for batching file events.
	DefaultWatchDebounceMs = 150

	// DefaultMinRescanIntervalSec is the minimum time between index refreshes
	// triggered by file-change notifications. Notifications arriving inside
	// this window are dropped, not queued.
	DefaultMinRescanIntervalSec = 600 // 10 minutes

	// DefaultMaxResults caps the number of routes a search returns to callers.
	DefaultMaxResults = 200
)

// HTTPMethod is an HTTP verb a route responds to.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
	MethodPatch  HTTPMethod = "PATCH"
)

// AllMethods lists every verb the scanner can emit, in table order.
var AllMethods = []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// ParseMethod maps a case-insensitive verb token to an HTTPMethod.
// Returns false for anything outside the supported verb set.
func ParseMethod(s string) (HTTPMethod, bool) {
	switch strings.ToUpper(s) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "DELETE":
		return MethodDelete, true
	case "PATCH":
		return MethodPatch, true
	}
	return "", false
}

// MemberRef is an opaque handle to the declaration that owns a route.
// It is produced by the symbol provider and used only to navigate back to
// source; the route store never dereferences it.
type MemberRef interface {
	// Navigate returns the declaring file and the byte offset of the member.
	Navigate() (filePath string, offset int)
}

// Route is one HTTP-exposed operation found in the workspace.
//
// Path is always normalized: single leading slash, no trailing slash unless
// the path is exactly "/". A Route whose Owner cannot be resolved is invalid
// and must not enter the store.
type Route struct {
	Method     HTTPMethod
	Path       string
	Owner      MemberRef
	TypeName   string
	MemberName string
	ModuleName string
}

// String renders the route the way search output displays it.
func (r Route) String() string {
	return fmt.Sprintf("%-6s %s  (%s.%s) [%s]", r.Method, r.Path, r.TypeName, r.MemberName, r.ModuleName)
}

// PersistedRoute is the durable projection of a Route. It carries no live
// symbol handle; instead it records the declaring file and a member signature
// stable enough to re-locate the exact member after a restart.
type PersistedRoute struct {
	Method     string `toml:"method"`
	Path       string `toml:"path"`
	TypeName   string `toml:"type"`
	MemberName string `toml:"member"`
	ModuleName string `toml:"module"`
	FilePath   string `toml:"file"`
	Signature  string `toml:"signature"`
}

// FileStamp records what a file looked like when the index was last persisted.
// ModTime drives the drift check; Digest (xxhash64 of the content) catches
// edits that preserve the timestamp.
type FileStamp struct {
	ModTime time.Time `toml:"mtime"`
	Digest  uint64    `toml:"digest"`
}

// IndexState is the persisted aggregate: the route set, per-file stamps, and
// the time of the last successful index.
type IndexState struct {
	Routes    []PersistedRoute     `toml:"routes"`
	Files     map[string]FileStamp `toml:"files"`
	IndexedAt time.Time            `toml:"indexed_at"`
}

// Empty reports whether the state carries no usable routes.
func (s *IndexState) Empty() bool {
	return s == nil || len(s.Routes) == 0
}

// FileEventKind classifies a change notification.
type FileEventKind int

const (
	FileCreated FileEventKind = iota
	FileModified
	FileDeleted
)

// FileEvent is one file-change notification from the watch source.
type FileEvent struct {
	Path string
	Kind FileEventKind
}
