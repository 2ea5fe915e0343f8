// Package query answers route searches against the current cache snapshot.
// The search path is synchronous and read-only: it never triggers a scan and
// never blocks on one; callers surface indexing status separately.
package query

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/lri/internal/debug"
	"github.com/standardbeagle/lri/internal/types"
)

// normCacheSize bounds the memo of normalized route paths. Route paths
// re-normalize on every search otherwise; workspaces rarely exceed this.
const normCacheSize = 4096

// suggestThreshold is the minimum Jaro-Winkler similarity for a member-name
// suggestion on a zero-result search.
const suggestThreshold = 0.82

// RouteSource is the cache the engine reads. Satisfied by *store.Store.
type RouteSource interface {
	CurrentRoutes() []types.Route
}

// Engine normalizes queries and matches them against cached routes.
type Engine struct {
	source   RouteSource
	prefixes func() []string

	normCache *lru.Cache[string, string]
}

// NewEngine creates an engine over a route source. prefixes supplies the
// configured service-name prefixes on each search, so settings changes take
// effect without rebuilding the engine.
func NewEngine(source RouteSource, prefixes func() []string) *Engine {
	cache, _ := lru.New[string, string](normCacheSize)
	if prefixes == nil {
		prefixes = func() []string { return nil }
	}
	return &Engine{source: source, prefixes: prefixes, normCache: cache}
}

// Search returns the cached routes matching the raw query, in cache insertion
// order. A blank query returns the whole cache. Search never returns an
// error: malformed input degrades to fewer or zero matches.
func (e *Engine) Search(rawQuery string) []types.Route {
	routes := e.source.CurrentRoutes()

	trimmed := strings.TrimSpace(strings.ToLower(rawQuery))
	if trimmed == "" {
		return routes
	}

	verb, pathQuery := splitVerbFilter(trimmed)
	variants := e.searchVariants(pathQuery)
	debug.LogQuery("query %q -> verb=%q variants=%v\n", rawQuery, verb, variants)

	var matches []types.Route
	for _, r := range routes {
		if verb != "" && !strings.EqualFold(string(r.Method), verb) {
			continue
		}
		if e.routeMatches(r, variants) {
			matches = append(matches, r)
		}
	}
	return matches
}

// Suggest offers nearby member names for a query that matched nothing,
// ranked by Jaro-Winkler similarity. Purely advisory; never affects Search.
func (e *Engine) Suggest(rawQuery string) []string {
	trimmed := strings.TrimSpace(strings.ToLower(rawQuery))
	if trimmed == "" {
		return nil
	}
	_, pathQuery := splitVerbFilter(trimmed)
	needle := strings.Trim(pathQuery, "/")
	if needle == "" {
		return nil
	}

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	seen := make(map[string]bool)

	for _, r := range e.source.CurrentRoutes() {
		name := r.MemberName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		score, err := edlib.StringsSimilarity(needle, strings.ToLower(name), edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			continue
		}
		candidates = append(candidates, scored{name: name, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]string, 0, 3)
	for _, c := range candidates {
		out = append(out, c.name)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// splitVerbFilter splits the query once on the first space: a leading verb
// token becomes the filter, the remainder the path query. Without a verb
// token the whole string is the path query.
func splitVerbFilter(trimmed string) (verb, pathQuery string) {
	first, rest, found := strings.Cut(trimmed, " ")
	if found {
		if _, ok := types.ParseMethod(first); ok {
			return first, strings.TrimSpace(rest)
		}
	} else if _, ok := types.ParseMethod(trimmed); ok {
		return trimmed, ""
	}
	return "", trimmed
}

// searchVariants produces the normalized query plus, per configured service
// prefix, a variant with its "/api/<prefix>/" segment collapsed to "/api/"
// and - when the query carries no qualifier - a variant with the prefix
// inserted. A caller can type the service-qualified path and still match
// routes recorded without the qualifier, or vice versa.
func (e *Engine) searchVariants(pathQuery string) []string {
	base := normalizePlaceholders(cleanQueryPath(pathQuery))
	variants := []string{base}

	for _, prefix := range e.prefixes() {
		prefix = strings.ToLower(strings.Trim(prefix, "/"))
		if prefix == "" {
			continue
		}
		qualified := "/api/" + prefix + "/"
		if strings.Contains(base, qualified) {
			variants = append(variants, strings.Replace(base, qualified, "/api/", 1))
		} else if strings.Contains(base, "/api/") {
			variants = append(variants, strings.Replace(base, "/api/", qualified, 1))
		}
	}

	return variants
}

// routeMatches reports whether any variant is a substring of the route's
// normalized path, its member name, or its module name, case-insensitively.
func (e *Engine) routeMatches(r types.Route, variants []string) bool {
	path := e.normalizedPath(r.Path)
	member := strings.ToLower(r.MemberName)
	module := strings.ToLower(r.ModuleName)

	for _, v := range variants {
		if v == "" {
			return true
		}
		if strings.Contains(path, v) || strings.Contains(member, v) || strings.Contains(module, v) {
			return true
		}
	}
	return false
}

// normalizedPath memoizes the placeholder normalization of stored paths.
// The stored path runs through the same placeholder rule as the query.
func (e *Engine) normalizedPath(path string) string {
	if cached, ok := e.normCache.Get(path); ok {
		return cached
	}
	normalized := normalizePlaceholders(strings.ToLower(path))
	e.normCache.Add(path, normalized)
	return normalized
}
