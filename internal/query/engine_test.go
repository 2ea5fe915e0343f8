package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lri/internal/types"
)

type stubRef struct{ file string }

func (s stubRef) Navigate() (string, int) { return s.file, 1 }

// fixedSource serves a fixed route list.
type fixedSource struct{ routes []types.Route }

func (f fixedSource) CurrentRoutes() []types.Route { return f.routes }

func route(method types.HTTPMethod, path, member, module string) types.Route {
	return types.Route{
		Method:     method,
		Path:       path,
		Owner:      stubRef{file: member + ".java"},
		TypeName:   "C",
		MemberName: member,
		ModuleName: module,
	}
}

func newTestEngine(prefixes []string, routes ...types.Route) *Engine {
	return NewEngine(fixedSource{routes: routes}, func() []string { return prefixes })
}

func TestSearch_BlankQueryReturnsAll(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/a", "getA", "m"),
		route(types.MethodPost, "/b", "postB", "m"),
	)

	assert.Len(t, e.Search(""), 2)
	assert.Len(t, e.Search("   "), 2)
}

func TestSearch_SubstringOnPath(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/user/info", "getInfo", "user-service"),
		route(types.MethodGet, "/api/order/list", "listOrders", "order-service"),
	)

	results := e.Search("user/info")
	require.Len(t, results, 1)
	assert.Equal(t, "getInfo", results[0].MemberName)
}

func TestSearch_PlaceholderAndConcreteIDMatch(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/users/{id}/orders", "getOrders", "user-service"),
	)

	// A pasted concrete URL matches the placeholder route.
	assert.Len(t, e.Search("/api/users/123/orders"), 1)
	// So does the path with a differently named placeholder.
	assert.Len(t, e.Search("/api/users/{userId}/orders"), 1)
	// And the literal placeholder form.
	assert.Len(t, e.Search("/api/users/{id}/orders"), 1)
}

func TestSearch_FullURLWithQueryString(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/users/{id}", "getUser", "user-service"),
	)

	results := e.Search("https://gateway.example.com/api/users/42?verbose=true")
	require.Len(t, results, 1)
	assert.Equal(t, "getUser", results[0].MemberName)
}

func TestSearch_VerbFilter(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/user", "getUser", "m"),
		route(types.MethodPost, "/api/user", "createUser", "m"),
	)

	results := e.Search("POST /api/user")
	require.Len(t, results, 1)
	assert.Equal(t, "createUser", results[0].MemberName)

	// A verb alone filters by method over the whole cache.
	results = e.Search("get")
	require.Len(t, results, 1)
	assert.Equal(t, "getUser", results[0].MemberName)
}

func TestSearch_ServicePrefixCollapse(t *testing.T) {
	// Route recorded without the gateway's service segment; the caller
	// pastes the gateway URL with it.
	e := newTestEngine([]string{"user"},
		route(types.MethodGet, "/api/info", "getInfo", "user-service"),
	)

	results := e.Search("/api/user/info")
	require.Len(t, results, 1)
	assert.Equal(t, "getInfo", results[0].MemberName)
}

func TestSearch_ServicePrefixExpansion(t *testing.T) {
	// Route declared with the service segment; the caller omits it.
	e := newTestEngine([]string{"user"},
		route(types.MethodGet, "/api/user/info", "getInfo", "user-service"),
	)

	results := e.Search("/api/info")
	require.Len(t, results, 1)
	assert.Equal(t, "getInfo", results[0].MemberName)
}

func TestSearch_MatchesMemberAndModuleNames(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/user/info", "getInfo", "user-service"),
		route(types.MethodGet, "/api/order/list", "listOrders", "order-service"),
	)

	results := e.Search("listorders")
	require.Len(t, results, 1)
	assert.Equal(t, "listOrders", results[0].MemberName)

	results = e.Search("order-service")
	require.Len(t, results, 1)
	assert.Equal(t, "listOrders", results[0].MemberName)
}

func TestSearch_NoMatchIsEmptyNotError(t *testing.T) {
	e := newTestEngine(nil, route(types.MethodGet, "/api/user", "getUser", "m"))

	assert.Empty(t, e.Search("/nothing/here"))
	assert.Empty(t, e.Search("}{][("))
}

func TestSearch_ResultsKeepCacheOrder(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/user/a", "first", "m"),
		route(types.MethodGet, "/api/user/b", "second", "m"),
		route(types.MethodGet, "/api/user/c", "third", "m"),
	)

	results := e.Search("/api/user")
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].MemberName)
	assert.Equal(t, "second", results[1].MemberName)
	assert.Equal(t, "third", results[2].MemberName)
}

func TestSuggest_NearMissMemberName(t *testing.T) {
	e := newTestEngine(nil,
		route(types.MethodGet, "/api/user/info", "getUserInfo", "m"),
	)

	suggestions := e.Suggest("getuserinfos")
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "getUserInfo", suggestions[0])
}

func TestSuggest_BlankQueryYieldsNothing(t *testing.T) {
	e := newTestEngine(nil, route(types.MethodGet, "/a", "getA", "m"))
	assert.Empty(t, e.Suggest(""))
	assert.Empty(t, e.Suggest("/"))
}

func TestNormalizePlaceholders(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/users/{id}", "/users/{*}"},
		{"/users/{}", "/users/{*}"},
		{"/a/{x}/b/{y}", "/a/{*}/b/{*}"},
		{"/a//b", "/a/{*}/b"},
		{"/plain", "/plain"},
	}
	for _, tt := range tests {
		got := normalizePlaceholders(tt.in)
		assert.Equal(t, tt.want, got, "normalizePlaceholders(%q)", tt.in)
		assert.Equal(t, got, normalizePlaceholders(got), "must be idempotent for %q", tt.in)
	}
}

func TestCleanQueryPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://host.example/api/users/123", "/api/users/{*}"},
		{"/api/users/123?x=1", "/api/users/{*}"},
		{"/api/users/v2", "/api/users/v2"},
		{"/api/users/007", "/api/users/{*}"},
		{"http://host", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanQueryPath(tt.in), "cleanQueryPath(%q)", tt.in)
	}
}
