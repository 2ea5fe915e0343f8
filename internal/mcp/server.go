// Package mcp exposes the route index over the Model Context Protocol so
// agents and editors can query it without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/standardbeagle/lri/internal/config"
	"github.com/standardbeagle/lri/internal/debug"
	"github.com/standardbeagle/lri/internal/indexing"
	"github.com/standardbeagle/lri/internal/query"
	"github.com/standardbeagle/lri/internal/store"
	"github.com/standardbeagle/lri/internal/types"
	"github.com/standardbeagle/lri/internal/version"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with the index collaborators the tools need.
type Server struct {
	server  *mcp.Server
	cfg     *config.Config
	updater *indexing.Updater
	engine  *query.Engine
	store   *store.Store
}

// SearchParams are the arguments of the route_search tool.
type SearchParams struct {
	Query string `json:"query"`
	Max   int    `json:"max,omitempty"`
}

// PrefixParams are the arguments of the service_prefixes tool.
type PrefixParams struct {
	Prefixes []string `json:"prefixes,omitempty"`
}

// routeResult is one row of a route_search response.
type routeResult struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Type   string `json:"type"`
	Member string `json:"member"`
	Module string `json:"module"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// NewServer builds the MCP server and registers the route tools. The caller
// owns the updater lifecycle; Serve only runs the protocol loop.
func NewServer(cfg *config.Config, updater *indexing.Updater, engine *query.Engine, st *store.Store) *Server {
	s := &Server{
		cfg:     cfg,
		updater: updater,
		engine:  engine,
		store:   st,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "lri-mcp-server",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

// Serve runs the server over stdio until the context is cancelled or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	debug.SetMCPMode(true)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "route_search",
		Description: "Search indexed HTTP routes by URL path fragment, handler name, or module name. Accepts full URLs, paths with placeholders or concrete IDs, and an optional leading HTTP verb filter (e.g. 'GET /users/{id}').",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Search text. A leading HTTP verb narrows by method; the rest matches route paths, handler member names, and module names. Blank returns all routes.",
				},
				"max": {
					Type:        "integer",
					Description: "Maximum results to return",
				},
			},
			Required: []string{"query"},
		},
	}, s.handleRouteSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "route_status",
		Description: "Report the route index state: whether a scan is in flight, how many routes and files are indexed, and the configured service prefixes.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleRouteStatus)

	s.server.AddTool(&mcp.Tool{
		Name:        "route_rebuild",
		Description: "Force a full re-scan of the workspace. Returns immediately; the rebuild runs in the background. Use route_status to watch for completion.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleRouteRebuild)

	s.server.AddTool(&mcp.Tool{
		Name:        "service_prefixes",
		Description: "Get or set the gateway service prefixes stripped and re-inserted during route matching (e.g. 'user' so /api/info finds /api/user/info). Call without arguments to read, with 'prefixes' to replace.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"prefixes": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Replacement prefix list. Blank entries are dropped; slashes are trimmed.",
				},
			},
		},
	}, s.handleServicePrefixes)
}

func (s *Server) handleRouteSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResponse("route_search", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	max := params.Max
	if max <= 0 || max > s.cfg.Search.MaxResults {
		max = s.cfg.Search.MaxResults
	}

	routes := s.engine.Search(params.Query)
	truncated := false
	if len(routes) > max {
		routes = routes[:max]
		truncated = true
	}

	response := map[string]interface{}{
		"query":     params.Query,
		"count":     len(routes),
		"truncated": truncated,
		"routes":    toResults(routes),
	}
	if s.updater.IsIndexing() {
		response["indexing"] = true
	}
	if len(routes) == 0 {
		if suggestions := s.engine.Suggest(params.Query); len(suggestions) > 0 {
			response["suggestions"] = suggestions
		}
	}

	return jsonResponse(response)
}

func (s *Server) handleRouteStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResponse(map[string]interface{}{
		"indexing":         s.updater.IsIndexing(),
		"routes":           s.store.Len(),
		"files":            len(s.store.Files()),
		"service_prefixes": s.cfg.ServicePrefixes(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleRouteRebuild(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updater.ForceRebuild()
	return jsonResponse(map[string]interface{}{
		"success": true,
		"message": "full rebuild started",
	})
}

func (s *Server) handleServicePrefixes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params PrefixParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResponse("service_prefixes", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	if params.Prefixes != nil {
		if err := s.cfg.SetServicePrefixes(params.Prefixes); err != nil {
			return errorResponse("service_prefixes", err)
		}
	}

	prefixes := s.cfg.ServicePrefixes()
	sort.Strings(prefixes)
	return jsonResponse(map[string]interface{}{
		"service_prefixes": prefixes,
	})
}

func toResults(routes []types.Route) []routeResult {
	out := make([]routeResult, 0, len(routes))
	for _, r := range routes {
		res := routeResult{
			Method: string(r.Method),
			Path:   r.Path,
			Type:   r.TypeName,
			Member: r.MemberName,
			Module: r.ModuleName,
		}
		if r.Owner != nil {
			file, line := r.Owner.Navigate()
			res.File = file
			res.Line = line
		}
		out = append(out, res)
	}
	return out
}
