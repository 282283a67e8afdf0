package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/searcher"
	"github.com/dshills/codeindex/internal/xref"
	"github.com/dshills/codeindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // No project registered under the given id
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

const (
	defaultTop          = 10
	maxContextLines     = 20
	maxReportedErrors   = 5
	maxDependencyTarget = 10
)

// handleAddProject handles the add_project tool invocation
func (s *Server) handleAddProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, missingParam("path")
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	name := getStringDefault(args, "name", "")
	description := getStringDefault(args, "description", "")

	id, err := s.engine.AddProject(ctx, name, path, description)
	if err != nil {
		if errors.Is(err, indexer.ErrUnreadableRoot) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		return nil, internalError("failed to add project", err)
	}

	project, err := s.engine.GetProject(id)
	if err != nil {
		return nil, internalError("failed to load project", err)
	}

	response := projectResponse(project)
	response["project_id"] = id
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runIndexing(ctx, request, s.engine.IndexProject)
}

// handleReindexProject handles the reindex_project tool invocation
func (s *Server) handleReindexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runIndexing(ctx, request, s.engine.ReindexProject)
}

func (s *Server) runIndexing(ctx context.Context, request mcp.CallToolRequest,
	run func(context.Context, string) (*types.RunStats, error)) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireProjectID(args)
	if err != nil {
		return nil, err
	}

	stats, err := run(ctx, projectID)
	if err != nil {
		return nil, engineError("indexing failed", projectID, err)
	}

	response := map[string]interface{}{
		"indexed":         true,
		"project_id":      stats.ProjectID,
		"files":           stats.Files,
		"files_indexed":   stats.FilesIndexed,
		"files_unchanged": stats.FilesUnchanged,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"files_removed":   stats.FilesRemoved,
		"lines":           stats.Lines,
		"symbols":         stats.Symbols,
		"references":      stats.References,
		"languages":       stats.Languages,
		"duration_ms":     stats.Duration.Milliseconds(),
	}

	if len(stats.Errors) > 0 {
		// Include first few errors
		errorCount := len(stats.Errors)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.Errors[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveProject handles the remove_project tool invocation
func (s *Server) handleRemoveProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireProjectID(args)
	if err != nil {
		return nil, err
	}

	if err := s.engine.RemoveProject(ctx, projectID); err != nil {
		return nil, engineError("failed to remove project", projectID, err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"removed":    true,
		"project_id": projectID,
	})), nil
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects := s.engine.GetProjects()
	list := make([]map[string]interface{}, 0, len(projects))
	for _, p := range projects {
		list = append(list, projectResponse(p))
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":    len(list),
		"projects": list,
	})), nil
}

// handleGetIndexStats handles the get_index_stats tool invocation
func (s *Server) handleGetIndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.GetIndexStats()

	response := map[string]interface{}{
		"total_projects":   stats.TotalProjects,
		"total_files":      stats.TotalFiles,
		"total_lines":      stats.TotalLines,
		"total_symbols":    stats.TotalSymbols,
		"total_references": stats.TotalReferences,
		"index_size_bytes": stats.IndexSizeBytes,
		"index_size":       humanize.Bytes(uint64(max(stats.IndexSizeBytes, 0))),
		"languages":        stats.Languages,
		"file_types":       stats.FileTypes,
	}
	if !stats.LastUpdate.IsZero() {
		response["last_update"] = stats.LastUpdate.Format(time.RFC3339)
		response["last_update_ago"] = humanize.Time(stats.LastUpdate)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit, err := boundedInt(args, "limit", searcher.DefaultLimit, 1, searcher.MaxLimit)
	if err != nil {
		return nil, err
	}
	contextLines, err := boundedInt(args, "context_lines", 2, 0, maxContextLines)
	if err != nil {
		return nil, err
	}
	projectID, err := s.optionalProject(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:        query,
		Mode:         searcher.SearchModeText,
		ProjectID:    projectID,
		Language:     types.Language(getStringDefault(args, "language", "")),
		PathGlob:     getStringDefault(args, "path_glob", ""),
		Limit:        limit,
		ContextLines: contextLines,
		UseCache:     true,
	})
	if err != nil {
		return nil, searchError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":         query,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       resp.Hits,
	})), nil
}

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query := getStringDefault(args, "query", "")

	var kind types.SymbolKind
	if raw := getStringDefault(args, "kind", ""); raw != "" {
		kind, err = types.ParseSymbolKind(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
				"param":   "kind",
				"value":   raw,
				"allowed": symbolKindNames(),
			})
		}
	}

	limit, err := boundedInt(args, "limit", searcher.DefaultLimit, 1, searcher.MaxLimit)
	if err != nil {
		return nil, err
	}
	projectID, err := s.optionalProject(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     query,
		Mode:      searcher.SearchModeSymbol,
		ProjectID: projectID,
		Kind:      kind,
		Limit:     limit,
		UseCache:  true,
	})
	if err != nil {
		return nil, searchError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":         query,
		"kind":          kind,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"results":       resp.Symbols,
	})), nil
}

// handleFindReferences handles the find_references tool invocation
func (s *Server) handleFindReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(getStringDefault(args, "name", ""))
	if name == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "name parameter is required and cannot be empty", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	var kind types.ReferenceKind
	if raw := getStringDefault(args, "kind", ""); raw != "" {
		kind, err = types.ParseReferenceKind(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
				"param":   "kind",
				"value":   raw,
				"allowed": referenceKindNames(),
			})
		}
	}

	limit, err := boundedInt(args, "limit", searcher.DefaultLimit, 1, searcher.MaxLimit)
	if err != nil {
		return nil, err
	}
	projectID, err := s.optionalProject(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     name,
		Mode:      searcher.SearchModeReference,
		ProjectID: projectID,
		RefKind:   kind,
		Limit:     limit,
		UseCache:  true,
	})
	if err != nil {
		return nil, searchError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"name":          name,
		"kind":          kind,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"results":       resp.References,
	})), nil
}

// handleAnalyzeDependencies handles the analyze_dependencies tool invocation
func (s *Server) handleAnalyzeDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireProjectID(args)
	if err != nil {
		return nil, err
	}
	top, err := boundedInt(args, "top", defaultTop, 1, searcher.MaxLimit)
	if err != nil {
		return nil, err
	}

	graph, err := s.indexedGraph(projectID)
	if err != nil {
		return nil, err
	}
	analysis := graph.Analyze()

	cycles := make([][]string, 0, len(analysis.Cycles))
	for _, cycle := range analysis.Cycles {
		cycles = append(cycles, nodeNames(graph, cycle))
	}

	layers := make([]map[string]interface{}, 0, len(analysis.Layers))
	for i, layer := range analysis.Layers {
		layers = append(layers, map[string]interface{}{
			"layer":   i,
			"size":    len(layer),
			"symbols": nodeNames(graph, layer),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"project_id":    projectID,
		"total_nodes":   analysis.TotalNodes,
		"total_edges":   analysis.TotalEdges,
		"dropped_edges": graph.DroppedEdges,
		"cycles":        cycles,
		"layers":        layers,
		"most_coupled":  mostCoupled(graph, analysis.Coupling, top),
	})), nil
}

// handleSymbolDependencies handles the symbol_dependencies tool invocation
func (s *Server) handleSymbolDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireProjectID(args)
	if err != nil {
		return nil, err
	}

	symbolID := getStringDefault(args, "symbol_id", "")
	name := getStringDefault(args, "name", "")
	if symbolID == "" && name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "symbol_id or name is required", map[string]interface{}{
			"param":  "symbol_id",
			"reason": "missing or empty",
		})
	}

	graph, err := s.indexedGraph(projectID)
	if err != nil {
		return nil, err
	}

	targets := findNodes(graph, symbolID, name)
	if len(targets) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "symbol not found", map[string]interface{}{
			"symbol_id": symbolID,
			"name":      name,
		})
	}

	results := make([]map[string]interface{}, 0, len(targets))
	for _, node := range targets {
		results = append(results, map[string]interface{}{
			"symbol":       nodeSummary(node),
			"dependencies": edgeSummaries(graph, graph.Dependencies(node.SymbolID), true),
			"dependents":   edgeSummaries(graph, graph.Dependents(node.SymbolID), false),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"project_id": projectID,
		"matches":    len(targets),
		"symbols":    results,
	})), nil
}

// indexedGraph builds the graph of a project that has been indexed at least once
func (s *Server) indexedGraph(projectID string) (*xref.SymbolGraph, error) {
	project, err := s.engine.GetProject(projectID)
	if err != nil {
		return nil, engineError("failed to load project", projectID, err)
	}
	if !project.Indexed {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"project_id": projectID,
			"message":    "Use index_project to index this project first.",
		})
	}

	graph, err := s.engine.BuildGraph(projectID)
	if err != nil {
		return nil, engineError("failed to build graph", projectID, err)
	}
	return graph, nil
}

// optionalProject validates the project_id argument when present
func (s *Server) optionalProject(args map[string]interface{}) (string, error) {
	projectID := getStringDefault(args, "project_id", "")
	if projectID == "" {
		return "", nil
	}
	if _, err := s.engine.GetProject(projectID); err != nil {
		return "", engineError("failed to load project", projectID, err)
	}
	return projectID, nil
}

// Helper functions

func projectResponse(p *types.Project) map[string]interface{} {
	out := map[string]interface{}{
		"id":              p.ID,
		"name":            p.Name,
		"root_path":       p.RootPath,
		"indexed":         p.Indexed,
		"repository_kind": p.RepositoryKind,
		"created_at":      p.CreatedAt.Format(time.RFC3339),
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Branch != "" {
		out["branch"] = p.Branch
	}
	if p.RemoteURL != "" {
		out["remote_url"] = p.RemoteURL
	}
	if !p.LastIndexed.IsZero() {
		out["last_indexed"] = p.LastIndexed.Format(time.RFC3339)
		out["last_indexed_ago"] = humanize.Time(p.LastIndexed)
	}
	return out
}

// findNodes resolves a symbol by id, or else by name or qualified name
func findNodes(graph *xref.SymbolGraph, symbolID, name string) []*xref.SymbolNode {
	if symbolID != "" {
		if node, ok := graph.Node(symbolID); ok {
			return []*xref.SymbolNode{node}
		}
		return nil
	}

	var matches []*xref.SymbolNode
	for _, node := range graph.Nodes {
		if node.Name == name || node.FQN == name {
			matches = append(matches, node)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].FQN != matches[j].FQN {
			return matches[i].FQN < matches[j].FQN
		}
		return matches[i].SymbolID < matches[j].SymbolID
	})
	if len(matches) > maxDependencyTarget {
		matches = matches[:maxDependencyTarget]
	}
	return matches
}

func nodeSummary(node *xref.SymbolNode) map[string]interface{} {
	return map[string]interface{}{
		"symbol_id":  node.SymbolID,
		"name":       node.Name,
		"fqn":        node.FQN,
		"kind":       node.Kind,
		"file_id":    node.FileID,
		"line":       node.Location.Start.Line,
		"fan_in":     node.Metadata.FanIn,
		"fan_out":    node.Metadata.FanOut,
		"complexity": node.Metadata.Complexity,
	}
}

// edgeSummaries describes edges by the node at their far end
func edgeSummaries(graph *xref.SymbolGraph, edges []*xref.SymbolEdge, outgoing bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		other := e.From
		if outgoing {
			other = e.To
		}
		entry := map[string]interface{}{
			"symbol_id": other,
			"kind":      e.Kind,
			"strength":  e.Strength,
			"count":     len(e.Locations),
		}
		if node, ok := graph.Node(other); ok {
			entry["name"] = node.FQN
			entry["symbol_kind"] = node.Kind
		}
		out = append(out, entry)
	}
	return out
}

func nodeNames(graph *xref.SymbolGraph, ids []string) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id
		if node, ok := graph.Node(id); ok {
			names[i] = node.FQN
		}
	}
	return names
}

// mostCoupled ranks nodes by total coupling, breaking ties by name
func mostCoupled(graph *xref.SymbolGraph, coupling map[string]xref.Coupling, top int) []map[string]interface{} {
	type ranked struct {
		id   string
		name string
		c    xref.Coupling
	}
	all := make([]ranked, 0, len(coupling))
	for id, c := range coupling {
		if c.Afferent+c.Efferent == 0 {
			continue
		}
		name := id
		if node, ok := graph.Node(id); ok {
			name = node.FQN
		}
		all = append(all, ranked{id: id, name: name, c: c})
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].c.Afferent+all[i].c.Efferent, all[j].c.Afferent+all[j].c.Efferent
		if ti != tj {
			return ti > tj
		}
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		return all[i].id < all[j].id
	})
	if len(all) > top {
		all = all[:top]
	}

	out := make([]map[string]interface{}, len(all))
	for i, r := range all {
		out[i] = map[string]interface{}{
			"symbol_id":   r.id,
			"name":        r.name,
			"afferent":    r.c.Afferent,
			"efferent":    r.c.Efferent,
			"instability": r.c.Instability,
		}
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

func internalError(message string, err error) error {
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// engineError maps engine sentinel errors to MCP error codes
func engineError(message, projectID string, err error) error {
	switch {
	case errors.Is(err, indexer.ErrProjectNotFound):
		return newMCPError(ErrorCodeProjectNotFound, "project not found", map[string]interface{}{
			"project_id": projectID,
		})
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"project_id": projectID,
		})
	case errors.Is(err, indexer.ErrUnreadableRoot):
		return newMCPError(ErrorCodeInvalidParams, message, map[string]interface{}{
			"project_id": projectID,
			"reason":     err.Error(),
		})
	}
	return internalError(message, err)
}

func searchError(err error) error {
	if errors.Is(err, types.ErrEmptyQuery) {
		return newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return internalError("search failed", err)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireProjectID(args map[string]interface{}) (string, error) {
	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return "", missingParam("project_id")
	}
	return projectID, nil
}

// boundedInt extracts an integer parameter and checks it against [lo, hi]
func boundedInt(args map[string]interface{}, key string, defaultValue, lo, hi int) (int, error) {
	v := getIntDefault(args, key, defaultValue)
	if v < lo || v > hi {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("%s must be between %d and %d", key, lo, hi), map[string]interface{}{
			"param": key,
			"value": v,
		})
	}
	return v, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value. JSON
// numbers arrive as float64; numeric strings are accepted too.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue
	}
	val, err := cast.ToIntE(raw)
	if err != nil {
		return defaultValue
	}
	return val
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
)
