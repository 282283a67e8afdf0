package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codeindex/pkg/types"
)

func projectIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func symbolKindNames() []string {
	kinds := make([]string, len(types.AllSymbolKinds))
	for i, k := range types.AllSymbolKinds {
		kinds[i] = string(k)
	}
	return kinds
}

func referenceKindNames() []string {
	kinds := make([]string, len(types.AllReferenceKinds))
	for i, k := range types.AllReferenceKinds {
		kinds[i] = string(k)
	}
	return kinds
}

// addProjectTool returns the tool definition for add_project
func addProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_project",
		Description: "Register a source tree so it can be indexed. Returns the project id; registering the same root twice returns the existing id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name (defaults to the directory name)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional free-form description",
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a registered project incrementally; files whose checksum is unchanged are reused",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty("Id returned by add_project"),
			},
			Required: []string{"project_id"},
		},
	}
}

// reindexProjectTool returns the tool definition for reindex_project
func reindexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex_project",
		Description: "Discard everything indexed for a project and rebuild it from scratch",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty("Id returned by add_project"),
			},
			Required: []string{"project_id"},
		},
	}
}

// removeProjectTool returns the tool definition for remove_project
func removeProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_project",
		Description: "Remove a project and everything indexed for it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty("Id of the project to remove"),
			},
			Required: []string{"project_id"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List registered projects with their indexing state and repository metadata",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getIndexStatsTool returns the tool definition for get_index_stats
func getIndexStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_index_stats",
		Description: "Report totals across all projects: files, lines, symbols, references, languages and index size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Full-text search over indexed files, ranked by BM25, with a highlighted snippet around the best matching line",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; a trailing * matches a prefix",
				},
				"project_id": projectIDProperty("Restrict results to one project"),
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one language (e.g. go, rust, python)",
				},
				"path_glob": map[string]interface{}{
					"type":        "string",
					"description": "Glob over project-relative paths (e.g. 'internal/*')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"context_lines": map[string]interface{}{
					"type":        "integer",
					"description": "Lines of context around the matching line",
					"default":     2,
					"minimum":     0,
					"maximum":     20,
				},
			},
			Required: []string{"query"},
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Find declarations by name, signature or scope, optionally filtered by kind",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name or fragment; may be empty when kind is given",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one symbol kind",
					"enum":        symbolKindNames(),
				},
				"project_id": projectIDProperty("Restrict results to one project"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// findReferencesTool returns the tool definition for find_references
func findReferencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_references",
		Description: "List where symbols with an exact name are used, with the line of each use and the symbol it resolves to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Exact symbol name",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one reference kind",
					"enum":        referenceKindNames(),
				},
				"project_id": projectIDProperty("Restrict results to one project"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"name"},
		},
	}
}

// analyzeDependenciesTool returns the tool definition for analyze_dependencies
func analyzeDependenciesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_dependencies",
		Description: "Build the symbol graph of a project and report cycles, dependency layers and the most coupled symbols",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty("Project to analyze"),
				"top": map[string]interface{}{
					"type":        "integer",
					"description": "Number of most coupled symbols to report",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"project_id"},
		},
	}
}

// symbolDependenciesTool returns the tool definition for symbol_dependencies
func symbolDependenciesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "symbol_dependencies",
		Description: "List what a symbol depends on and what depends on it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty("Project the symbol belongs to"),
				"symbol_id": map[string]interface{}{
					"type":        "string",
					"description": "Symbol id, as returned by search_symbols",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name or qualified name, used when symbol_id is not given",
				},
			},
			Required: []string{"project_id"},
		},
	}
}
