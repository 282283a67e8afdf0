// Package mcp implements the Model Context Protocol (MCP) server for codeindex.
//
// The server exposes the indexing engine to MCP clients as tools:
//   - add_project: Register a source tree and return its project id
//   - index_project: Incrementally index a registered project
//   - reindex_project: Rebuild a project's index from scratch
//   - remove_project: Remove a project and everything indexed for it
//   - list_projects: List registered projects
//   - get_index_stats: Totals across all projects
//   - search_code: Full-text search with highlighted snippets
//   - search_symbols: Declarations by name and kind
//   - find_references: Stored usages of symbols with an exact name
//   - analyze_dependencies: Cycles, layers and coupling of the symbol graph
//   - symbol_dependencies: What a symbol depends on and what depends on it
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is typically started via the serve command:
//
//	codeindex serve
//
// # Typical Session
//
//	{"name": "add_project", "arguments": {"path": "/src/shop"}}
//	→ {"project_id": "2f0c...", "name": "shop", "repository_kind": "git", "branch": "main"}
//
//	{"name": "index_project", "arguments": {"project_id": "2f0c..."}}
//	→ {"files": 312, "files_indexed": 312, "files_unchanged": 0, "symbols": 4180, ...}
//
//	{"name": "search_code", "arguments": {"query": "checkout total", "language": "go"}}
//	→ {"results": [{"rank": 1, "path": "cart/total.go", "line": 42, "snippet": ">42: // **checkout** ..."}]}
//
// Search responses are cached until the engine commits another change, so a
// repeated query after an index run never returns stale hits.
//
// # Error Handling
//
// Handlers return *MCPError values carrying a code and structured data:
//
//	{
//	  "code": -32001,
//	  "message": "project not found",
//	  "data": {"project_id": "2f0c..."}
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, unreadable root)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Project not found
//   - -32002: Indexing in progress
//   - -32003: Project not indexed
//   - -32004: Empty query
//
// # Logging
//
// The server logs to stderr through the injected slog.Logger; stdout is
// reserved for the MCP protocol.
package mcp
