package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "codeindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	engine   *indexer.Engine
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// NewServer creates a new MCP server over an opened engine. Search results
// are cached until the engine commits another change.
func NewServer(engine *indexer.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srch := searcher.NewSearcher(engine.Index(), searcher.WithGeneration(engine.Generation))

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		engine:   engine,
		searcher: srch,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol over stdin/stdout until ctx is done or the
// input is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(addProjectTool(), s.handleAddProject)
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(reindexProjectTool(), s.handleReindexProject)
	s.mcp.AddTool(removeProjectTool(), s.handleRemoveProject)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(getIndexStatsTool(), s.handleGetIndexStats)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(searchSymbolsTool(), s.handleSearchSymbols)
	s.mcp.AddTool(findReferencesTool(), s.handleFindReferences)
	s.mcp.AddTool(analyzeDependenciesTool(), s.handleAnalyzeDependencies)
	s.mcp.AddTool(symbolDependenciesTool(), s.handleSymbolDependencies)
}
