package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/mcp"
	"github.com/dshills/codeindex/internal/storage"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the Model Context Protocol server on stdin/stdout. Logs go to stderr.

Configure it in an MCP client:
  {
    "mcpServers": {
      "codeindex": {
        "command": "codeindex",
        "args": ["serve"],
        "env": {"CODEINDEX_DB_PATH": "/home/me/.codeindex/index.db"}
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, closeDB, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			opts.logger.Info("MCP server starting",
				"version", version,
				"db", opts.dbPath,
				"driver", storage.DriverName,
				"mode", storage.BuildMode)

			server := mcp.NewServer(engine, opts.logger)
			err = server.Serve(ctx, os.Stdin, os.Stdout)
			if ctx.Err() != nil {
				opts.logger.Info("MCP server stopped")
				return nil
			}
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "codeindex %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
