package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/storage"
)

// Environment overrides, applied when the matching flag is not set
const (
	envDBPath   = "CODEINDEX_DB_PATH"
	envWorkers  = "CODEINDEX_WORKERS"
	envLogLevel = "CODEINDEX_LOG_LEVEL"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// options holds the resolved global settings of one invocation
type options struct {
	dbPath   string
	workers  int
	logLevel string
	format   string
	noCtags  bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "codeindex",
		Short: "Multi-language code indexing and search",
		Long: `codeindex classifies, parses and cross-references source trees and keeps
a full-text index of them.

Register a project, index it, then search it or inspect its symbol graph:
  codeindex add ~/src/shop --index
  codeindex search "checkout total" --language go
  codeindex graph shop --symbol CalculateTotal

Run "codeindex serve" to expose the same operations to MCP clients over stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}
	root.SetVersionTemplate("codeindex version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", "", "Index database path (env "+envDBPath+", default ~/.codeindex/index.db)")
	flags.IntVar(&opts.workers, "workers", 0, "Parse workers (env "+envWorkers+", default: number of CPUs)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+envLogLevel+", default info)")
	flags.StringVar(&opts.format, "format", "", "Output format: human or json (default: human on a terminal)")
	flags.BoolVar(&opts.noCtags, "no-ctags", false, "Never fall back to universal-ctags")

	root.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newIndexCmd(opts, false),
		newIndexCmd(opts, true),
		newRemoveCmd(opts),
		newProjectsCmd(opts),
		newStatsCmd(opts),
		newSearchCmd(opts),
		newGraphCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolve fills unset options from the environment and installs the logger
func (o *options) resolve(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if !flags.Changed("db") {
		o.dbPath = os.Getenv(envDBPath)
	}
	if o.dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		o.dbPath = filepath.Join(home, ".codeindex", "index.db")
	}

	if !flags.Changed("workers") {
		if env := os.Getenv(envWorkers); env != "" {
			n, err := cast.ToIntE(env)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid %s %q", envWorkers, env)
			}
			o.workers = n
		}
	}

	if !flags.Changed("log-level") {
		o.logLevel = os.Getenv(envLogLevel)
	}
	level, err := parseLevel(o.logLevel)
	if err != nil {
		return err
	}
	// stdout is reserved for command output and the MCP protocol
	o.logger = newLogger(cmd.ErrOrStderr(), level)

	if o.format == "" {
		o.format = defaultFormat(cmd.OutOrStdout())
	}
	if o.format != formatHuman && o.format != formatJSON {
		return fmt.Errorf("unsupported format %q (want %s or %s)", o.format, formatHuman, formatJSON)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// engineConfig builds the engine configuration from the resolved options
func (o *options) engineConfig() indexer.Config {
	cfg := indexer.DefaultConfig()
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.noCtags {
		cfg.Parser.FallbackToCtags = false
	}
	return cfg
}

// openEngine opens the index database and restores the engine state from
// it. The returned function closes the database.
func (o *options) openEngine(ctx context.Context) (*indexer.Engine, func(), error) {
	if o.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(o.dbPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := storage.NewSQLiteStorage(o.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			o.logger.Warn("failed to close index database", "error", err)
		}
	}

	engine, err := indexer.Open(ctx, db, o.engineConfig(), indexer.WithLogger(o.logger))
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	o.logger.Debug("index opened",
		"path", o.dbPath,
		"driver", storage.DriverName,
		"mode", storage.BuildMode,
		"projects", len(engine.GetProjects()))
	return engine, closeDB, nil
}
