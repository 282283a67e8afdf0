package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/pkg/types"
)

var errAmbiguousProject = errors.New("more than one project has that name; use the project id")

// resolveProject finds a project by id, root path or name
func resolveProject(engine *indexer.Engine, ref string) (*types.Project, error) {
	if p, err := engine.GetProject(ref); err == nil {
		return p, nil
	}

	projects := engine.GetProjects()
	if abs, err := filepath.Abs(ref); err == nil {
		for _, p := range projects {
			if p.RootPath == filepath.Clean(abs) {
				return p, nil
			}
		}
	}

	var match *types.Project
	for _, p := range projects {
		if p.Name != ref {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s", errAmbiguousProject, ref)
		}
		match = p
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", indexer.ErrProjectNotFound, ref)
	}
	return match, nil
}

func newAddCmd(opts *options) *cobra.Command {
	var name, description string
	var index bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a source tree as a project",
		Long: `Register a source tree as a project. Registering a root that is already
known prints the existing project.

Examples:
  codeindex add .
  codeindex add ~/src/shop --name shop --index`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, closeDB, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := engine.AddProject(ctx, name, args[0], description)
			if err != nil {
				return err
			}
			project, err := engine.GetProject(id)
			if err != nil {
				return err
			}

			var stats *types.RunStats
			if index {
				if stats, err = engine.IndexProject(ctx, id); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				return writeJSON(out, map[string]interface{}{
					"project": project,
					"stats":   stats,
				})
			}
			fmt.Fprintf(out, "Project %s (%s) registered at %s\n", project.Name, project.ID, project.RootPath)
			if stats != nil {
				return printRunStats(out, project.Name, stats)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: directory name)")
	cmd.Flags().StringVar(&description, "description", "", "Free-form description")
	cmd.Flags().BoolVar(&index, "index", false, "Index the project right after registering it")
	return cmd
}

// newIndexCmd builds the index command, or reindex when full is set
func newIndexCmd(opts *options, full bool) *cobra.Command {
	use, short := "index <project>", "Index a project incrementally"
	if full {
		use, short = "reindex <project>", "Discard a project's index and rebuild it"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `. The project may be given by id, root path or name.
Interrupting the run leaves the previous index untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, closeDB, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			project, err := resolveProject(engine, args[0])
			if err != nil {
				return err
			}

			run := engine.IndexProject
			if full {
				run = engine.ReindexProject
			}
			stats, err := run(ctx, project.ID)
			if err != nil {
				return err
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return printRunStats(cmd.OutOrStdout(), project.Name, stats)
		},
	}
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <project>",
		Aliases: []string{"rm"},
		Short:   "Remove a project and everything indexed for it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, closeDB, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			project, err := resolveProject(engine, args[0])
			if err != nil {
				return err
			}
			if err := engine.RemoveProject(ctx, project.ID); err != nil {
				return err
			}

			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"removed":    true,
					"project_id": project.ID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}
}

func newProjectsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "projects",
		Aliases: []string{"ls"},
		Short:   "List registered projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeDB, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			projects := engine.GetProjects()
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), projects)
			}
			return printProjects(cmd.OutOrStdout(), projects)
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals across all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeDB, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			stats := engine.GetIndexStats()
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return printIndexStats(cmd.OutOrStdout(), stats)
		},
	}
}
