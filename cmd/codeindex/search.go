package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/searcher"
	"github.com/dshills/codeindex/internal/snippet"
	"github.com/dshills/codeindex/pkg/types"
)

func newSearchCmd(opts *options) *cobra.Command {
	var (
		projectRef   string
		language     string
		pathGlob     string
		kind         string
		refKind      string
		limit        int
		contextLines int
		symbols      bool
		references   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed files or symbols",
		Long: `Search indexed files with BM25 ranking and print a snippet around the
best matching line of each hit. With --symbols, search declarations by name,
signature and scope instead. With --references, list where symbols with
exactly the given name are used.

Examples:
  codeindex search "checkout total"
  codeindex search 'parse*' --language rust --glob 'src/*'
  codeindex search Handler --symbols --kind interface
  codeindex search --symbols --kind struct --project shop
  codeindex search Checkout --references --project shop`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			req := searcher.SearchRequest{
				Query:        query,
				Mode:         searcher.SearchModeText,
				Language:     types.Language(language),
				PathGlob:     pathGlob,
				Limit:        limit,
				ContextLines: contextLines,
			}
			if symbols || kind != "" {
				req.Mode = searcher.SearchModeSymbol
				if kind != "" {
					k, err := types.ParseSymbolKind(kind)
					if err != nil {
						return err
					}
					req.Kind = k
				}
			}
			if references || refKind != "" {
				req.Mode = searcher.SearchModeReference
				if refKind != "" {
					k, err := types.ParseReferenceKind(refKind)
					if err != nil {
						return err
					}
					req.RefKind = k
				}
			}

			engine, closeDB, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			if projectRef != "" {
				project, err := resolveProject(engine, projectRef)
				if err != nil {
					return err
				}
				req.ProjectID = project.ID
			}

			resp, err := searcher.NewSearcher(engine.Index()).Search(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				return writeJSON(out, resp)
			}
			if resp.TotalResults == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}

			if req.Mode == searcher.SearchModeSymbol {
				tw := newTable(out)
				for _, hit := range resp.Symbols {
					fmt.Fprintf(tw, "%d.\t%s\t%s\t%s:%d\t%s\n",
						hit.Rank, hit.Symbol.Kind, hit.Symbol.QualifiedName(),
						hit.Path, hit.Symbol.Start.Line, hit.Symbol.Signature)
				}
				return tw.Flush()
			}

			if req.Mode == searcher.SearchModeReference {
				tw := newTable(out)
				for _, hit := range resp.References {
					loc := hit.Reference.Location
					fmt.Fprintf(tw, "%d.\t%s:%d:%d\t%s\t%s\n",
						hit.Rank, hit.Path, loc.Start.Line, loc.Start.Column,
						hit.Symbol.QualifiedName(), hit.Reference.Context)
				}
				return tw.Flush()
			}

			for _, hit := range resp.Hits {
				fmt.Fprintf(out, "%d. %s:%d (%s, score %.2f)\n", hit.Rank, hit.Path, hit.Line, hit.Language, hit.Score)
				for _, line := range strings.Split(hit.Snippet, "\n") {
					fmt.Fprintf(out, "   %s\n", line)
				}
			}
			fmt.Fprintf(out, "%d results in %s\n", resp.TotalResults, resp.Duration)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&projectRef, "project", "", "Restrict results to one project (id, root path or name)")
	flags.StringVar(&language, "language", "", "Restrict text results to one language")
	flags.StringVar(&pathGlob, "glob", "", "Restrict text results to project-relative paths matching a glob")
	flags.BoolVar(&symbols, "symbols", false, "Search symbol declarations instead of file content")
	flags.StringVar(&kind, "kind", "", "Restrict symbol results to one kind (implies --symbols)")
	flags.BoolVar(&references, "references", false, "List usages of symbols with exactly this name")
	flags.StringVar(&refKind, "ref-kind", "", "Restrict references to one kind (implies --references)")
	flags.IntVar(&limit, "limit", searcher.DefaultLimit, "Maximum number of results")
	flags.IntVar(&contextLines, "context", snippet.DefaultContextLines, "Lines of context around a text match")
	cmd.MarkFlagsMutuallyExclusive("references", "symbols")
	cmd.MarkFlagsMutuallyExclusive("references", "kind")
	cmd.MarkFlagsMutuallyExclusive("ref-kind", "symbols")
	cmd.MarkFlagsMutuallyExclusive("ref-kind", "kind")
	return cmd
}
