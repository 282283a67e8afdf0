package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/dshills/codeindex/pkg/types"
)

const (
	formatHuman = "human"
	formatJSON  = "json"
)

// defaultFormat picks human output for terminals and JSON for pipes
func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return formatHuman
	}
	return formatJSON
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func printProjects(w io.Writer, projects []*types.Project) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects registered. Use \"codeindex add <path>\" to register one.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tROOT\tREPOSITORY\tINDEXED")
	for _, p := range projects {
		repo := string(p.RepositoryKind)
		if p.Branch != "" {
			repo += "@" + p.Branch
		}
		indexed := "no"
		if p.Indexed {
			indexed = ago(p.LastIndexed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.RootPath, repo, indexed)
	}
	return tw.Flush()
}

func printRunStats(w io.Writer, name string, stats *types.RunStats) error {
	fmt.Fprintf(w, "Indexed %s in %s\n", name, stats.Duration.Round(time.Millisecond))

	tw := newTable(w)
	fmt.Fprintf(tw, "  files\t%s\n", humanize.Comma(int64(stats.Files)))
	fmt.Fprintf(tw, "  parsed\t%s\n", humanize.Comma(int64(stats.FilesIndexed)))
	fmt.Fprintf(tw, "  unchanged\t%s\n", humanize.Comma(int64(stats.FilesUnchanged)))
	fmt.Fprintf(tw, "  skipped\t%s\n", humanize.Comma(int64(stats.FilesSkipped)))
	fmt.Fprintf(tw, "  removed\t%s\n", humanize.Comma(int64(stats.FilesRemoved)))
	fmt.Fprintf(tw, "  failed\t%s\n", humanize.Comma(int64(stats.FilesFailed)))
	fmt.Fprintf(tw, "  lines\t%s\n", humanize.Comma(int64(stats.Lines)))
	fmt.Fprintf(tw, "  symbols\t%s\n", humanize.Comma(int64(stats.Symbols)))
	fmt.Fprintf(tw, "  references\t%s\n", humanize.Comma(int64(stats.References)))
	if err := tw.Flush(); err != nil {
		return err
	}

	printLanguages(w, stats.Languages)
	for _, msg := range stats.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	return nil
}

func printIndexStats(w io.Writer, stats *types.IndexStats) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "projects\t%s\n", humanize.Comma(int64(stats.TotalProjects)))
	fmt.Fprintf(tw, "files\t%s\n", humanize.Comma(int64(stats.TotalFiles)))
	fmt.Fprintf(tw, "lines\t%s\n", humanize.Comma(int64(stats.TotalLines)))
	fmt.Fprintf(tw, "symbols\t%s\n", humanize.Comma(int64(stats.TotalSymbols)))
	fmt.Fprintf(tw, "references\t%s\n", humanize.Comma(int64(stats.TotalReferences)))
	fmt.Fprintf(tw, "index size\t%s\n", humanize.Bytes(uint64(max(stats.IndexSizeBytes, 0))))
	fmt.Fprintf(tw, "last update\t%s\n", ago(stats.LastUpdate))
	if err := tw.Flush(); err != nil {
		return err
	}
	printLanguages(w, stats.Languages)
	return nil
}

// printLanguages lists file counts per language, largest first
func printLanguages(w io.Writer, languages map[types.Language]int) {
	if len(languages) == 0 {
		return
	}
	langs := make([]types.Language, 0, len(languages))
	for l := range languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if languages[langs[i]] != languages[langs[j]] {
			return languages[langs[i]] > languages[langs[j]]
		}
		return langs[i] < langs[j]
	})

	fmt.Fprintln(w, "languages:")
	tw := newTable(w)
	for _, l := range langs {
		fmt.Fprintf(tw, "  %s\t%d\n", l, languages[l])
	}
	_ = tw.Flush()
}
