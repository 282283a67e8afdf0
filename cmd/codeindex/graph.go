package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/xref"
)

// couplingRow is one entry of the most-coupled listing
type couplingRow struct {
	SymbolID string `json:"symbol_id"`
	Name     string `json:"name"`
	xref.Coupling
}

// graphReport is the JSON shape of the graph command
type graphReport struct {
	ProjectID    string        `json:"project_id"`
	TotalNodes   int           `json:"total_nodes"`
	TotalEdges   int           `json:"total_edges"`
	DroppedEdges int           `json:"dropped_edges"`
	Cycles       [][]string    `json:"cycles"`
	Layers       [][]string    `json:"layers"`
	MostCoupled  []couplingRow `json:"most_coupled"`
}

// symbolReport is the JSON shape of graph --symbol
type symbolReport struct {
	Symbol       *xref.SymbolNode   `json:"symbol"`
	Dependencies []*xref.SymbolEdge `json:"dependencies"`
	Dependents   []*xref.SymbolEdge `json:"dependents"`
}

func newGraphCmd(opts *options) *cobra.Command {
	var top int
	var symbol string

	cmd := &cobra.Command{
		Use:   "graph <project>",
		Short: "Analyze the symbol graph of a project",
		Long: `Build the cross-reference graph of an indexed project and report its
dependency cycles, layers and most coupled symbols. With --symbol, list what a
symbol depends on and what depends on it.

Usages are not stored in the database, so the project is indexed
incrementally first to recover them; unchanged files are not rewritten.

Examples:
  codeindex graph shop
  codeindex graph shop --symbol Cart::Total`,
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
			if !project.Indexed {
				return fmt.Errorf("project %s is not indexed; run \"codeindex index %s\" first", project.Name, project.Name)
			}
			// Usages live only in memory, so refresh them before building the graph
			if _, err := engine.IndexProject(ctx, project.ID); err != nil {
				return err
			}
			graph, err := engine.BuildGraph(project.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if symbol != "" {
				reports := symbolReports(graph, symbol)
				if len(reports) == 0 {
					return fmt.Errorf("no symbol named %q in %s", symbol, project.Name)
				}
				if opts.format == formatJSON {
					return writeJSON(out, reports)
				}
				for _, r := range reports {
					printSymbolReport(out, graph, r)
				}
				return nil
			}

			analysis := graph.Analyze()
			report := graphReport{
				ProjectID:    project.ID,
				TotalNodes:   analysis.TotalNodes,
				TotalEdges:   analysis.TotalEdges,
				DroppedEdges: graph.DroppedEdges,
				Cycles:       namesOf(graph, analysis.Cycles),
				Layers:       namesOf(graph, analysis.Layers),
				MostCoupled:  rankCoupling(graph, analysis.Coupling, top),
			}
			if opts.format == formatJSON {
				return writeJSON(out, report)
			}
			printGraphReport(out, project.Name, report)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Number of most coupled symbols to list")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Show dependencies of the symbol with this name or qualified name")
	return cmd
}

func symbolReports(graph *xref.SymbolGraph, name string) []symbolReport {
	var reports []symbolReport
	for _, node := range graph.Nodes {
		if node.Name != name && node.FQN != name {
			continue
		}
		reports = append(reports, symbolReport{
			Symbol:       node,
			Dependencies: graph.Dependencies(node.SymbolID),
			Dependents:   graph.Dependents(node.SymbolID),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Symbol.FQN != reports[j].Symbol.FQN {
			return reports[i].Symbol.FQN < reports[j].Symbol.FQN
		}
		return reports[i].Symbol.SymbolID < reports[j].Symbol.SymbolID
	})
	return reports
}

func nameOf(graph *xref.SymbolGraph, id string) string {
	if node, ok := graph.Node(id); ok {
		return node.FQN
	}
	return id
}

func namesOf(graph *xref.SymbolGraph, groups [][]string) [][]string {
	out := make([][]string, len(groups))
	for i, ids := range groups {
		out[i] = make([]string, len(ids))
		for j, id := range ids {
			out[i][j] = nameOf(graph, id)
		}
	}
	return out
}

// rankCoupling orders coupled nodes by total coupling, then by name
func rankCoupling(graph *xref.SymbolGraph, coupling map[string]xref.Coupling, top int) []couplingRow {
	rows := make([]couplingRow, 0, len(coupling))
	for id, c := range coupling {
		if c.Afferent+c.Efferent == 0 {
			continue
		}
		rows = append(rows, couplingRow{SymbolID: id, Name: nameOf(graph, id), Coupling: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		ti := rows[i].Afferent + rows[i].Efferent
		tj := rows[j].Afferent + rows[j].Efferent
		if ti != tj {
			return ti > tj
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].SymbolID < rows[j].SymbolID
	})
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	return rows
}

func printGraphReport(w io.Writer, name string, r graphReport) {
	fmt.Fprintf(w, "%s: %d symbols, %d edges", name, r.TotalNodes, r.TotalEdges)
	if r.DroppedEdges > 0 {
		fmt.Fprintf(w, " (%d dangling dropped)", r.DroppedEdges)
	}
	fmt.Fprintln(w)

	if len(r.Cycles) == 0 {
		fmt.Fprintln(w, "cycles: none")
	} else {
		fmt.Fprintf(w, "cycles: %d\n", len(r.Cycles))
		for _, c := range r.Cycles {
			fmt.Fprintf(w, "  %s -> %s\n", strings.Join(c, " -> "), c[0])
		}
	}

	fmt.Fprintf(w, "layers: %d\n", len(r.Layers))
	for i, layer := range r.Layers {
		fmt.Fprintf(w, "  %d: %d symbols\n", i, len(layer))
	}

	if len(r.MostCoupled) > 0 {
		fmt.Fprintln(w, "most coupled:")
		tw := newTable(w)
		fmt.Fprintln(tw, "  SYMBOL\tIN\tOUT\tINSTABILITY")
		for _, row := range r.MostCoupled {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%.2f\n", row.Name, row.Afferent, row.Efferent, row.Instability)
		}
		_ = tw.Flush()
	}
}

func printSymbolReport(w io.Writer, graph *xref.SymbolGraph, r symbolReport) {
	n := r.Symbol
	fmt.Fprintf(w, "%s %s (line %d, fan-in %d, fan-out %d, complexity %d)\n",
		n.Kind, n.FQN, n.Location.Start.Line, n.Metadata.FanIn, n.Metadata.FanOut, n.Metadata.Complexity)

	fmt.Fprintf(w, "  depends on (%d):\n", len(r.Dependencies))
	for _, e := range r.Dependencies {
		fmt.Fprintf(w, "    %s %s\n", e.Kind, nameOf(graph, e.To))
	}
	fmt.Fprintf(w, "  used by (%d):\n", len(r.Dependents))
	for _, e := range r.Dependents {
		fmt.Fprintf(w, "    %s %s\n", e.Kind, nameOf(graph, e.From))
	}
}
