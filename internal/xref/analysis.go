package xref

import "sort"

// Coupling holds the coupling metrics of one node
type Coupling struct {
	Afferent    int     `json:"afferent"`    // Incoming edges
	Efferent    int     `json:"efferent"`    // Outgoing edges
	Instability float64 `json:"instability"` // Efferent/(Afferent+Efferent)
}

// DependencyAnalysis summarizes the structure of a graph
type DependencyAnalysis struct {
	TotalNodes int                 `json:"total_nodes"`
	TotalEdges int                 `json:"total_edges"`
	Cycles     [][]string          `json:"cycles"`
	Layers     [][]string          `json:"layers"`
	Coupling   map[string]Coupling `json:"coupling"`
}

// Analyze computes coupling, cycles and layers. Only one cycle is reported
// per depth-first root, so overlapping cycles may be missed.
func (g *SymbolGraph) Analyze() *DependencyAnalysis {
	return &DependencyAnalysis{
		TotalNodes: len(g.Nodes),
		TotalEdges: g.EdgeCount(),
		Cycles:     g.findCycles(),
		Layers:     g.layers(),
		Coupling:   g.coupling(),
	}
}

func (g *SymbolGraph) coupling() map[string]Coupling {
	afferent := make(map[string]int, len(g.Nodes))
	for _, edges := range g.Edges {
		for _, e := range edges {
			afferent[e.To]++
		}
	}

	out := make(map[string]Coupling, len(g.Nodes))
	for id := range g.Nodes {
		a, e := afferent[id], len(g.Edges[id])
		out[id] = Coupling{Afferent: a, Efferent: e, Instability: instability(a, e)}
	}
	return out
}

// findCycles runs a depth-first search from every unvisited node, keeping a
// recursion stack. Reaching a node on the stack closes a cycle made of the
// stack suffix starting at that node.
func (g *SymbolGraph) findCycles() [][]string {
	visited := make(map[string]bool, len(g.Nodes))
	onStack := make(map[string]bool)
	var cycles [][]string

	var visit func(id string, path []string) []string
	visit = func(id string, path []string) []string {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range g.successors(id) {
			if !visited[next] {
				if cycle := visit(next, path); cycle != nil {
					return cycle
				}
				continue
			}
			if onStack[next] {
				for i, p := range path {
					if p == next {
						return append([]string(nil), path[i:]...)
					}
				}
			}
		}

		onStack[id] = false
		return nil
	}

	for _, id := range g.sortedNodeIDs() {
		if visited[id] {
			continue
		}
		if cycle := visit(id, nil); cycle != nil {
			cycles = append(cycles, cycle)
		}
		// An early return leaves the stack marked
		clear(onStack)
	}
	return cycles
}

// layers peels the graph repeatedly: each layer holds the remaining nodes
// that no other remaining node points at. When every remaining node has an
// incoming edge, they all form the final layer.
func (g *SymbolGraph) layers() [][]string {
	remaining := make(map[string]bool, len(g.Nodes))
	for id := range g.Nodes {
		remaining[id] = true
	}

	var layers [][]string
	for len(remaining) > 0 {
		pointed := make(map[string]bool)
		for from := range remaining {
			for _, e := range g.Edges[from] {
				if remaining[e.To] {
					pointed[e.To] = true
				}
			}
		}

		var layer []string
		for id := range remaining {
			if !pointed[id] {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			for id := range remaining {
				layer = append(layer, id)
			}
		}
		sort.Strings(layer)

		for _, id := range layer {
			delete(remaining, id)
		}
		layers = append(layers, layer)
	}
	return layers
}

// successors returns the distinct targets of a node in sorted order
func (g *SymbolGraph) successors(id string) []string {
	seen := make(map[string]bool)
	var next []string
	for _, e := range g.Edges[id] {
		if !seen[e.To] {
			seen[e.To] = true
			next = append(next, e.To)
		}
	}
	sort.Strings(next)
	return next
}
