package xref

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dshills/codeindex/pkg/types"
)

// RelationshipKind is the kind of a directed edge between two symbols
type RelationshipKind string

const (
	RelCalls        RelationshipKind = "calls"
	RelReferences   RelationshipKind = "references"
	RelInherits     RelationshipKind = "inherits"
	RelImplements   RelationshipKind = "implements"
	RelContains     RelationshipKind = "contains"
	RelUses         RelationshipKind = "uses"
	RelImports      RelationshipKind = "imports"
	RelDefines      RelationshipKind = "defines"
	RelOverrides    RelationshipKind = "overrides"
	RelInstantiates RelationshipKind = "instantiates"
	RelAccesses     RelationshipKind = "accesses"
	RelModifies     RelationshipKind = "modifies"
)

// AccessPattern describes how the source symbol touches the target
type AccessPattern string

const (
	AccessRead      AccessPattern = "read"
	AccessWrite     AccessPattern = "write"
	AccessReadWrite AccessPattern = "read_write"
	AccessExecute   AccessPattern = "execute"
)

// NodeMetadata holds the structural metrics of a node
type NodeMetadata struct {
	Complexity int      `json:"complexity"`
	FanIn      int      `json:"fan_in"`
	FanOut     int      `json:"fan_out"`
	Centrality float64  `json:"centrality"`
	Stability  float64  `json:"stability"` // Instability, Ce/(Ca+Ce)
	Tags       []string `json:"tags,omitempty"`
}

// SymbolNode is one symbol in the graph. The graph refers to symbols by id
// and never owns them.
type SymbolNode struct {
	SymbolID  string           `json:"symbol_id"`
	FileID    string           `json:"file_id"`
	ProjectID string           `json:"project_id"`
	Name      string           `json:"name"`
	Kind      types.SymbolKind `json:"kind"`
	FQN       string           `json:"fqn"`
	Scope     []string         `json:"scope,omitempty"`
	Location  types.Location   `json:"location"`
	Metadata  NodeMetadata     `json:"metadata"`
}

// EdgeContext describes the circumstances of a relationship
type EdgeContext struct {
	CallCount   int           `json:"call_count"`
	Conditional bool          `json:"conditional"`
	InLoop      bool          `json:"in_loop"`
	Access      AccessPattern `json:"access"`
}

// SymbolEdge is a directed relationship from one node to another
type SymbolEdge struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Kind      RelationshipKind `json:"kind"`
	Strength  float64          `json:"strength"` // In [0, 1]
	Locations []types.Location `json:"locations"`
	Context   EdgeContext      `json:"context"`
}

// SymbolGraph is a directed graph of symbols. Every edge endpoint is a node
// of the graph; edges that would dangle are dropped and counted.
//
// A SymbolGraph is not safe for concurrent mutation. Once built it is only
// read.
type SymbolGraph struct {
	Nodes        map[string]*SymbolNode   `json:"nodes"`
	Edges        map[string][]*SymbolEdge `json:"edges"` // Keyed by source node id
	DroppedEdges int                      `json:"dropped_edges"`
}

// NewSymbolGraph creates an empty graph
func NewSymbolGraph() *SymbolGraph {
	return &SymbolGraph{
		Nodes: make(map[string]*SymbolNode),
		Edges: make(map[string][]*SymbolEdge),
	}
}

// AddNode inserts or replaces a node
func (g *SymbolGraph) AddNode(n *SymbolNode) {
	g.Nodes[n.SymbolID] = n
}

// Node returns the node for a symbol id
func (g *SymbolGraph) Node(id string) (*SymbolNode, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Edge is the input of AddEdge
type Edge struct {
	From     string
	To       string
	Kind     RelationshipKind
	Strength float64
	Location *types.Location
	Context  EdgeContext
}

// AddEdge adds a relationship or merges it into an existing edge with the
// same endpoints and kind: call counts and locations accumulate, flags are
// or-ed and the strongest strength wins. An edge with a missing endpoint is
// dropped and counted; self edges are ignored. It reports whether the edge
// was recorded.
func (g *SymbolGraph) AddEdge(e Edge) bool {
	if e.From == e.To {
		return false
	}
	if _, ok := g.Nodes[e.From]; !ok {
		g.DroppedEdges++
		return false
	}
	if _, ok := g.Nodes[e.To]; !ok {
		g.DroppedEdges++
		return false
	}

	count := e.Context.CallCount
	if count <= 0 {
		count = 1
	}

	for _, existing := range g.Edges[e.From] {
		if existing.To != e.To || existing.Kind != e.Kind {
			continue
		}
		existing.Context.CallCount += count
		existing.Context.Conditional = existing.Context.Conditional || e.Context.Conditional
		existing.Context.InLoop = existing.Context.InLoop || e.Context.InLoop
		existing.Context.Access = mergeAccess(existing.Context.Access, e.Context.Access)
		existing.Strength = min(max(existing.Strength, e.Strength), 1)
		if e.Location != nil {
			existing.Locations = append(existing.Locations, *e.Location)
		}
		return true
	}

	edge := &SymbolEdge{
		ID:       edgeID(e.From, e.To, e.Kind),
		From:     e.From,
		To:       e.To,
		Kind:     e.Kind,
		Strength: min(max(e.Strength, 0), 1),
		Context:  e.Context,
	}
	edge.Context.CallCount = count
	if e.Location != nil {
		edge.Locations = []types.Location{*e.Location}
	}
	g.Edges[e.From] = append(g.Edges[e.From], edge)
	return true
}

func mergeAccess(a, b AccessPattern) AccessPattern {
	switch {
	case a == "" || a == b:
		return b
	case b == "":
		return a
	case (a == AccessRead && b == AccessWrite) || (a == AccessWrite && b == AccessRead):
		return AccessReadWrite
	default:
		return a
	}
}

var edgeNamespace = uuid.MustParse("6f0c1b9e-6a3f-4c55-9d43-1f5c0e2b8a71")

// edgeID is deterministic so rebuilding an unchanged graph yields equal ids
func edgeID(from, to string, kind RelationshipKind) string {
	return uuid.NewSHA1(edgeNamespace, []byte(fmt.Sprintf("%s>%s:%s", from, to, kind))).String()
}

// Dependencies returns the outgoing edges of a node
func (g *SymbolGraph) Dependencies(id string) []*SymbolEdge {
	return g.Edges[id]
}

// Dependents returns the edges pointing at a node
func (g *SymbolGraph) Dependents(id string) []*SymbolEdge {
	var in []*SymbolEdge
	for _, from := range g.sortedSources() {
		for _, e := range g.Edges[from] {
			if e.To == id {
				in = append(in, e)
			}
		}
	}
	return in
}

// EdgeCount returns the total number of edges
func (g *SymbolGraph) EdgeCount() int {
	n := 0
	for _, edges := range g.Edges {
		n += len(edges)
	}
	return n
}

// FileDependencies maps each file id to the sorted ids of the other files
// its symbols depend on
func (g *SymbolGraph) FileDependencies() map[string][]string {
	seen := make(map[string]map[string]bool)
	for from, edges := range g.Edges {
		src := g.Nodes[from].FileID
		for _, e := range edges {
			dst := g.Nodes[e.To].FileID
			if dst == src {
				continue
			}
			if seen[src] == nil {
				seen[src] = make(map[string]bool)
			}
			seen[src][dst] = true
		}
	}

	deps := make(map[string][]string, len(seen))
	for src, dsts := range seen {
		for dst := range dsts {
			deps[src] = append(deps[src], dst)
		}
		sort.Strings(deps[src])
	}
	return deps
}

// ComputeMetrics recomputes fan-in, fan-out, centrality and instability of
// every node from the current edges
func (g *SymbolGraph) ComputeMetrics() {
	fanIn := make(map[string]int, len(g.Nodes))
	for _, edges := range g.Edges {
		for _, e := range edges {
			fanIn[e.To]++
		}
	}

	total := len(g.Nodes)
	for id, n := range g.Nodes {
		n.Metadata.FanOut = len(g.Edges[id])
		n.Metadata.FanIn = fanIn[id]
		n.Metadata.Centrality = 0
		if total > 1 {
			n.Metadata.Centrality = float64(n.Metadata.FanIn+n.Metadata.FanOut) / float64(total-1)
		}
		n.Metadata.Stability = instability(n.Metadata.FanIn, n.Metadata.FanOut)
	}
}

// instability is Ce/(Ca+Ce), 0 for an isolated node
func instability(afferent, efferent int) float64 {
	if afferent+efferent == 0 {
		return 0
	}
	return float64(efferent) / float64(afferent+efferent)
}

// sortedNodeIDs returns node ids in a stable order
func (g *SymbolGraph) sortedNodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *SymbolGraph) sortedSources() []string {
	ids := make([]string, 0, len(g.Edges))
	for id := range g.Edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
