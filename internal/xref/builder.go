package xref

import (
	"regexp"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

// SymbolDatabase is the parsed state of one file
type SymbolDatabase struct {
	FileID     string
	ProjectID  string
	Symbols    []types.Symbol
	References []types.Reference
	Usages     []types.Usage
}

// Edge strengths by relationship
const (
	strengthStructural = 1.0
	strengthCall       = 1.0
	strengthInstance   = 0.8
	strengthModify     = 0.7
	strengthUse        = 0.5
	strengthReference  = 0.3
)

var (
	identPattern       = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	conditionalPattern = regexp.MustCompile(`\b(if|elif|else if|switch|case|match)\b|\?`)
	loopPattern        = regexp.MustCompile(`\b(for|while|loop|foreach|do)\b`)
)

// Words that appear in declaration headers but never name a base type
var declarationKeywords = map[string]bool{
	"extends": true, "implements": true, "public": true, "private": true,
	"protected": true, "virtual": true, "class": true, "struct": true,
	"interface": true, "object": true, "final": true, "abstract": true,
	"static": true, "const": true, "mut": true, "pub": true, "where": true,
	"metaclass": true,
}

// Build constructs a new graph from per-file symbol databases. It is a pure
// function of its input: every call yields a fresh graph.
func Build(dbs []SymbolDatabase) *SymbolGraph {
	b := newBuildState(dbs)
	b.addNodes()
	for i := range dbs {
		b.analyzeDatabase(&dbs[i])
	}
	b.g.ComputeMetrics()
	return b.g
}

type buildState struct {
	g            *SymbolGraph
	dbs          []SymbolDatabase
	fileIndex    map[string]map[string][]*types.Symbol // file id, then name
	projectIndex map[string]map[string][]*types.Symbol // project id, then name
}

func newBuildState(dbs []SymbolDatabase) *buildState {
	b := &buildState{
		g:            NewSymbolGraph(),
		dbs:          dbs,
		fileIndex:    make(map[string]map[string][]*types.Symbol),
		projectIndex: make(map[string]map[string][]*types.Symbol),
	}
	for i := range dbs {
		db := &dbs[i]
		for j := range db.Symbols {
			sym := &db.Symbols[j]
			index(b.fileIndex, db.FileID, sym)
			index(b.projectIndex, db.ProjectID, sym)
		}
	}
	return b
}

func index(idx map[string]map[string][]*types.Symbol, key string, sym *types.Symbol) {
	byName, ok := idx[key]
	if !ok {
		byName = make(map[string][]*types.Symbol)
		idx[key] = byName
	}
	byName[sym.Name] = append(byName[sym.Name], sym)
}

// addNodes is pass 1: one node per symbol with zeroed metrics
func (b *buildState) addNodes() {
	for i := range b.dbs {
		db := &b.dbs[i]
		for j := range db.Symbols {
			sym := &db.Symbols[j]
			fileID := sym.FileID
			if fileID == "" {
				fileID = db.FileID
			}
			var scope []string
			if sym.Scope != "" {
				scope = strings.Split(sym.Scope, "::")
			}
			b.g.AddNode(&SymbolNode{
				SymbolID:  sym.ID,
				FileID:    fileID,
				ProjectID: db.ProjectID,
				Name:      sym.Name,
				Kind:      sym.Kind,
				FQN:       sym.QualifiedName(),
				Scope:     scope,
				Location:  types.Location{FileID: fileID, Start: sym.Start, End: sym.End},
				Metadata: NodeMetadata{
					Complexity: 1,
					Tags:       sym.Tags,
				},
			})
		}
	}
}

// analyzeDatabase is pass 2 for one file
func (b *buildState) analyzeDatabase(db *SymbolDatabase) {
	b.analyzeUsages(db)
	for i := range db.Symbols {
		sym := &db.Symbols[i]
		switch sym.Kind {
		case types.KindClass, types.KindStruct:
			b.analyzeInheritanceSignature(db, sym)
		case types.KindVariable, types.KindField, types.KindConstant:
			b.analyzeTypeUsage(db, sym)
		}
		if sym.Kind == types.KindClass || sym.Kind == types.KindInterface {
			b.analyzeInheritanceStructure(db, sym)
		}
		b.analyzeContainment(db, sym)
	}
	b.checkReferences(db)
}

// analyzeUsages turns calls into Calls or Instantiates edges and plain
// references or assignments into Uses, References or Modifies edges. The
// source is the innermost symbol whose span holds the usage.
func (b *buildState) analyzeUsages(db *SymbolDatabase) {
	branchLines := make(map[string]map[int]bool)

	for i := range db.Usages {
		u := &db.Usages[i]
		if u.Kind == types.UsageImport {
			continue
		}

		source := enclosing(db.Symbols, u.Location.Start, u.Kind == types.UsageCall)
		if source == nil {
			continue
		}

		loc := u.Location
		if loc.FileID == "" {
			loc.FileID = db.FileID
		}
		ctx := EdgeContext{
			Conditional: conditionalPattern.MatchString(u.Context),
			InLoop:      loopPattern.MatchString(u.Context),
		}
		if source.Kind.IsCallable() && (ctx.Conditional || ctx.InLoop) {
			if branchLines[source.ID] == nil {
				branchLines[source.ID] = make(map[int]bool)
			}
			branchLines[source.ID][loc.Start.Line] = true
		}

		switch u.Kind {
		case types.UsageCall:
			target := b.resolve(db, u.Name, func(k types.SymbolKind) int {
				switch {
				case k.IsCallable():
					return 2
				case k.IsTypeLike():
					return 1
				}
				return 0
			})
			if target == nil {
				continue
			}
			ctx.Access = AccessExecute
			kind, strength := RelCalls, strengthCall
			if target.Kind.IsTypeLike() {
				kind, strength = RelInstantiates, strengthInstance
			}
			b.g.AddEdge(Edge{From: source.ID, To: target.ID, Kind: kind, Strength: strength, Location: &loc, Context: ctx})

		case types.UsageReference:
			target := b.resolve(db, u.Name, anyKind)
			if target == nil || target.ID == source.ID {
				continue
			}
			ctx.Access = AccessRead
			kind, strength := RelUses, strengthUse
			if target.Kind.IsCallable() {
				kind, strength = RelReferences, strengthReference
			}
			b.g.AddEdge(Edge{From: source.ID, To: target.ID, Kind: kind, Strength: strength, Location: &loc, Context: ctx})

		case types.UsageAssignment:
			target := b.resolve(db, u.Name, dataKind)
			if target == nil {
				continue
			}
			ctx.Access = AccessWrite
			b.g.AddEdge(Edge{From: source.ID, To: target.ID, Kind: RelModifies, Strength: strengthModify, Location: &loc, Context: ctx})
		}
	}

	for id, lines := range branchLines {
		if n, ok := b.g.Node(id); ok {
			n.Metadata.Complexity += len(lines)
		}
	}
}

// analyzeInheritanceSignature resolves base types named in a class or struct
// header against the other symbols of the same file
func (b *buildState) analyzeInheritanceSignature(db *SymbolDatabase, sym *types.Symbol) {
	for _, base := range baseTypeNames(sym) {
		for _, target := range b.fileIndex[db.FileID][base] {
			if target.ID == sym.ID || !target.Kind.IsTypeLike() {
				continue
			}
			b.addInheritance(db, sym, target)
			break
		}
	}
}

// analyzeInheritanceStructure compares the symbol with every other type in
// the file and links the ones its header names. Pairs the signature pass
// already linked are skipped.
func (b *buildState) analyzeInheritanceStructure(db *SymbolDatabase, sym *types.Symbol) {
	header := headerAfterName(sym)
	if header == "" {
		return
	}
	for i := range db.Symbols {
		other := &db.Symbols[i]
		if other.ID == sym.ID || !other.Kind.IsTypeLike() || b.hasInheritance(sym.ID, other.ID) {
			continue
		}
		if mentionsWord(header, other.Name) && hasInheritanceMarker(header) {
			b.addInheritance(db, sym, other)
		}
	}
}

func (b *buildState) addInheritance(db *SymbolDatabase, sym, target *types.Symbol) {
	kind := RelInherits
	if target.Kind == types.KindInterface && sym.Kind != types.KindInterface {
		kind = RelImplements
	}
	loc := types.Location{FileID: db.FileID, Start: sym.Start, End: sym.Start}
	b.g.AddEdge(Edge{
		From:     sym.ID,
		To:       target.ID,
		Kind:     kind,
		Strength: strengthStructural,
		Location: &loc,
		Context:  EdgeContext{Access: AccessRead},
	})
}

func (b *buildState) hasInheritance(from, to string) bool {
	for _, e := range b.g.Edges[from] {
		if e.To == to && (e.Kind == RelInherits || e.Kind == RelImplements) {
			return true
		}
	}
	return false
}

// analyzeTypeUsage scans a variable or field declaration for known type names
func (b *buildState) analyzeTypeUsage(db *SymbolDatabase, sym *types.Symbol) {
	header := headerAfterName(sym)
	seen := make(map[string]bool)
	for _, name := range identPattern.FindAllString(header, -1) {
		if seen[name] || name == sym.Name {
			continue
		}
		seen[name] = true
		target := b.resolve(db, name, typeKind)
		if target == nil {
			continue
		}
		loc := types.Location{FileID: db.FileID, Start: sym.Start, End: sym.End}
		b.g.AddEdge(Edge{
			From:     sym.ID,
			To:       target.ID,
			Kind:     RelUses,
			Strength: strengthUse,
			Location: &loc,
			Context:  EdgeContext{Access: AccessRead},
		})
	}
}

// analyzeContainment links a member to the type its scope names
func (b *buildState) analyzeContainment(db *SymbolDatabase, sym *types.Symbol) {
	if sym.Scope == "" {
		return
	}
	owner := sym.Scope[strings.LastIndex(sym.Scope, "::")+1:]
	for _, container := range b.fileIndex[db.FileID][owner] {
		if container.ID == sym.ID || !container.Kind.IsTypeLike() {
			continue
		}
		loc := types.Location{FileID: db.FileID, Start: sym.Start, End: sym.End}
		b.g.AddEdge(Edge{
			From:     container.ID,
			To:       sym.ID,
			Kind:     RelContains,
			Strength: strengthStructural,
			Location: &loc,
		})
		return
	}
}

// checkReferences counts stored references whose symbol is not in the graph.
// Resolved references are already represented by usage edges.
func (b *buildState) checkReferences(db *SymbolDatabase) {
	for _, ref := range db.References {
		if _, ok := b.g.Node(ref.SymbolID); !ok {
			b.g.DroppedEdges++
		}
	}
}

// resolve finds the symbol a name refers to: the same file first, then the
// same project. rank orders acceptable kinds; zero rejects a kind.
func (b *buildState) resolve(db *SymbolDatabase, name string, rank func(types.SymbolKind) int) *types.Symbol {
	if sym := best(b.fileIndex[db.FileID][name], rank); sym != nil {
		return sym
	}
	return best(b.projectIndex[db.ProjectID][name], rank)
}

func best(candidates []*types.Symbol, rank func(types.SymbolKind) int) *types.Symbol {
	var found *types.Symbol
	top := 0
	for _, c := range candidates {
		if r := rank(c.Kind); r > top {
			found, top = c, r
		}
	}
	return found
}

func anyKind(types.SymbolKind) int { return 1 }

func dataKind(k types.SymbolKind) int {
	switch k {
	case types.KindVariable, types.KindField, types.KindConstant:
		return 1
	}
	return 0
}

func typeKind(k types.SymbolKind) int {
	if k.IsTypeLike() {
		return 1
	}
	return 0
}

// enclosing returns the innermost symbol whose span contains pos. With
// callableOnly set, only functions and methods qualify.
func enclosing(symbols []types.Symbol, pos types.Position, callableOnly bool) *types.Symbol {
	var inner *types.Symbol
	for i := range symbols {
		s := &symbols[i]
		if callableOnly && !s.Kind.IsCallable() {
			continue
		}
		if !s.Contains(pos) {
			continue
		}
		if inner == nil || inner.Contains(s.Start) {
			inner = s
		}
	}
	return inner
}

// headerAfterName returns the declaration text following the symbol name,
// cut before any body
func headerAfterName(sym *types.Symbol) string {
	i := strings.Index(sym.Signature, sym.Name)
	if i < 0 {
		return ""
	}
	rest := sym.Signature[i+len(sym.Name):]
	if j := strings.IndexByte(rest, '{'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func hasInheritanceMarker(header string) bool {
	return strings.Contains(header, "extends") || strings.Contains(header, "implements") ||
		strings.ContainsAny(header, ":(")
}

// baseTypeNames lists the identifiers of a class header that may name base
// types
func baseTypeNames(sym *types.Symbol) []string {
	header := headerAfterName(sym)
	if !hasInheritanceMarker(header) {
		return nil
	}
	var names []string
	for _, word := range identPattern.FindAllString(header, -1) {
		if !declarationKeywords[word] {
			names = append(names, word)
		}
	}
	return names
}

func mentionsWord(text, word string) bool {
	for _, w := range identPattern.FindAllString(text, -1) {
		if w == word {
			return true
		}
	}
	return false
}
