//go:build cgo

package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/codeindex/pkg/types"
)

var grammars = map[types.Language]func() *sitter.Language{
	types.LangGo:         golang.GetLanguage,
	types.LangRust:       rust.GetLanguage,
	types.LangJavaScript: javascript.GetLanguage,
	types.LangTypeScript: typescript.GetLanguage,
	types.LangTSX:        tsx.GetLanguage,
	types.LangPython:     python.GetLanguage,
	types.LangJava:       java.GetLanguage,
	types.LangC:          c.GetLanguage,
	types.LangCPP:        cpp.GetLanguage,
}

func hasGrammar(lang types.Language) bool {
	_, ok := grammars[lang]
	return ok
}

// syntaxTree is what the cache keeps between parses of a file
type syntaxTree struct {
	tree     *sitter.Tree
	language types.Language
}

// compiledQueries holds the definition and usage queries of one language
type compiledQueries struct {
	definitions *sitter.Query
	usages      *sitter.Query
}

// syntaxTreeExtractor runs tree-sitter grammars. Queries are compiled once
// per language and shared; parsers are created per call because a
// sitter.Parser is not safe for concurrent use.
type syntaxTreeExtractor struct {
	mu      sync.Mutex
	queries map[types.Language]*compiledQueries
}

func newSyntaxTreeExtractor() *syntaxTreeExtractor {
	return &syntaxTreeExtractor{queries: make(map[types.Language]*compiledQueries)}
}

func (x *syntaxTreeExtractor) compiled(lang types.Language, grammar *sitter.Language) (*compiledQueries, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if q, ok := x.queries[lang]; ok {
		return q, nil
	}
	defs, err := sitter.NewQuery([]byte(definitionQueries[lang]), grammar)
	if err != nil {
		return nil, fmt.Errorf("compile %s definition query: %w", lang, err)
	}
	usages, err := sitter.NewQuery([]byte(usageQueries[lang]), grammar)
	if err != nil {
		return nil, fmt.Errorf("compile %s usage query: %w", lang, err)
	}
	q := &compiledQueries{definitions: defs, usages: usages}
	x.queries[lang] = q
	return q, nil
}

func (x *syntaxTreeExtractor) extract(ctx context.Context, req extractRequest) (*extraction, error) {
	grammarFn, ok := grammars[req.Language]
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", req.Language)
	}
	grammar := grammarFn()

	queries, err := x.compiled(req.Language, grammar)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, baselineTree(req), req.Content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned an empty tree")
	}

	w := &treeWalker{
		src:       req.Content,
		lines:     splitLines(req.Content),
		namespace: namespaceOf(root, req.Content),
	}
	w.collectDefinitions(queries.definitions, root)
	w.collectUsages(queries.usages, root)

	return &extraction{
		Symbols: w.symbols,
		Usages:  w.usages,
		Tree:    &syntaxTree{tree: tree, language: req.Language},
	}, nil
}

// baselineTree returns an edited copy of the previous tree of the file, or
// nil when there is none to diff against. The cached tree is never edited.
func baselineTree(req extractRequest) *sitter.Tree {
	if req.Previous == nil {
		return nil
	}
	prev, ok := req.Previous.tree.(*syntaxTree)
	if !ok || prev.tree == nil || prev.language != req.Language {
		return nil
	}

	old, cur := req.Previous.content, req.Content
	prefix := commonPrefix(old, cur)
	suffix := commonSuffix(old[prefix:], cur[prefix:])

	tree := prev.tree.Copy()
	tree.Edit(sitter.EditInput{
		StartIndex:  uint32(prefix),
		OldEndIndex: uint32(len(old) - suffix),
		NewEndIndex: uint32(len(cur) - suffix),
		StartPoint:  pointAt(cur, prefix),
		OldEndPoint: pointAt(old, len(old)-suffix),
		NewEndPoint: pointAt(cur, len(cur)-suffix),
	})
	return tree
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// pointAt converts a byte offset to a tree-sitter row/column point
func pointAt(src []byte, offset int) sitter.Point {
	head := src[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset - (bytes.LastIndexByte(head, '\n') + 1)
	return sitter.Point{Row: uint32(row), Column: uint32(col)}
}

// treeWalker turns query matches into symbols and usages
type treeWalker struct {
	src       []byte
	lines     []string
	namespace string
	symbols   []types.Symbol
	nameSpans []byteSpan // Defining name ranges, parallel to symbols
	usages    []types.Usage
}

type byteSpan struct {
	start, end uint32
}

func (s byteSpan) contains(start, end uint32) bool {
	return start >= s.start && end <= s.end
}

func (w *treeWalker) collectDefinitions(q *sitter.Query, root *sitter.Node) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	// One symbol per name node; the most specific kind wins
	byStart := make(map[uint32]int)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name, def *sitter.Node
		var kind types.SymbolKind
		for _, c := range m.Captures {
			capture := q.CaptureNameForId(c.Index)
			switch {
			case capture == "name":
				name = c.Node
			case strings.HasPrefix(capture, "definition."):
				def = c.Node
				kind = types.SymbolKind(strings.TrimPrefix(capture, "definition."))
			}
		}
		if name == nil || def == nil {
			continue
		}

		sym := w.symbolFor(name, def, kind)
		if i, seen := byStart[name.StartByte()]; seen {
			if kindRank(sym.Kind) > kindRank(w.symbols[i].Kind) {
				w.symbols[i] = sym
			}
			continue
		}
		byStart[name.StartByte()] = len(w.symbols)
		w.symbols = append(w.symbols, sym)
		w.nameSpans = append(w.nameSpans, byteSpan{name.StartByte(), name.EndByte()})
	}
}

func (w *treeWalker) symbolFor(name, def *sitter.Node, kind types.SymbolKind) types.Symbol {
	scope := scopeOf(def, w.src)
	if kind == types.KindFunction && insideMethodContainer(def) {
		kind = types.KindMethod
	}
	if def.Type() == "method_declaration" {
		if recv := def.ChildByFieldName("receiver"); recv != nil {
			scope = goReceiverName(recv.Content(w.src))
		}
	}

	start := name.StartPoint()
	end := def.EndPoint()
	return types.Symbol{
		Name:      name.Content(w.src),
		Kind:      kind,
		Start:     types.Position{Line: int(start.Row) + 1, Column: int(start.Column)},
		End:       types.Position{Line: int(end.Row) + 1, Column: int(end.Column)},
		Signature: signatureOf(def, w.src),
		Scope:     scope,
		Namespace: w.namespace,
	}
}

func (w *treeWalker) collectUsages(q *sitter.Query, root *sitter.Node) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			n := c.Node
			if w.isDefinitionName(n.StartByte(), n.EndByte()) {
				continue
			}
			start, end := n.StartPoint(), n.EndPoint()
			w.usages = append(w.usages, types.Usage{
				Name: n.Content(w.src),
				Kind: usageKindOf(n),
				Location: types.Location{
					Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column)},
					End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column)},
				},
				Context: contextLine(w.lines, int(start.Row)),
			})
		}
	}
}

// isDefinitionName reports whether a range lies inside any defining name
func (w *treeWalker) isDefinitionName(start, end uint32) bool {
	for _, span := range w.nameSpans {
		if span.contains(start, end) {
			return true
		}
	}
	return false
}

// kindRank orders kinds when two patterns capture the same name
func kindRank(k types.SymbolKind) int {
	switch k {
	case types.KindType:
		return 0
	case types.KindVariable:
		return 1
	case types.KindConstant, types.KindField:
		return 2
	default:
		return 3
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// usageKindOf classifies an identifier by the node around it
func usageKindOf(n *sitter.Node) types.UsageKind {
	target := n
	parent := n.Parent()
	// Only the member name of a.b is lifted, never the operand
	if parent != nil && memberNodes[parent.Type()] && sameNode(lastNamedChild(parent), n) {
		target = parent
		parent = parent.Parent()
	}
	if parent == nil {
		return types.UsageReference
	}

	switch {
	case callNodes[parent.Type()]:
		fn := parent.ChildByFieldName("function")
		if fn == nil {
			fn = parent.ChildByFieldName("macro")
		}
		if fn == nil {
			fn = parent.ChildByFieldName("constructor")
		}
		if sameNode(fn, target) || sameNode(parent.ChildByFieldName("name"), n) {
			return types.UsageCall
		}
	case assignmentNodes[parent.Type()]:
		if sameNode(parent.ChildByFieldName("left"), target) {
			return types.UsageAssignment
		}
	case parent.Type() == "expression_list":
		// Go assignment targets are wrapped in an expression list
		if gp := parent.Parent(); gp != nil && assignmentNodes[gp.Type()] && sameNode(gp.ChildByFieldName("left"), parent) {
			return types.UsageAssignment
		}
	}
	return types.UsageReference
}

func lastNamedChild(n *sitter.Node) *sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}

func insideMethodContainer(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if methodContainers[p.Type()] {
			return true
		}
	}
	return false
}

// scopeOf joins the names of enclosing scopes, outermost first
func scopeOf(def *sitter.Node, src []byte) string {
	var parts []string
	for p := def.Parent(); p != nil; p = p.Parent() {
		field, ok := scopeNameField[p.Type()]
		if !ok {
			continue
		}
		if name := p.ChildByFieldName(field); name != nil {
			parts = append(parts, name.Content(src))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

// goReceiverName extracts T from receivers such as "(s *T)" or "(T[K])"
func goReceiverName(recv string) string {
	recv = strings.Trim(recv, "()")
	if i := strings.IndexByte(recv, '['); i >= 0 {
		recv = recv[:i]
	}
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "*")
}

// signatureOf returns the declaration text preceding its body
func signatureOf(def *sitter.Node, src []byte) string {
	text := src[def.StartByte():def.EndByte()]
	if body := def.ChildByFieldName("body"); body != nil && body.StartByte() > def.StartByte() {
		text = src[def.StartByte():body.StartByte()]
	} else if i := bytes.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return collapseSignature(string(text))
}

// namespaceOf returns the package declared by a Go or Java file
func namespaceOf(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_clause", "package_declaration":
			if child.NamedChildCount() > 0 {
				return child.NamedChild(0).Content(src)
			}
		}
	}
	return ""
}
