package parser

import (
	"context"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

// goAstExtractor is the syntax-tree backend for Go built on go/ast. It serves
// Go sources when no tree-sitter grammar is compiled in.
type goAstExtractor struct{}

func (g *goAstExtractor) extract(ctx context.Context, req extractRequest) (*extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, req.Path, req.Content, goparser.SkipObjectResolution)
	if file == nil {
		return nil, fmt.Errorf("go syntax error: %w", err)
	}
	// Syntax errors are non-fatal as long as some declarations survived
	if err != nil && len(file.Decls) == 0 {
		return nil, fmt.Errorf("go syntax error: %w", err)
	}

	e := &goSymbolExtractor{
		fset:        fset,
		packageName: file.Name.Name,
		lines:       splitLines(req.Content),
		defs:        make(map[token.Pos]bool),
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.extractFunction(d)
		case *ast.GenDecl:
			e.extractGenDecl(d)
		}
	}
	e.collectUsages(file)

	return &extraction{Symbols: e.symbols, Usages: e.usages}, nil
}

// goSymbolExtractor accumulates the symbols and usages of one file
type goSymbolExtractor struct {
	fset        *token.FileSet
	packageName string
	lines       []string
	defs        map[token.Pos]bool // Positions of defining identifiers
	symbols     []types.Symbol
	usages      []types.Usage
}

func (e *goSymbolExtractor) add(name *ast.Ident, kind types.SymbolKind, node ast.Node, scope, signature string) {
	e.defs[name.Pos()] = true
	e.symbols = append(e.symbols, types.Symbol{
		Name:      name.Name,
		Kind:      kind,
		Start:     e.position(name.Pos()),
		End:       e.position(node.End()),
		Signature: collapseSignature(signature),
		Scope:     scope,
		Namespace: e.packageName,
	})
}

func (e *goSymbolExtractor) extractFunction(fn *ast.FuncDecl) {
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		recv := receiverType(fn.Recv.List[0].Type)
		e.add(fn.Name, types.KindMethod, fn, recv, e.functionSignature(fn))
		return
	}
	e.add(fn.Name, types.KindFunction, fn, "", e.functionSignature(fn))
}

func (e *goSymbolExtractor) extractGenDecl(gen *ast.GenDecl) {
	for _, spec := range gen.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(s)
		case *ast.ValueSpec:
			kind := types.KindVariable
			if gen.Tok == token.CONST {
				kind = types.KindConstant
			}
			for _, name := range s.Names {
				if name.Name == "_" {
					continue
				}
				sig := gen.Tok.String() + " " + name.Name
				if s.Type != nil {
					sig += " " + exprString(s.Type)
				}
				e.add(name, kind, s, "", sig)
			}
		}
	}
}

func (e *goSymbolExtractor) extractTypeSpec(spec *ast.TypeSpec) {
	name := spec.Name.Name
	switch t := spec.Type.(type) {
	case *ast.StructType:
		e.add(spec.Name, types.KindStruct, spec, "", fmt.Sprintf("type %s struct", name))
		if t.Fields == nil {
			return
		}
		for _, field := range t.Fields.List {
			for _, fname := range field.Names {
				e.add(fname, types.KindField, field, name, fname.Name+" "+exprString(field.Type))
			}
		}
	case *ast.InterfaceType:
		e.add(spec.Name, types.KindInterface, spec, "", fmt.Sprintf("type %s interface", name))
		if t.Methods == nil {
			return
		}
		for _, m := range t.Methods.List {
			for _, mname := range m.Names {
				e.add(mname, types.KindMethod, m, name, mname.Name+strings.TrimPrefix(exprString(m.Type), "func"))
			}
		}
	default:
		e.add(spec.Name, types.KindType, spec, "", fmt.Sprintf("type %s %s", name, exprString(spec.Type)))
	}
}

// collectUsages records every identifier that is not a definition, with its
// kind taken from the enclosing node
func (e *goSymbolExtractor) collectUsages(file *ast.File) {
	var stack []ast.Node
	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return true
		}
		if imp, ok := n.(*ast.ImportSpec); ok {
			// Children are not visited, so nothing is pushed
			e.addImport(imp)
			return false
		}
		if id, ok := n.(*ast.Ident); ok && id != file.Name && id.Name != "_" && !e.defs[id.Pos()] {
			e.addUsage(id, stack)
		}
		stack = append(stack, n)
		return true
	})
}

func (e *goSymbolExtractor) addUsage(id *ast.Ident, stack []ast.Node) {
	start := e.position(id.Pos())
	e.usages = append(e.usages, types.Usage{
		Name:     id.Name,
		Kind:     goUsageKind(id, stack),
		Location: types.Location{Start: start, End: e.position(id.End())},
		Context:  contextLine(e.lines, start.Line-1),
	})
}

func (e *goSymbolExtractor) addImport(imp *ast.ImportSpec) {
	path := strings.Trim(imp.Path.Value, "`\"")
	name := path[strings.LastIndex(path, "/")+1:]
	if imp.Name != nil {
		name = imp.Name.Name
	}
	start := e.position(imp.Pos())
	e.usages = append(e.usages, types.Usage{
		Name:     name,
		Kind:     types.UsageImport,
		Location: types.Location{Start: start, End: e.position(imp.End())},
		Context:  contextLine(e.lines, start.Line-1),
	})
}

// goUsageKind classifies an identifier by its parent node
func goUsageKind(id *ast.Ident, stack []ast.Node) types.UsageKind {
	if len(stack) == 0 {
		return types.UsageReference
	}
	parent := stack[len(stack)-1]
	switch p := parent.(type) {
	case *ast.CallExpr:
		if p.Fun == id {
			return types.UsageCall
		}
	case *ast.SelectorExpr:
		if p.Sel == id && len(stack) > 1 {
			if call, ok := stack[len(stack)-2].(*ast.CallExpr); ok && call.Fun == p {
				return types.UsageCall
			}
		}
	case *ast.AssignStmt:
		for _, lhs := range p.Lhs {
			if lhs == id {
				return types.UsageAssignment
			}
		}
	case *ast.IncDecStmt:
		return types.UsageAssignment
	}
	return types.UsageReference
}

// position converts a token position to a 1-based line and 0-based column
func (e *goSymbolExtractor) position(pos token.Pos) types.Position {
	p := e.fset.Position(pos)
	return types.Position{Line: p.Line, Column: p.Column - 1}
}

func (e *goSymbolExtractor) functionSignature(fn *ast.FuncDecl) string {
	var sig strings.Builder
	sig.WriteString("func ")
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(fn.Recv.List[0].Type))
		sig.WriteString(") ")
	}
	sig.WriteString(fn.Name.Name)
	sig.WriteString(strings.TrimPrefix(exprString(fn.Type), "func"))
	return sig.String()
}

// receiverType returns the base type name of a method receiver
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func fieldListString(list *ast.FieldList) string {
	if list == nil || len(list.List) == 0 {
		return ""
	}
	var parts []string
	for _, field := range list.List {
		typ := exprString(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		for _, name := range field.Names {
			parts = append(parts, name.Name+" "+typ)
		}
	}
	return strings.Join(parts, ", ")
}

// exprString renders a type expression compactly
func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + exprString(t.Elt)
		}
		return "[" + exprString(t.Len) + "]" + exprString(t.Elt)
	case *ast.BasicLit:
		return t.Value
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		s := "func(" + fieldListString(t.Params) + ")"
		if t.Results != nil && len(t.Results.List) > 0 {
			results := fieldListString(t.Results)
			if t.Results.NumFields() > 1 || len(t.Results.List[0].Names) > 0 {
				s += " (" + results + ")"
			} else {
				s += " " + results
			}
		}
		return s
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.StructType:
		return "struct{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.IndexExpr:
		return exprString(t.X) + "[" + exprString(t.Index) + "]"
	case *ast.IndexListExpr:
		args := make([]string, len(t.Indices))
		for i, ix := range t.Indices {
			args[i] = exprString(ix)
		}
		return exprString(t.X) + "[" + strings.Join(args, ", ") + "]"
	default:
		return "..."
	}
}
