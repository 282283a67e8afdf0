// Package parser extracts symbols and references from source files through a
// chain of strategies, each tried only when the previous one is unavailable
// or fails.
//
// # Strategies
//
//   - Syntax tree: tree-sitter grammars (cgo builds) for Go, Rust,
//     JavaScript, TypeScript, TSX, Python, Java, C and C++. Builds without
//     cgo parse Go with go/ast. This is the only strategy that produces
//     references.
//   - Ctags: Universal Ctags, when installed, for anything it knows.
//     Symbols only.
//   - Heuristic: per-line regular expressions. It never fails.
//
// StrategyFor picks the first strategy for a language; the chain then runs
// down to the heuristic.
//
// # Basic Usage
//
//	p := parser.New(parser.DefaultConfig(), parser.WithLogger(logger))
//	result, err := p.Parse(ctx, fileID, "src/lib.rs", content, types.LangRust)
//	if errors.Is(err, parser.ErrFileTooLarge) {
//	    // skip the file
//	}
//
//	for _, sym := range result.Symbols {
//	    fmt.Printf("%s %s at %d:%d\n", sym.Kind, sym.Name, sym.Start.Line, sym.Start.Column)
//	}
//
// # Caching
//
// Results are cached per file id together with the content checksum. Parsing
// the same content again returns the cached result with Cached set and runs
// no strategy. When the content changed, the previous tree-sitter tree is
// edited and handed to the parser so only the changed region is reparsed.
//
// # Usages
//
// Besides references, syntax-tree results carry Usages: every identifier
// occurrence with a call, assignment, import or plain reference kind. They
// are not resolved here; the xref package resolves them across files.
package parser
