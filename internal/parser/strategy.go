package parser

import "github.com/dshills/codeindex/pkg/types"

// Strategy identifies one tier of the parsing fallback chain
type Strategy int

const (
	// StrategySyntaxTree builds a full syntax tree and extracts symbols and
	// references from it
	StrategySyntaxTree Strategy = iota
	// StrategyCtags runs an external tag extractor; symbols only
	StrategyCtags
	// StrategyHeuristic matches per-line regular expressions; never fails
	StrategyHeuristic
)

// String returns the strategy name recorded in parse results
func (s Strategy) String() string {
	switch s {
	case StrategySyntaxTree:
		return "syntax-tree"
	case StrategyCtags:
		return "ctags"
	case StrategyHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// StrategyFor returns the first strategy worth attempting for a language.
// It is a pure function of the language and the compiled-in grammars.
func StrategyFor(lang types.Language) Strategy {
	if hasSyntaxTree(lang) {
		return StrategySyntaxTree
	}
	if _, ok := ctagsLanguage(lang); ok {
		return StrategyCtags
	}
	return StrategyHeuristic
}

// chainFrom returns the strategies from start to the heuristic last resort
func chainFrom(start Strategy) []Strategy {
	chain := make([]Strategy, 0, 3)
	for s := start; s <= StrategyHeuristic; s++ {
		chain = append(chain, s)
	}
	return chain
}

// hasSyntaxTree reports whether a syntax-tree backend exists for the language
// in this build: tree-sitter grammars with cgo, go/ast for Go otherwise.
func hasSyntaxTree(lang types.Language) bool {
	return hasGrammar(lang) || lang == types.LangGo
}
