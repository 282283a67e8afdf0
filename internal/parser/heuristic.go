package parser

import (
	"regexp"

	"github.com/dshills/codeindex/pkg/types"
)

// linePattern matches one declaration form; group 1 is the symbol name
type linePattern struct {
	re   *regexp.Regexp
	kind types.SymbolKind
}

func pat(expr string, kind types.SymbolKind) linePattern {
	return linePattern{re: regexp.MustCompile(expr), kind: kind}
}

var (
	rustPatterns = []linePattern{
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(\w+)`, types.KindFunction),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`, types.KindStruct),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`, types.KindEnum),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:unsafe\s+)?trait\s+(\w+)`, types.KindInterface),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?const\s+(\w+)\s*:`, types.KindConstant),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?static\s+(?:mut\s+)?(\w+)\s*:`, types.KindVariable),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?mod\s+(\w+)`, types.KindModule),
		pat(`^\s*(?:pub(?:\([^)]*\))?\s+)?type\s+(\w+)`, types.KindType),
		pat(`^\s*macro_rules!\s*(\w+)`, types.KindMacro),
	}

	jsPatterns = []linePattern{
		pat(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)`, types.KindFunction),
		pat(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`, types.KindClass),
		pat(`^\s*(?:export\s+)?interface\s+(\w+)`, types.KindInterface),
		pat(`^\s*(?:export\s+)?(?:const\s+)?enum\s+(\w+)`, types.KindEnum),
		pat(`^\s*(?:export\s+)?type\s+(\w+)\s*(?:<[^>]*>)?\s*=`, types.KindType),
		pat(`^\s*(?:export\s+)?const\s+(\w+)\s*(?::[^=]+)?=`, types.KindConstant),
		pat(`^\s*(?:export\s+)?let\s+(\w+)\s*(?::[^=]+)?=`, types.KindVariable),
		pat(`^\s*(?:export\s+)?var\s+(\w+)\s*(?::[^=]+)?=`, types.KindVariable),
	}

	pythonPatterns = []linePattern{
		pat(`^\s*(?:async\s+)?def\s+(\w+)`, types.KindFunction),
		pat(`^\s*class\s+(\w+)`, types.KindClass),
		pat(`^(\w+)\s*(?::[^=]+)?=[^=]`, types.KindVariable),
	}

	javaPatterns = []linePattern{
		pat(`^\s*(?:(?:public|private|protected|static|final|abstract|sealed)\s+)*class\s+(\w+)`, types.KindClass),
		pat(`^\s*(?:(?:public|private|protected|static|sealed)\s+)*interface\s+(\w+)`, types.KindInterface),
		pat(`^\s*(?:(?:public|private|protected|static)\s+)*enum\s+(\w+)`, types.KindEnum),
		pat(`^\s*(?:public|private|protected)\s+(?:(?:static|final|abstract|synchronized)\s+)*[\w<>\[\],.?\s]+?\s+(\w+)\s*\(`, types.KindMethod),
	}

	cPatterns = []linePattern{
		pat(`^\s*#\s*define\s+(\w+)`, types.KindMacro),
		pat(`^\s*(?:typedef\s+)?struct\s+(\w+)\s*\{?\s*$`, types.KindStruct),
		pat(`^\s*(?:typedef\s+)?enum\s+(\w+)`, types.KindEnum),
		pat(`^\s*typedef\s+.*?\b(\w+)\s*;`, types.KindType),
		pat(`^\s*(?:(?:static|inline|extern|const|unsigned|signed)\s+)*[A-Za-z_][\w:<>]*[\s\*&]+(\w+)\s*\([^;]*\)\s*(?:const\s*)?\{`, types.KindFunction),
	}

	cppPatterns = append([]linePattern{
		pat(`^\s*(?:template\s*<[^>]*>\s*)?class\s+(\w+)`, types.KindClass),
		pat(`^\s*namespace\s+(\w+)`, types.KindNamespace),
	}, cPatterns...)

	goPatterns = []linePattern{
		pat(`^func\s+\([^)]*\)\s*(\w+)`, types.KindMethod),
		pat(`^func\s+(\w+)`, types.KindFunction),
		pat(`^type\s+(\w+)\s+struct\b`, types.KindStruct),
		pat(`^type\s+(\w+)\s+interface\b`, types.KindInterface),
		pat(`^type\s+(\w+)`, types.KindType),
		pat(`^const\s+(\w+)`, types.KindConstant),
		pat(`^var\s+(\w+)`, types.KindVariable),
	}

	// genericPatterns is the catch-all tried after any language patterns
	genericPatterns = []linePattern{
		pat(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`, types.KindFunction),
		pat(`^\s*(?:\w+\s+)*class\s+(\w+)`, types.KindClass),
		pat(`^\s*(?:async\s+)?def\s+(\w+)`, types.KindFunction),
		pat(`^\s*(?:pub\s+)?fn\s+(\w+)`, types.KindFunction),
		pat(`^\s*func\s+(\w+)`, types.KindFunction),
		pat(`^\s*(\w+)\s*\(\)\s*\{`, types.KindFunction),
	}
)

// heuristicExtractor is the last-resort strategy. It never errors: every
// line is tried against the language patterns, then the generic ones, and
// the first match on a line becomes a symbol.
type heuristicExtractor struct {
	byLanguage map[types.Language][]linePattern
}

func newHeuristicExtractor() *heuristicExtractor {
	return &heuristicExtractor{
		byLanguage: map[types.Language][]linePattern{
			types.LangRust:       rustPatterns,
			types.LangJavaScript: jsPatterns,
			types.LangTypeScript: jsPatterns,
			types.LangTSX:        jsPatterns,
			types.LangPython:     pythonPatterns,
			types.LangJava:       javaPatterns,
			types.LangC:          cPatterns,
			types.LangCPP:        cppPatterns,
			types.LangGo:         goPatterns,
		},
	}
}

func (h *heuristicExtractor) extract(req extractRequest) *extraction {
	patterns := h.byLanguage[req.Language]
	lines := splitLines(req.Content)

	ext := &extraction{}
	for row, line := range lines {
		if sym, ok := matchLine(line, row, patterns); ok {
			ext.Symbols = append(ext.Symbols, sym)
			continue
		}
		if sym, ok := matchLine(line, row, genericPatterns); ok {
			ext.Symbols = append(ext.Symbols, sym)
		}
	}
	return ext
}

func matchLine(line string, row int, patterns []linePattern) (types.Symbol, bool) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatchIndex(line)
		if m == nil || m[2] < 0 {
			continue
		}
		name := line[m[2]:m[3]]
		return types.Symbol{
			Name:      name,
			Kind:      p.kind,
			Start:     types.Position{Line: row + 1, Column: m[2]},
			End:       types.Position{Line: row + 1, Column: len(line)},
			Signature: collapseSignature(line),
		}, true
	}
	return types.Symbol{}, false
}
