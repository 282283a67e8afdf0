package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

func TestHeuristicExtractor(t *testing.T) {
	h := newHeuristicExtractor()

	tests := []struct {
		name     string
		lang     types.Language
		content  string
		wantName string
		wantKind types.SymbolKind
		wantCol  int
	}{
		{"rust fn", types.LangRust, "pub async fn fetch(url: &str) {", "fetch", types.KindFunction, 13},
		{"rust struct", types.LangRust, "pub(crate) struct Config {", "Config", types.KindStruct, 18},
		{"rust trait", types.LangRust, "trait Shape {", "Shape", types.KindInterface, 6},
		{"rust macro", types.LangRust, "macro_rules! vec2 {", "vec2", types.KindMacro, 13},
		{"js function", types.LangJavaScript, "export async function load() {", "load", types.KindFunction, 22},
		{"js class", types.LangJavaScript, "export default class Widget {", "Widget", types.KindClass, 21},
		{"ts interface", types.LangTypeScript, "export interface Props {", "Props", types.KindInterface, 17},
		{"ts const", types.LangTypeScript, "const limit: number = 10;", "limit", types.KindConstant, 6},
		{"python def", types.LangPython, "    async def handle(self):", "handle", types.KindFunction, 14},
		{"python class", types.LangPython, "class Repo(Base):", "Repo", types.KindClass, 6},
		{"python module var", types.LangPython, "TIMEOUT = 30", "TIMEOUT", types.KindVariable, 0},
		{"java class", types.LangJava, "public final class Main {", "Main", types.KindClass, 19},
		{"java method", types.LangJava, "  public static void main(String[] args) {", "main", types.KindMethod, 21},
		{"c define", types.LangC, "#define MAX 10", "MAX", types.KindMacro, 8},
		{"c function", types.LangC, "static int count(const char *s) {", "count", types.KindFunction, 11},
		{"cpp class", types.LangCPP, "class Engine {", "Engine", types.KindClass, 6},
		{"go method", types.LangGo, "func (s *Server) Start() error {", "Start", types.KindMethod, 17},
		{"go struct", types.LangGo, "type Server struct {", "Server", types.KindStruct, 5},
		{"generic fallback", types.LangShell, "function deploy() {", "deploy", types.KindFunction, 9},
		{"generic shell style", types.LangShell, "build() {", "build", types.KindFunction, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := h.extract(extractRequest{Content: []byte(tt.content), Language: tt.lang})
			require.Len(t, ext.Symbols, 1)
			sym := ext.Symbols[0]
			assert.Equal(t, tt.wantName, sym.Name)
			assert.Equal(t, tt.wantKind, sym.Kind)
			assert.Equal(t, 1, sym.Start.Line)
			assert.Equal(t, tt.wantCol, sym.Start.Column)
			assert.Equal(t, collapseSignature(tt.content), sym.Signature)
		})
	}
}

func TestHeuristicExtractor_FirstMatchPerLine(t *testing.T) {
	h := newHeuristicExtractor()

	content := "class Outer { function inner() {} }\n\n// nothing here\n"
	ext := h.extract(extractRequest{Content: []byte(content), Language: types.LangJavaScript})

	require.Len(t, ext.Symbols, 1)
	assert.Equal(t, "Outer", ext.Symbols[0].Name)
	assert.Empty(t, ext.Usages)
}

func TestHeuristicExtractor_NoMatches(t *testing.T) {
	h := newHeuristicExtractor()

	ext := h.extract(extractRequest{Content: []byte("just some prose\nwith no code\n"), Language: types.LangText})
	require.NotNil(t, ext)
	assert.Empty(t, ext.Symbols)
}
