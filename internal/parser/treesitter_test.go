//go:build cgo

package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

func extractTree(t *testing.T, lang types.Language, content string) *extraction {
	t.Helper()
	ext, err := newSyntaxTreeExtractor().extract(context.Background(), extractRequest{
		Path:     "test",
		Content:  []byte(content),
		Language: lang,
	})
	require.NoError(t, err)
	return ext
}

func TestTreeSitter_QueriesCompile(t *testing.T) {
	x := newSyntaxTreeExtractor()
	for lang, grammar := range grammars {
		t.Run(string(lang), func(t *testing.T) {
			_, err := x.compiled(lang, grammar())
			require.NoError(t, err)
		})
	}
}

func TestTreeSitter_RustFunctionOnly(t *testing.T) {
	ext := extractTree(t, types.LangRust, "fn add(a: i32, b: i32) -> i32 { a + b }")

	require.Len(t, ext.Symbols, 1)
	assert.Equal(t, "add", ext.Symbols[0].Name)
	assert.Equal(t, types.KindFunction, ext.Symbols[0].Kind)
	assert.Equal(t, 1, ext.Symbols[0].Start.Line)
	assert.Equal(t, 3, ext.Symbols[0].Start.Column)
	assert.Equal(t, "fn add(a: i32, b: i32) -> i32", ext.Symbols[0].Signature)
	assert.NotNil(t, ext.Tree)
}

func TestTreeSitter_RustImplMethods(t *testing.T) {
	ext := extractTree(t, types.LangRust, `struct Point { x: i32 }

impl Point {
    fn norm(&self) -> i32 {
        self.x
    }
}
`)
	norm, ok := symbolNamed(ext.Symbols, "norm")
	require.True(t, ok)
	assert.Equal(t, types.KindMethod, norm.Kind)
	assert.Equal(t, "Point", norm.Scope)

	x, ok := symbolNamed(ext.Symbols, "x")
	require.True(t, ok)
	assert.Equal(t, types.KindField, x.Kind)
}

func TestTreeSitter_PythonClassScope(t *testing.T) {
	ext := extractTree(t, types.LangPython, `class Cart:
    def total(self):
        return compute(self)

def compute(cart):
    return 0
`)
	total, ok := symbolNamed(ext.Symbols, "total")
	require.True(t, ok)
	assert.Equal(t, types.KindMethod, total.Kind)
	assert.Equal(t, "Cart", total.Scope)
	assert.Equal(t, "def total(self):", total.Signature)

	compute, ok := symbolNamed(ext.Symbols, "compute")
	require.True(t, ok)
	assert.Equal(t, types.KindFunction, compute.Kind)
	assert.Empty(t, compute.Scope)

	var calls int
	for _, u := range ext.Usages {
		if u.Name == "compute" {
			assert.Equal(t, types.UsageCall, u.Kind)
			assert.Equal(t, 3, u.Location.Start.Line)
			calls++
		}
	}
	assert.Equal(t, 1, calls, "the defining name is not a usage")
}

func TestTreeSitter_GoMethodsAndNamespace(t *testing.T) {
	ext := extractTree(t, types.LangGo, `package server

type Server struct {
	addr string
}

func (s *Server) Start() error {
	s.addr = ":80"
	return nil
}
`)
	server, ok := symbolNamed(ext.Symbols, "Server")
	require.True(t, ok)
	assert.Equal(t, types.KindStruct, server.Kind)
	assert.Equal(t, "server", server.Namespace)

	start, ok := symbolNamed(ext.Symbols, "Start")
	require.True(t, ok)
	assert.Equal(t, types.KindMethod, start.Kind)
	assert.Equal(t, "Server", start.Scope)
	assert.Equal(t, "func (s *Server) Start() error", start.Signature)

	addr, ok := symbolNamed(ext.Symbols, "addr")
	require.True(t, ok)
	assert.Equal(t, types.KindField, addr.Kind)
	assert.Equal(t, "Server", addr.Scope)

	var assigned bool
	for _, u := range ext.Usages {
		if u.Name == "addr" && u.Kind == types.UsageAssignment {
			assigned = true
		}
	}
	assert.True(t, assigned)
}

func TestTreeSitter_IncrementalReparse(t *testing.T) {
	x := newSyntaxTreeExtractor()
	ctx := context.Background()

	before := []byte("function a() {}\n")
	first, err := x.extract(ctx, extractRequest{Content: before, Language: types.LangJavaScript})
	require.NoError(t, err)

	prev := &cacheEntry{content: before, tree: first.Tree}
	after := []byte("function a() {}\nfunction b() { a(); }\n")
	second, err := x.extract(ctx, extractRequest{Content: after, Language: types.LangJavaScript, Previous: prev})
	require.NoError(t, err)

	require.Len(t, second.Symbols, 2)
	assert.Equal(t, "b", second.Symbols[1].Name)
	assert.Equal(t, 2, second.Symbols[1].Start.Line)

	// The cached tree is copied before editing, so it still parses the old text
	assert.Equal(t, uint32(len(before)), first.Tree.(*syntaxTree).tree.RootNode().EndByte())
}

func TestPointAt(t *testing.T) {
	src := []byte("ab\ncde\nf")
	assert.Equal(t, uint32(0), pointAt(src, 0).Row)
	p := pointAt(src, 5)
	assert.Equal(t, uint32(1), p.Row)
	assert.Equal(t, uint32(2), p.Column)
	assert.Equal(t, 2, commonPrefix([]byte("abc"), []byte("abx")))
	assert.Equal(t, 2, commonSuffix([]byte("xbc"), []byte("bc")))
}
