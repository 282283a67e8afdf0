package parser

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

func TestCtags_MissingBinary(t *testing.T) {
	x := newCtagsExtractor("", 0)
	assert.False(t, x.supports(types.LangRust))

	_, err := x.extract(context.Background(), extractRequest{Content: []byte("fn a() {}"), Language: types.LangRust})
	assert.Error(t, err)
}

func TestCtags_UnrunnableBinary(t *testing.T) {
	x := newCtagsExtractor("/nonexistent/ctags", 0)
	assert.False(t, x.supports(types.LangPython), "a failed probe supports nothing")
}

// fakeCtags writes an executable that prints version for --version and a
// language list for --list-languages
func fakeCtags(t *testing.T, version string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(t.TempDir(), "ctags")
	script := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"--version) echo '" + version + "' ;;\n" +
		"--list-languages) printf 'Python\\nRust [disabled]\\n' ;;\n" +
		"esac\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCtags_RequiresUniversalCtags(t *testing.T) {
	t.Run("universal", func(t *testing.T) {
		x := newCtagsExtractor(fakeCtags(t, "Universal Ctags 6.1.0, Copyright (C) 2015-2023 Universal Ctags Team"), 0)
		assert.True(t, x.supports(types.LangPython))
		assert.False(t, x.supports(types.LangRust), "disabled languages are skipped")
	})

	t.Run("exuberant", func(t *testing.T) {
		x := newCtagsExtractor(fakeCtags(t, "Exuberant Ctags 5.8, Copyright (C) 1996-2009 Darren Hiebert"), 0)
		assert.False(t, x.supports(types.LangPython))
	})
}

func TestCtagsLanguage(t *testing.T) {
	name, ok := ctagsLanguage(types.LangCPP)
	assert.True(t, ok)
	assert.Equal(t, "C++", name)

	_, ok = ctagsLanguage(types.LangText)
	assert.False(t, ok)
}

func TestParseCtagsOutput(t *testing.T) {
	source := splitLines([]byte("class Shape:\n    def area(self):\n        return 0\n\nRADIUS = 2\n"))
	out := []byte(`{"_type": "ptag", "name": "JSON_OUTPUT_VERSION", "path": "0.0"}
{"_type": "tag", "name": "Shape", "path": "x.py", "language": "Python", "line": 1, "kind": "class", "roles": "def", "end": 3}
{"_type": "tag", "name": "area", "path": "x.py", "language": "Python", "line": 2, "kind": "member", "scope": "Shape", "scopeKind": "class", "roles": "def", "signature": "(self)"}
{"_type": "tag", "name": "os", "path": "x.py", "language": "Python", "line": 1, "kind": "module", "roles": "imported"}
not json at all
{"_type": "tag", "name": "RADIUS", "path": "x.py", "language": "Python", "line": 5, "kind": "variable", "roles": "def"}
{"_type": "tag", "name": "mystery", "path": "x.py", "line": 5, "kind": "zzz"}
`)

	syms := parseCtagsOutput(out, source)
	require.Len(t, syms, 4)

	assert.Equal(t, "Shape", syms[0].Name)
	assert.Equal(t, types.KindClass, syms[0].Kind)
	assert.Equal(t, 6, syms[0].Start.Column)
	assert.Equal(t, 3, syms[0].End.Line)
	assert.Equal(t, "class Shape:", syms[0].Signature)

	assert.Equal(t, "area", syms[1].Name)
	assert.Equal(t, types.KindField, syms[1].Kind)
	assert.Equal(t, "Shape", syms[1].Scope)
	assert.Equal(t, 8, syms[1].Start.Column)
	assert.Equal(t, 2, syms[1].End.Line)

	assert.Equal(t, "RADIUS", syms[2].Name)
	assert.Equal(t, types.KindVariable, syms[2].Kind)

	assert.Equal(t, types.KindVariable, syms[3].Kind, "unknown kinds default to variable")
}
